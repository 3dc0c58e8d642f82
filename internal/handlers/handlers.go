package handlers

import (
	"gorm.io/gorm"

	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/repository"
	"inbox-autopilot-go/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	repo      *repository.Repository
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
	user      *model.User
}

// New creates new HTTP handlers
func New(db *gorm.DB, repo *repository.Repository, s *scheduler.Scheduler, m *metrics.Metrics, user *model.User) *Handlers {
	return &Handlers{db: db, repo: repo, scheduler: s, metrics: m, user: user}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
