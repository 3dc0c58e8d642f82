package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inbox-autopilot-go/internal/model"
)

// RuleRequest represents the request structure for creating/updating rules
type RuleRequest struct {
	Name         string              `json:"name" binding:"required"`
	Keyword      string              `json:"keyword"`
	Instructions string              `json:"instructions"`
	TrackReplies *bool               `json:"track_replies"`
	Enabled      *bool               `json:"enabled"`
	Actions      []RuleActionRequest `json:"actions"`
}

// RuleActionRequest is one action template inside a rule request.
type RuleActionRequest struct {
	Type    model.ActionType `json:"type" binding:"required"`
	Label   string           `json:"label"`
	To      string           `json:"to"`
	Subject string           `json:"subject"`
	Content string           `json:"content"`
}

// GetRules returns all rules for the account
func (h *Handlers) GetRules(c *gin.Context) {
	var rules []model.Rule
	if err := h.db.Preload("Actions").Where("user_id = ?", h.user.ID).Find(&rules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch rules",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule creates a new rule with its action templates
func (h *Handlers) CreateRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	trackReplies := false
	if req.TrackReplies != nil {
		trackReplies = *req.TrackReplies
	}

	rule := model.Rule{
		ID:           uuid.NewString(),
		UserID:       h.user.ID,
		Name:         req.Name,
		Keyword:      req.Keyword,
		Instructions: req.Instructions,
		TrackReplies: trackReplies,
		Enabled:      enabled,
	}
	for i, action := range req.Actions {
		rule.Actions = append(rule.Actions, model.RuleAction{
			ID:       uuid.NewString(),
			RuleID:   rule.ID,
			Position: i,
			Type:     action.Type,
			Label:    action.Label,
			To:       action.To,
			Subject:  action.Subject,
			Content:  action.Content,
		})
	}

	if err := h.db.Create(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create rule",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule returns a single rule by ID
func (h *Handlers) GetRule(c *gin.Context) {
	var rule model.Rule
	if err := h.db.Preload("Actions").First(&rule, "id = ? AND user_id = ?", c.Param("id"), h.user.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Rule not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule updates an existing rule
func (h *Handlers) UpdateRule(c *gin.Context) {
	var rule model.Rule
	if err := h.db.First(&rule, "id = ? AND user_id = ?", c.Param("id"), h.user.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Rule not found", Code: http.StatusNotFound})
		return
	}
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid request body", Code: http.StatusBadRequest})
		return
	}
	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Keyword != "" {
		rule.Keyword = req.Keyword
	}
	if req.Instructions != "" {
		rule.Instructions = req.Instructions
	}
	if req.TrackReplies != nil {
		rule.TrackReplies = *req.TrackReplies
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if err := h.db.Save(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database_error", Message: "Failed to update rule", Code: http.StatusInternalServerError})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule deletes a rule by ID
func (h *Handlers) DeleteRule(c *gin.Context) {
	if err := h.db.Delete(&model.Rule{}, "id = ? AND user_id = ?", c.Param("id"), h.user.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database_error", Message: "Failed to delete rule", Code: http.StatusInternalServerError})
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableRule enables a rule by ID
func (h *Handlers) EnableRule(c *gin.Context) {
	h.setRuleEnabled(c, true)
}

// DisableRule disables a rule by ID
func (h *Handlers) DisableRule(c *gin.Context) {
	h.setRuleEnabled(c, false)
}

func (h *Handlers) setRuleEnabled(c *gin.Context, enabled bool) {
	result := h.db.Model(&model.Rule{}).
		Where("id = ? AND user_id = ?", c.Param("id"), h.user.ID).
		Update("enabled", enabled)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database_error", Message: "Failed to update rule", Code: http.StatusInternalServerError})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Rule not found", Code: http.StatusNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableReplyTracking designates a rule as the reply-tracking rule and
// backfills recent inbound messages through the reply tracker.
func (h *Handlers) EnableReplyTracking(c *gin.Context) {
	result := h.db.Model(&model.Rule{}).
		Where("id = ? AND user_id = ?", c.Param("id"), h.user.ID).
		Update("track_replies", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database_error", Message: "Failed to update rule", Code: http.StatusInternalServerError})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Rule not found", Code: http.StatusNotFound})
		return
	}

	go h.scheduler.BackfillReplyTracking()

	c.JSON(http.StatusAccepted, gin.H{"status": "backfill started"})
}
