package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inbox-autopilot-go/internal/model"
)

// GetExecutions returns executed rules, optionally filtered by status
// (?status=PENDING|APPLYING|APPLIED|ERROR) and limited (?limit=N).
func (h *Handlers) GetExecutions(c *gin.Context) {
	status := model.ExecutedRuleStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	execs, err := h.repo.ListExecutedRules(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch executed rules",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, execs)
}

// GetExecution returns one executed rule with its action items.
func (h *Handlers) GetExecution(c *gin.Context) {
	exec, err := h.repo.GetExecutedRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch executed rule",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if exec == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Executed rule not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, exec)
}

// GetTrackers returns thread trackers, optionally filtered by type
// (?type=AWAITING|NEEDS_REPLY) and resolution (?resolved=true|false).
func (h *Handlers) GetTrackers(c *gin.Context) {
	trackerType := model.TrackerType(c.Query("type"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	var resolved *bool
	if v := c.Query("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid resolved filter", Code: http.StatusBadRequest})
			return
		}
		resolved = &b
	}

	trackers, err := h.repo.ListTrackers(c.Request.Context(), h.user.ID, trackerType, resolved, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch trackers",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, trackers)
}
