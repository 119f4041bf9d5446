package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/aegis/internal/models"
	"github.com/Wikid82/aegis/internal/services"
)

// AuditHandler exposes the operator-facing query surface over the event
// store: flagged alerts, the paginated trail, and alert resolution.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: audit}
}

// alertView decorates a flagged event with its derived severity for
// client-side triage. Severity is computed from the flag reason at read
// time and never stored.
type alertView struct {
	models.AuditEvent
	Severity string `json:"severity"`
}

func toAlertViews(events []models.AuditEvent) []alertView {
	views := make([]alertView, 0, len(events))
	for _, e := range events {
		views = append(views, alertView{AuditEvent: e, Severity: e.Severity()})
	}
	return views
}

// ListAlerts returns flagged events newest-first, capped at 100.
// ?unresolved=true restricts to alerts awaiting review.
func (h *AuditHandler) ListAlerts(c *gin.Context) {
	unresolvedOnly := c.Query("unresolved") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	alerts, err := h.auditService.ListFlagged(unresolvedOnly, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}

	views := toAlertViews(alerts)
	c.JSON(http.StatusOK, gin.H{"count": len(views), "data": views})
}

// ListTrail returns one page of the full audit trail, newest first.
func (h *AuditHandler) ListTrail(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	events, total, err := h.auditService.Trail(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit trail"})
		return
	}

	pageCount := int(total) / limit
	if int(total)%limit != 0 {
		pageCount++
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       events,
		"total_count": total,
		"page":        page,
		"page_count":  pageCount,
	})
}

// ResolveAlert marks one flagged event resolved. Resolving an already
// resolved alert is a no-op success.
func (h *AuditHandler) ResolveAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	event, err := h.auditService.Resolve(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		case errors.Is(err, services.ErrEventNotFlagged):
			c.JSON(http.StatusBadRequest, gin.H{"error": "event is not flagged"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve alert"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": event.Resolved, "id": event.ID})
}
