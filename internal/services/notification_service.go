package services

import (
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/Wikid82/aegis/internal/logger"
	"github.com/Wikid82/aegis/internal/models"
)

// NotificationService pushes operator notifications over a configured
// shoutrrr URL. Everything here is best-effort; a push failure is logged
// and never propagated.
type NotificationService struct {
	url string
}

// NewNotificationService returns a NotificationService. An empty URL
// disables all pushes.
func NewNotificationService(url string) *NotificationService {
	return &NotificationService{url: url}
}

// Enabled reports whether a push target is configured.
func (s *NotificationService) Enabled() bool {
	return s.url != ""
}

// NotifyFlagAsync pushes a high-severity flagged event to the operator
// channel without blocking the caller. Medium-severity flags stay in the
// alert queue only.
func (s *NotificationService) NotifyFlagAsync(e *models.AuditEvent) {
	if s.url == "" || e == nil || e.Severity() != "high" {
		return
	}
	msg := fmt.Sprintf("[aegis] %s severity alert: %s (actor: %s, ip: %s)",
		e.Severity(), e.FlagReason, e.ActorName, e.SourceIP)
	go func() {
		if err := shoutrrr.Send(s.url, msg); err != nil {
			logger.WithError(err).Error("failed to push alert notification")
		}
	}()
}

// NotifyDigest pushes the periodic unresolved alert summary.
func (s *NotificationService) NotifyDigest(unresolved int64) error {
	if s.url == "" {
		return nil
	}
	msg := fmt.Sprintf("[aegis] %d unresolved flagged events awaiting review", unresolved)
	return shoutrrr.Send(s.url, msg)
}
