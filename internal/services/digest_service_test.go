package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Wikid82/aegis/internal/models"
)

func TestDigestService_RunOnce(t *testing.T) {
	audit := NewAuditService(setupAuditTestDB(t))
	digest := NewDigestService(audit, nil)

	seedEvent(t, audit, models.AuditEvent{
		Action: models.ActionFailedLogin, Endpoint: "POST /login", SourceIP: "1.1.1.1",
		Flagged: true, FlagReason: "brute force login attempt detected",
	})

	assert.NotPanics(t, digest.RunOnce)
}

func TestDigestService_StartRejectsBadSchedule(t *testing.T) {
	audit := NewAuditService(setupAuditTestDB(t))
	digest := NewDigestService(audit, nil)

	assert.Error(t, digest.Start("not a cron expression"))

	assert.NoError(t, digest.Start("0 * * * *"))
	digest.Stop()
}

func TestNotificationService_DisabledWithoutURL(t *testing.T) {
	svc := NewNotificationService("")
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.NotifyDigest(3))
	assert.NotPanics(t, func() {
		svc.NotifyFlagAsync(&models.AuditEvent{FlagReason: "brute force login attempt detected"})
	})
}
