package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Wikid82/aegis/internal/models"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.AuditEvent{}, &models.User{}, &models.PatientRecord{})
	assert.NoError(t, err)

	return db
}

func seedEvent(t *testing.T, svc *AuditService, e models.AuditEvent) models.AuditEvent {
	t.Helper()
	assert.NoError(t, svc.Record(&e))
	return e
}

func TestAuditService_RecordFillsDefaults(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))

	e := models.AuditEvent{
		Action:   models.ActionLogin,
		Endpoint: "POST /api/v1/auth/login",
		SourceIP: "10.0.0.1",
	}
	assert.NoError(t, svc.Record(&e))
	assert.NotEmpty(t, e.UUID)
	assert.False(t, e.Timestamp.IsZero())
	assert.False(t, e.Flagged)
	assert.False(t, e.Resolved)
}

func TestAuditService_WindowQueries(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))
	now := time.Now()

	for i := 0; i < 3; i++ {
		seedEvent(t, svc, models.AuditEvent{
			Action:    models.ActionFailedLogin,
			Endpoint:  "POST /api/v1/auth/login",
			SourceIP:  "10.0.0.5",
			Timestamp: now.Add(-time.Minute),
		})
	}
	// Outside the window and a different IP must not count.
	seedEvent(t, svc, models.AuditEvent{
		Action:    models.ActionFailedLogin,
		Endpoint:  "POST /api/v1/auth/login",
		SourceIP:  "10.0.0.5",
		Timestamp: now.Add(-time.Hour),
	})
	seedEvent(t, svc, models.AuditEvent{
		Action:    models.ActionFailedLogin,
		Endpoint:  "POST /api/v1/auth/login",
		SourceIP:  "10.0.0.6",
		Timestamp: now.Add(-time.Minute),
	})

	n, err := svc.CountByIPSince("10.0.0.5", models.ActionFailedLogin, now.Add(-10*time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestAuditService_TrailPagination(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))
	now := time.Now()

	for i := 0; i < 5; i++ {
		seedEvent(t, svc, models.AuditEvent{
			Action:    models.ActionOther,
			Endpoint:  "GET /api/v1/other",
			SourceIP:  "10.0.0.1",
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}

	events, total, err := svc.Trail(1, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, events, 2)
	// Newest first.
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))

	events, total, err = svc.Trail(3, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, events, 1)
}

func TestAuditService_ListFlagged(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))

	seedEvent(t, svc, models.AuditEvent{Action: models.ActionOther, Endpoint: "GET /x", SourceIP: "1.1.1.1"})
	flagged := seedEvent(t, svc, models.AuditEvent{
		Action: models.ActionFailedLogin, Endpoint: "POST /login", SourceIP: "1.1.1.1",
		Flagged: true, FlagReason: "brute force login attempt detected",
	})
	resolved := seedEvent(t, svc, models.AuditEvent{
		Action: models.ActionRoleChange, Endpoint: "PUT /role", SourceIP: "1.1.1.1",
		Flagged: true, FlagReason: "suspicious rapid role modification detected",
	})
	_, err := svc.Resolve(resolved.ID)
	assert.NoError(t, err)

	all, err := svc.ListFlagged(false, 0)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	unresolved, err := svc.ListFlagged(true, 0)
	assert.NoError(t, err)
	assert.Len(t, unresolved, 1)
	assert.Equal(t, flagged.ID, unresolved[0].ID)
}

func TestAuditService_Resolve_Idempotent(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))

	e := seedEvent(t, svc, models.AuditEvent{
		Action: models.ActionFailedLogin, Endpoint: "POST /login", SourceIP: "1.1.1.1",
		Flagged: true, FlagReason: "brute force login attempt detected",
	})

	first, err := svc.Resolve(e.ID)
	assert.NoError(t, err)
	assert.True(t, first.Resolved)

	second, err := svc.Resolve(e.ID)
	assert.NoError(t, err)
	assert.True(t, second.Resolved)
}

func TestAuditService_Resolve_NotFound(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))

	_, err := svc.Resolve(12345)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestAuditService_Resolve_RejectsUnflagged(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))

	e := seedEvent(t, svc, models.AuditEvent{
		Action: models.ActionOther, Endpoint: "GET /x", SourceIP: "1.1.1.1",
	})

	_, err := svc.Resolve(e.ID)
	assert.ErrorIs(t, err, ErrEventNotFlagged)
}

func TestAuditService_CountUnresolvedFlagged(t *testing.T) {
	svc := NewAuditService(setupAuditTestDB(t))

	seedEvent(t, svc, models.AuditEvent{
		Action: models.ActionFailedLogin, Endpoint: "POST /login", SourceIP: "1.1.1.1",
		Flagged: true, FlagReason: "brute force login attempt detected",
	})
	seedEvent(t, svc, models.AuditEvent{Action: models.ActionOther, Endpoint: "GET /x", SourceIP: "1.1.1.1"})

	n, err := svc.CountUnresolvedFlagged()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
