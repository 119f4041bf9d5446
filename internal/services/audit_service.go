package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Wikid82/aegis/internal/logger"
	"github.com/Wikid82/aegis/internal/metrics"
	"github.com/Wikid82/aegis/internal/models"
)

var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrEventNotFlagged = errors.New("event is not flagged")
)

// MaxAlertListSize caps the unresolved alert listing.
const MaxAlertListSize = 100

// AuditService owns the append-only event store. All cross-request state the
// anomaly rules need lives here and is recomputed per evaluation, so the
// process itself stays stateless.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService returns an AuditService using the provided DB.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record persists an event synchronously. UUID and Timestamp are filled in
// when the caller left them empty.
func (s *AuditService) Record(e *models.AuditEvent) error {
	if e == nil {
		return nil
	}
	if e.UUID == "" {
		e.UUID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := s.db.Create(e).Error; err != nil {
		return err
	}
	metrics.IncAuditEvent()
	if e.Flagged {
		metrics.IncFlaggedEvent(e.RuleID)
	}
	return nil
}

// RecordAsync dispatches the write on its own goroutine so the request never
// waits on audit persistence. Failures are logged and swallowed; losing an
// event must not touch the caller's outcome.
func (s *AuditService) RecordAsync(e *models.AuditEvent) {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	go func() {
		if err := s.Record(e); err != nil {
			logger.WithFields(map[string]interface{}{
				"action":   e.Action,
				"endpoint": e.Endpoint,
			}).WithError(err).Error("failed to persist audit event")
		}
	}()
}

// Metadata marshals a key/value bag into the event metadata column.
func Metadata(kv map[string]string) datatypes.JSON {
	if len(kv) == 0 {
		return nil
	}
	raw, err := json.Marshal(kv)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// CountByIPSince counts events of one kind from a source IP in the window.
func (s *AuditService) CountByIPSince(ip string, kind models.ActionKind, since time.Time) (int64, error) {
	var n int64
	err := s.db.Model(&models.AuditEvent{}).
		Where("source_ip = ? AND action = ? AND timestamp >= ?", ip, kind, since).
		Count(&n).Error
	return n, err
}

// CountByActorSince counts events of one kind by an actor in the window.
func (s *AuditService) CountByActorSince(actorID uint, kind models.ActionKind, since time.Time) (int64, error) {
	var n int64
	err := s.db.Model(&models.AuditEvent{}).
		Where("actor_id = ? AND action = ? AND timestamp >= ?", actorID, kind, since).
		Count(&n).Error
	return n, err
}

// EventsByActorSince returns an actor's events of one kind in the window,
// newest first.
func (s *AuditService) EventsByActorSince(actorID uint, kind models.ActionKind, since time.Time) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := s.db.
		Where("actor_id = ? AND action = ? AND timestamp >= ?", actorID, kind, since).
		Order("timestamp desc").
		Find(&events).Error
	return events, err
}

// LastEventForActor returns the actor's most recent event, used to re-attach
// a last-known name and IP to rule-generated flags.
func (s *AuditService) LastEventForActor(actorID uint) (*models.AuditEvent, error) {
	var e models.AuditEvent
	err := s.db.Where("actor_id = ?", actorID).Order("timestamp desc").First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListFlagged returns flagged events newest first, optionally unresolved
// only. limit values outside (0, MaxAlertListSize] fall back to the cap.
func (s *AuditService) ListFlagged(unresolvedOnly bool, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 || limit > MaxAlertListSize {
		limit = MaxAlertListSize
	}
	q := s.db.Where("flagged = ?", true)
	if unresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	var events []models.AuditEvent
	if err := q.Order("timestamp desc").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountUnresolvedFlagged returns the number of flagged events awaiting
// operator review.
func (s *AuditService) CountUnresolvedFlagged() (int64, error) {
	var n int64
	err := s.db.Model(&models.AuditEvent{}).
		Where("flagged = ? AND resolved = ?", true, false).
		Count(&n).Error
	return n, err
}

// Trail returns one page of the full audit trail, newest first, along with
// the total event count.
func (s *AuditService) Trail(page, limit int) ([]models.AuditEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var total int64
	if err := s.db.Model(&models.AuditEvent{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.AuditEvent
	err := s.db.Order("timestamp desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Resolve marks a flagged event resolved. Resolving an already-resolved
// event is a no-op success; resolving an unflagged event violates the
// resolved-implies-flagged invariant and is rejected.
func (s *AuditService) Resolve(id uint) (*models.AuditEvent, error) {
	var e models.AuditEvent
	if err := s.db.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	if !e.Flagged {
		return nil, ErrEventNotFlagged
	}
	if e.Resolved {
		return &e, nil
	}
	e.Resolved = true
	if err := s.db.Model(&e).Update("resolved", true).Error; err != nil {
		return nil, err
	}
	return &e, nil
}
