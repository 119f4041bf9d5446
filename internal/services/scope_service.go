package services

import (
	"errors"
	"strconv"

	"github.com/Wikid82/aegis/internal/logger"
	"github.com/Wikid82/aegis/internal/metrics"
	"github.com/Wikid82/aegis/internal/models"
)

// ErrRecordScope is returned when a doctor touches a record assigned to
// someone else. The denial is audited; the caller maps it to 403.
var ErrRecordScope = errors.New("record outside caller's scope")

// ScopeService enforces department and ownership boundaries on patient
// records. Unlike the static role allow-list, a scope miss means the client
// constructed a request it should never have been able to, so the denial is
// recorded synchronously as a flagged UNAUTHORIZED_ACCESS event.
type ScopeService struct {
	audit    *AuditService
	notifier *NotificationService
}

// NewScopeService returns a ScopeService. notifier may be nil.
func NewScopeService(audit *AuditService, notifier *NotificationService) *ScopeService {
	return &ScopeService{audit: audit, notifier: notifier}
}

// AuthorizeRecordAccess checks that the record is assigned to the acting
// doctor. On mismatch it appends the flagged event and returns ErrRecordScope.
// Admins bypass the ownership check; their access is still audited upstream.
func (s *ScopeService) AuthorizeRecordAccess(actor Actor, actorDept string, record *models.PatientRecord, endpoint, sourceIP string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if record.AssignedDoctorID == actor.ID {
		return nil
	}

	metrics.IncDeniedRequest()

	actorID := actor.ID
	flag := &models.AuditEvent{
		ActorID:    &actorID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Action:     models.ActionUnauthorizedAccess,
		Endpoint:   endpoint,
		SourceIP:   sourceIP,
		Flagged:    true,
		FlagReason: "attempted access to record in department " + record.Department + " from department " + actorDept,
		Metadata: Metadata(map[string]string{
			"record_id":            strconv.FormatUint(uint64(record.ID), 10),
			"attempted_department": actorDept,
			"target_department":    record.Department,
			"assigned_doctor_id":   strconv.FormatUint(uint64(record.AssignedDoctorID), 10),
		}),
	}
	if err := s.audit.Record(flag); err != nil {
		// The denial still stands; losing the event is an observability
		// failure, not an authorization one.
		logger.WithError(err).Error("failed to persist unauthorized access event")
	} else if s.notifier != nil {
		s.notifier.NotifyFlagAsync(flag)
	}

	logger.WithFields(map[string]interface{}{
		"actor_id":  actor.ID,
		"record_id": record.ID,
	}).Warn("record scope violation denied")

	return ErrRecordScope
}
