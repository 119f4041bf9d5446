package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Wikid82/aegis/internal/logger"
	"github.com/Wikid82/aegis/internal/models"
)

const (
	bruteForceWindow    = 10 * time.Minute
	bruteForceThreshold = 5

	recordAccessWindow    = 60 * time.Minute
	recordAccessThreshold = 15 // distinct endpoints; strictly more triggers

	offHoursStart = 23
	offHoursEnd   = 5

	roleChangeWindow    = 30 * time.Minute
	roleChangeThreshold = 5 // strictly more triggers
)

// significantActions are the kinds worth flagging when performed off-hours.
var significantActions = map[models.ActionKind]bool{
	models.ActionAddRecord:  true,
	models.ActionRoleChange: true,
	models.ActionDeleteUser: true,
	models.ActionViewRecord: true,
}

// Actor is the identity snapshot a rule evaluation runs against.
type Actor struct {
	ID   uint
	Name string
	Role models.Role
}

// AnomalyService runs the behavioral detection rules. Every rule is
// stateless: it re-queries the event store per evaluation and writes at most
// one new flagged event. Rules never fail the request they run for; any
// internal error is logged and treated as "no anomaly detected".
type AnomalyService struct {
	audit    *AuditService
	notifier *NotificationService
	timeout  time.Duration

	// now is swappable in tests for the off-hours check.
	now func() time.Time
}

// NewAnomalyService returns an AnomalyService. notifier may be nil.
func NewAnomalyService(audit *AuditService, notifier *NotificationService, timeout time.Duration) *AnomalyService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &AnomalyService{
		audit:    audit,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Evaluate runs the rules applicable to one authenticated request. The
// off-hours check always runs; the volume rules only run when the request's
// own action and role match their precondition. Applicable rules run
// concurrently and are abandoned once the bounded timeout elapses, so a slow
// rule degrades to "not flagged" instead of stalling the request.
func (s *AnomalyService) Evaluate(actor Actor, kind models.ActionKind, endpoint, sourceIP string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, check func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(map[string]interface{}{"rule": name}).
						Errorf("anomaly rule panicked: %v", r)
				}
			}()
			check()
		}()
	}

	run(models.RuleOffHoursAccess, func() {
		s.checkOffHours(actor, kind, endpoint, sourceIP)
	})
	if kind == models.ActionViewRecord && actor.Role == models.RoleDoctor {
		run(models.RuleExcessiveRecordAccess, func() {
			s.checkExcessiveRecordAccess(actor)
		})
	}
	if kind == models.ActionRoleChange && actor.Role == models.RoleAdmin {
		run(models.RuleRapidRoleChange, func() {
			s.checkRapidRoleChanges(actor)
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Log().Warn("anomaly evaluation timed out; continuing unflagged")
	}
}

// CheckBruteForce flags repeated failed logins from one source IP. It is
// invoked from the login path after the FAILED_LOGIN event was recorded, so
// the attempt that crosses the threshold counts itself. Returns whether a
// flag was emitted.
func (s *AnomalyService) CheckBruteForce(sourceIP string) bool {
	since := time.Now().Add(-bruteForceWindow)
	n, err := s.audit.CountByIPSince(sourceIP, models.ActionFailedLogin, since)
	if err != nil {
		logger.WithError(err).Error("brute force check failed")
		return false
	}
	if n < bruteForceThreshold {
		return false
	}

	flag := &models.AuditEvent{
		ActorName:  "Unknown",
		ActorRole:  models.RoleUnknown,
		Action:     models.ActionFailedLogin,
		Endpoint:   "POST /api/v1/auth/login",
		SourceIP:   sourceIP,
		Flagged:    true,
		FlagReason: "brute force login attempt detected",
		RuleID:     models.RuleBruteForceLogin,
		Metadata: Metadata(map[string]string{
			"failed_attempts": strconv.FormatInt(n, 10),
			"window_minutes":  "10",
		}),
	}
	s.emitFlag(flag)
	logger.WithFields(map[string]interface{}{"source_ip": sourceIP, "failed_attempts": n}).
		Warn("anomaly detected: brute force login attempts")
	return true
}

func (s *AnomalyService) checkExcessiveRecordAccess(actor Actor) {
	since := s.now().Add(-recordAccessWindow)
	events, err := s.audit.EventsByActorSince(actor.ID, models.ActionViewRecord, since)
	if err != nil {
		logger.WithError(err).Error("excessive record access check failed")
		return
	}

	distinct := make(map[string]struct{}, len(events))
	for _, e := range events {
		distinct[e.Endpoint] = struct{}{}
	}
	if len(distinct) <= recordAccessThreshold {
		return
	}

	actorID := actor.ID
	flag := &models.AuditEvent{
		ActorID:    &actorID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Action:     models.ActionViewRecord,
		Endpoint:   "anomaly-detection",
		SourceIP:   lastKnownIP(events),
		Flagged:    true,
		FlagReason: "unusual patient record access frequency detected",
		RuleID:     models.RuleExcessiveRecordAccess,
		Metadata: Metadata(map[string]string{
			"distinct_records": strconv.Itoa(len(distinct)),
			"window_minutes":   "60",
		}),
	}
	s.emitFlag(flag)
	logger.WithFields(map[string]interface{}{"actor_id": actor.ID, "distinct_records": len(distinct)}).
		Warn("anomaly detected: excessive record access")
}

func (s *AnomalyService) checkOffHours(actor Actor, kind models.ActionKind, endpoint, sourceIP string) {
	hour := s.now().Hour()
	if hour < offHoursStart && hour >= offHoursEnd {
		return
	}
	if !significantActions[kind] {
		return
	}

	actorID := actor.ID
	flag := &models.AuditEvent{
		ActorID:    &actorID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Action:     kind,
		Endpoint:   endpoint,
		SourceIP:   sourceIP,
		Flagged:    true,
		FlagReason: "system accessed during unusual hours",
		RuleID:     models.RuleOffHoursAccess,
		Metadata: Metadata(map[string]string{
			"hour": strconv.Itoa(hour),
		}),
	}
	s.emitFlag(flag)
	logger.WithFields(map[string]interface{}{"actor_id": actor.ID, "hour": hour}).
		Warn("anomaly detected: off-hours access")
}

func (s *AnomalyService) checkRapidRoleChanges(actor Actor) {
	since := s.now().Add(-roleChangeWindow)
	n, err := s.audit.CountByActorSince(actor.ID, models.ActionRoleChange, since)
	if err != nil {
		logger.WithError(err).Error("rapid role change check failed")
		return
	}
	if n <= roleChangeThreshold {
		return
	}

	// Re-attach the actor's last-known IP from the trail.
	sourceIP := "Unknown"
	if last, err := s.audit.LastEventForActor(actor.ID); err == nil {
		sourceIP = last.SourceIP
	}

	actorID := actor.ID
	flag := &models.AuditEvent{
		ActorID:    &actorID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Action:     models.ActionRoleChange,
		Endpoint:   "anomaly-detection",
		SourceIP:   sourceIP,
		Flagged:    true,
		FlagReason: "suspicious rapid role modification detected",
		RuleID:     models.RuleRapidRoleChange,
		Metadata: Metadata(map[string]string{
			"role_changes":   strconv.FormatInt(n, 10),
			"window_minutes": "30",
		}),
	}
	s.emitFlag(flag)
	logger.WithFields(map[string]interface{}{"actor_id": actor.ID, "role_changes": n}).
		Warn("anomaly detected: rapid role changes")
}

// emitFlag persists a rule-generated event and pushes a best-effort operator
// notification. Persistence failure is logged and swallowed.
func (s *AnomalyService) emitFlag(flag *models.AuditEvent) {
	if err := s.audit.Record(flag); err != nil {
		logger.WithFields(map[string]interface{}{"rule": flag.RuleID}).
			WithError(err).Error("failed to persist flagged event")
		return
	}
	if s.notifier != nil {
		s.notifier.NotifyFlagAsync(flag)
	}
}

func lastKnownIP(events []models.AuditEvent) string {
	for _, e := range events {
		if e.SourceIP != "" {
			return e.SourceIP
		}
	}
	return "Unknown"
}
