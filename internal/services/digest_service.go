package services

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Wikid82/aegis/internal/logger"
)

// DigestService periodically summarizes the unresolved alert backlog so a
// quiet operator channel still surfaces pending reviews.
type DigestService struct {
	audit    *AuditService
	notifier *NotificationService
	cron     *cron.Cron
}

// NewDigestService returns a DigestService. notifier may be nil, in which
// case the digest only logs.
func NewDigestService(audit *AuditService, notifier *NotificationService) *DigestService {
	return &DigestService{
		audit:    audit,
		notifier: notifier,
		cron:     cron.New(),
	}
}

// Start schedules the digest with the given cron expression.
func (s *DigestService) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return fmt.Errorf("schedule alert digest: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler.
func (s *DigestService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce computes and publishes one digest.
func (s *DigestService) RunOnce() {
	unresolved, err := s.audit.CountUnresolvedFlagged()
	if err != nil {
		logger.WithError(err).Error("alert digest query failed")
		return
	}

	logger.WithFields(map[string]interface{}{"unresolved": unresolved}).
		Info("alert digest")

	if unresolved == 0 || s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	if err := s.notifier.NotifyDigest(unresolved); err != nil {
		logger.WithError(err).Error("failed to push alert digest")
	}
}
