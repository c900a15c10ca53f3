package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron           *cron.Cron
	auditSvc       *AuditService
	referenceSvc   *ReferenceService
	auditRetention time.Duration
	logger         *logrus.Logger
}

// NewCronService creates a new CronService. referenceSvc may be nil.
func NewCronService(auditSvc *AuditService, referenceSvc *ReferenceService, auditRetention time.Duration, logger *logrus.Logger) *CronService {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:           c,
		auditSvc:       auditSvc,
		referenceSvc:   referenceSvc,
		auditRetention: auditRetention,
		logger:         logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Job 1: Purge old audit logs daily at 2 AM
	// Cron format: second minute hour day month weekday
	if s.auditSvc != nil && s.auditSvc.Persistent() && s.auditRetention > 0 {
		if _, err := s.cron.AddFunc("0 0 2 * * *", s.cleanupAuditLogsJob); err != nil {
			return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
		}
		s.logger.Info("✓ Scheduled: Cleanup old audit logs (Daily at 2:00 AM)")
	}

	// Job 2: Refresh reference data every hour on the hour
	if s.referenceSvc != nil {
		if _, err := s.cron.AddFunc("0 0 * * * *", s.refreshReferenceDataJob); err != nil {
			return fmt.Errorf("failed to schedule reference refresh job: %w", err)
		}
		s.logger.Info("✓ Scheduled: Refresh reference data (Hourly)")
	}

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")

	return nil
}

// Stop stops all cron jobs and waits for running ones
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

// cleanupAuditLogsJob deletes audit rows older than the retention period
func (s *CronService) cleanupAuditLogsJob() {
	s.logger.Info("[CRON] Starting audit log cleanup job...")
	startTime := time.Now()

	deleted, err := s.auditSvc.CleanupOldAuditLogs(s.auditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to cleanup audit logs")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"deleted":  deleted,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] ✓ Cleaned up old audit logs")
}

// refreshReferenceDataJob drops cached reference lists so they are reloaded on next use
func (s *CronService) refreshReferenceDataJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.referenceSvc.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to refresh reference data")
		return
	}
	s.logger.Info("[CRON] ✓ Reference data cache cleared")
}

// RunAuditCleanupNow runs the audit cleanup job immediately
func (s *CronService) RunAuditCleanupNow() {
	s.logger.Info("[MANUAL] Running audit log cleanup now...")
	s.cleanupAuditLogsJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
