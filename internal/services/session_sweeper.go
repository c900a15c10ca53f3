package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SessionSweeper periodically removes idle wizard sessions and unused rate limit buckets
type SessionSweeper struct {
	sessions    *WizardSessionService
	rateLimiter *RateLimitService
	logger      *logrus.Logger
	stopCh      chan struct{}
	interval    time.Duration
}

// NewSessionSweeper creates a new session sweeper. rateLimiter may be nil.
func NewSessionSweeper(
	sessions *WizardSessionService,
	rateLimiter *RateLimitService,
	interval time.Duration,
	logger *logrus.Logger,
) *SessionSweeper {
	return &SessionSweeper{
		sessions:    sessions,
		rateLimiter: rateLimiter,
		logger:      logger,
		stopCh:      make(chan struct{}),
		interval:    interval,
	}
}

// Start begins the background sweep
func (s *SessionSweeper) Start() {
	s.logger.WithField("interval", s.interval.String()).Info("Starting wizard session sweeper")
	go s.run()
}

// Stop stops the background sweep
func (s *SessionSweeper) Stop() {
	s.logger.Info("Stopping wizard session sweeper")
	close(s.stopCh)
}

func (s *SessionSweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			s.logger.Info("Wizard session sweeper stopped")
			return
		}
	}
}

func (s *SessionSweeper) sweep() {
	if expired := s.sessions.ExpireIdle(); expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired": expired,
			"active":  s.sessions.Count(),
		}).Info("Expired idle wizard sessions")
	}

	if s.rateLimiter != nil {
		if removed := s.rateLimiter.CleanupExpiredRateLimits(); removed > 0 {
			s.logger.WithField("count", removed).Debug("Released idle rate limit buckets")
		}
	}
}

// RunOnce runs a single sweep
func (s *SessionSweeper) RunOnce() {
	s.sweep()
}
