package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eventhall/booking-wizard/internal/models"
	"github.com/eventhall/booking-wizard/internal/wizard"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound  = errors.New("wizard session not found or expired")
	ErrSessionForbidden = errors.New("wizard session belongs to another user")
	ErrTooManySessions  = errors.New("too many active wizard sessions, please try again later")
)

// WizardSessionConfig holds the session store limits
type WizardSessionConfig struct {
	TTL               time.Duration
	MaxSessions       int
	NotificationLimit int
}

// WizardSession is a booking wizard owned by one user or guest
type WizardSession struct {
	ID            uuid.UUID
	Controller    *wizard.Controller
	Notifications *wizard.NotificationQueue
	CreatedAt     time.Time

	ownerID    string
	lastAccess time.Time
}

// SessionStats summarizes the active sessions for the admin dashboard
type SessionStats struct {
	Active    int            `json:"active"`
	Guests    int            `json:"guests"`
	Completed int            `json:"completed"`
	ByStep    map[string]int `json:"by_step"`
}

// WizardSessionService keeps wizard sessions in memory. Sessions are never
// persisted; they are lost on restart and expire after TTL of inactivity.
type WizardSessionService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*WizardSession

	gateway wizard.Gateway
	config  WizardSessionConfig
	audit   *AuditService
	logger  *logrus.Logger
	now     func() time.Time
}

// NewWizardSessionService creates a new session store. audit may be nil.
func NewWizardSessionService(gateway wizard.Gateway, config WizardSessionConfig, audit *AuditService, logger *logrus.Logger) *WizardSessionService {
	return &WizardSessionService{
		sessions: make(map[uuid.UUID]*WizardSession),
		gateway:  gateway,
		config:   config,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new wizard. identity is nil for guests.
func (s *WizardSessionService) Create(identity *wizard.Identity) (*WizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.New()
	now := s.now()
	notifications := wizard.NewNotificationQueue(s.config.NotificationLimit)

	session := &WizardSession{
		ID:            id,
		Controller:    wizard.New(s.gateway, notifications, identity, s.logger.WithField("session_id", id.String())),
		Notifications: notifications,
		CreatedAt:     now,
		lastAccess:    now,
	}
	if identity != nil {
		session.ownerID = identity.ID
	}
	s.sessions[id] = session

	s.logger.WithFields(logrus.Fields{
		"session_id": id.String(),
		"user_id":    session.ownerID,
	}).Info("Wizard session created")

	return session, nil
}

// Get returns a session the caller may use. A guest session is adopted by
// the first logged-in user that accesses it.
func (s *WizardSessionService) Get(id uuid.UUID, identity *wizard.Identity) (*WizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.lookupLocked(id, identity)
	if err != nil {
		return nil, err
	}

	if session.ownerID == "" && identity != nil && identity.ID != "" {
		session.ownerID = identity.ID
		session.Controller.SetIdentity(*identity)
		s.logger.WithFields(logrus.Fields{
			"session_id": id.String(),
			"user_id":    identity.ID,
		}).Info("Guest wizard session adopted by user")
	}

	session.lastAccess = s.now()
	return session, nil
}

// Delete discards a session the caller owns
func (s *WizardSessionService) Delete(id uuid.UUID, identity *wizard.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(id, identity); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

func (s *WizardSessionService) lookupLocked(id uuid.UUID, identity *wizard.Identity) (*WizardSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expiredLocked(session, s.now()) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	if session.ownerID != "" && (identity == nil || identity.ID != session.ownerID) {
		return nil, ErrSessionForbidden
	}
	return session, nil
}

func (s *WizardSessionService) expiredLocked(session *WizardSession, now time.Time) bool {
	return s.config.TTL > 0 && now.Sub(session.lastAccess) > s.config.TTL
}

// Next advances the wizard and calculates the fare when the fare step is entered.
// A failed fare calculation does not undo the move; the error reaches the user
// as a notification.
func (s *WizardSessionService) Next(ctx context.Context, session *WizardSession) (wizard.Step, error) {
	step, err := session.Controller.HandleNext()
	if err != nil {
		return step, err
	}

	if step == wizard.StepFare {
		if err := session.Controller.EnsureFare(ctx); err != nil {
			s.logger.WithFields(logrus.Fields{
				"session_id": session.ID.String(),
				"error":      err.Error(),
			}).Warn("Fare calculation on entering the fare step failed")
		}
	}
	return step, nil
}

// Back moves the wizard back one step. Going back from the first step leaves
// the wizard and discards the session.
func (s *WizardSessionService) Back(session *WizardSession) (bool, error) {
	left, err := session.Controller.HandleBack()
	if err != nil || !left {
		return left, err
	}

	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()

	s.logger.WithField("session_id", session.ID.String()).Info("User left the booking wizard")
	return true, nil
}

// OwnerID returns the id of the user a session belongs to, empty for guests
func (s *WizardSessionService) OwnerID(session *WizardSession) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.ownerID
}

// ExpireIdle removes sessions idle for longer than the TTL and returns how many were removed
func (s *WizardSessionService) ExpireIdle() int {
	s.mu.Lock()
	now := s.now()
	var expired []*WizardSession
	for id, session := range s.sessions {
		if s.expiredLocked(session, now) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.logger.WithFields(logrus.Fields{
			"session_id": session.ID.String(),
			"user_id":    session.ownerID,
			"step":       session.Controller.Snapshot().State.CurrentStep.String(),
		}).Info("Wizard session expired")

		if s.audit != nil {
			if err := s.audit.LogSessionEvent(models.AuditSessionExpired, session.ID, session.ownerID, "", ""); err != nil {
				s.logger.WithError(err).Warn("Failed to audit session expiry")
			}
		}
	}
	return len(expired)
}

// Stats summarizes the active sessions
func (s *WizardSessionService) Stats() SessionStats {
	s.mu.Lock()
	sessions := make([]*WizardSession, 0, len(s.sessions))
	guests := 0
	for _, session := range s.sessions {
		sessions = append(sessions, session)
		if session.ownerID == "" {
			guests++
		}
	}
	s.mu.Unlock()

	stats := SessionStats{
		Active: len(sessions),
		Guests: guests,
		ByStep: make(map[string]int),
	}
	for _, session := range sessions {
		snapshot := session.Controller.Snapshot()
		if snapshot.State.IsComplete {
			stats.Completed++
		}
		stats.ByStep[snapshot.State.CurrentStep.String()]++
	}
	return stats
}

// Count returns the number of sessions held
func (s *WizardSessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
