package study

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	endReasonEnded      = "ended"
	endReasonSuperseded = "superseded"
)

// SessionService owns the session state machine:
// no session -> active (consent or ensure) -> closed (end or superseded).
type SessionService struct {
	base
}

// NewSessionService creates a session service
func NewSessionService(db *gorm.DB, opts Options) *SessionService {
	return &SessionService{base: newBase(db, opts)}
}

// ConfirmConsent upserts the participant, closes any open session with its
// timing record, then opens a new session and timing record, all in one
// transaction.
func (s *SessionService) ConfirmConsent(ctx context.Context, info ParticipantInfo) (session *models.Session, err error) {
	ctx, span := s.events.TraceSessionTransition(ctx, "consent", info.ParticipantID)
	defer func() { telemetry.End(span, err) }()

	now := s.now()
	superseded := 0

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.upsertParticipant(tx, info); err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}

		var open []models.Session
		if err := tx.Where("participant_id = ? AND session_end_time IS NULL", info.ParticipantID).
			Find(&open).Error; err != nil {
			return err
		}
		for i := range open {
			if err := s.closeSession(tx, &open[i], now, endReasonSuperseded); err != nil {
				return err
			}
		}
		superseded = len(open)

		created, err := s.openSession(tx, info.ParticipantID, now)
		if err != nil {
			return err
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.SetOpenSession(ctx, info.ParticipantID, session.ID)
	s.metrics.ConsentsTotal.Inc()
	if superseded > 0 {
		s.metrics.SessionsEndedTotal.WithLabelValues(endReasonSuperseded).Add(float64(superseded))
	}

	logger.Log.Info("Consent confirmed",
		logger.WithParticipantID(info.ParticipantID),
		logger.WithSessionID(session.ID),
		zap.Int("superseded", superseded),
	)
	return session, nil
}

// EnsureSession returns the participant's open session, creating one when
// none exists. created reports which happened.
func (s *SessionService) EnsureSession(ctx context.Context, info ParticipantInfo) (session *models.Session, created bool, err error) {
	ctx, span := s.events.TraceSessionTransition(ctx, "ensure", info.ParticipantID)
	defer func() { telemetry.End(span, err) }()

	db := s.db.WithContext(ctx)

	if id, ok := s.cache.GetOpenSession(ctx, info.ParticipantID); ok {
		cached, err := s.loadSession(db, id)
		if err == nil && cached.IsOpen() && cached.ParticipantID == info.ParticipantID {
			s.metrics.CacheHitsTotal.WithLabelValues("open_session").Inc()
			return cached, false, nil
		}
		s.cache.InvalidateOpenSession(ctx, info.ParticipantID)
	}
	s.metrics.CacheMissesTotal.WithLabelValues("open_session").Inc()

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.upsertParticipant(tx, info); err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}
		open, err := s.findOpenSession(tx, info.ParticipantID)
		if err != nil {
			return err
		}
		if open != nil {
			session = open
			return nil
		}
		session, err = s.openSession(tx, info.ParticipantID, s.now())
		created = err == nil
		return err
	})
	if err != nil {
		// A concurrent request may have opened the session first; the
		// one-open-session index rejects ours, so return the winner.
		winner, findErr := s.findOpenSession(db, info.ParticipantID)
		if findErr != nil || winner == nil {
			return nil, false, err
		}
		session, created, err = winner, false, nil
	}

	s.cache.SetOpenSession(ctx, info.ParticipantID, session.ID)
	if created {
		logger.Log.Info("Session opened by ensure",
			logger.WithParticipantID(info.ParticipantID),
			logger.WithSessionID(session.ID),
		)
	}
	return session, created, nil
}

// EndSessionInput identifies the session to close by id, or by participant
// when only the participant is known.
type EndSessionInput struct {
	SessionID     string
	ParticipantID string
}

// EndSession closes a session and finalizes its timing record. Ending an
// already closed session returns it unchanged. A participant with no open
// session yields (nil, nil).
func (s *SessionService) EndSession(ctx context.Context, in EndSessionInput) (session *models.Session, err error) {
	ctx, span := s.events.TraceSessionTransition(ctx, "end", in.ParticipantID)
	defer func() { telemetry.End(span, err) }()

	closed := false
	err = s.withTx(ctx, func(tx *gorm.DB) error {
		var target *models.Session
		var err error
		if in.SessionID != "" {
			target, err = s.loadSession(tx, in.SessionID)
			if err != nil {
				return err
			}
			if in.ParticipantID != "" && target.ParticipantID != in.ParticipantID {
				return ErrParticipantMismatch
			}
		} else {
			target, err = s.findOpenSession(tx, in.ParticipantID)
			if err != nil || target == nil {
				return err
			}
		}

		session = target
		if !target.IsOpen() {
			return nil
		}
		closed = true
		return s.closeSession(tx, target, s.now(), endReasonEnded)
	})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	if closed {
		s.cache.InvalidateOpenSession(ctx, session.ParticipantID)
		s.metrics.SessionsEndedTotal.WithLabelValues(endReasonEnded).Inc()
		logger.Log.Info("Session ended",
			logger.WithParticipantID(session.ParticipantID),
			logger.WithSessionID(session.ID),
		)
	}
	return session, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.loadSession(s.db.WithContext(ctx), id)
}

func (s *SessionService) openSession(tx *gorm.DB, participantID string, now time.Time) (*models.Session, error) {
	session := &models.Session{
		ParticipantID:    participantID,
		SessionStartTime: now,
	}
	if err := tx.Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	timing := &models.SessionTiming{
		SessionID:     session.ID,
		ParticipantID: participantID,
		StartedAt:     now,
	}
	if err := tx.Create(timing).Error; err != nil {
		return nil, fmt.Errorf("create session timing: %w", err)
	}
	return session, nil
}

// closeSession recomputes the session counters, stamps the end time and
// finalizes the open timing record.
func (s *SessionService) closeSession(tx *gorm.DB, session *models.Session, now time.Time, reason string) error {
	if err := recomputeSessionCounters(tx, session.ID); err != nil {
		return err
	}
	if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
		Update("session_end_time", now).Error; err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := tx.First(session, "id = ?", session.ID).Error; err != nil {
		return err
	}

	var timing models.SessionTiming
	if err := tx.Where("session_id = ? AND ended_at IS NULL", session.ID).Limit(1).Find(&timing).Error; err != nil {
		return err
	}
	if timing.ID == "" {
		logger.Log.Warn("Closing session without an open timing record", logger.WithSessionID(session.ID))
		return nil
	}
	duration := elapsedSeconds(timing.StartedAt, now)
	return tx.Model(&timing).Updates(map[string]interface{}{
		"ended_at":         now,
		"duration_seconds": duration,
		"end_reason":       reason,
	}).Error
}
