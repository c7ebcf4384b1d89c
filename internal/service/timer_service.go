package service

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/repository"
	"madamis/backend/internal/timer"
)

// TimerStore persists timer documents with compare-and-swap on Version.
type TimerStore interface {
	Get(ctx context.Context, sessionID string) (*model.TimerDocument, error)
	Save(ctx context.Context, doc *model.TimerDocument, expectedVersion int64) error
}

type SessionLookup interface {
	GetByID(ctx context.Context, id string) (*model.Session, error)
}

type Publisher interface {
	Publish(ctx context.Context, snapshot realtime.Snapshot) error
}

type TimerService struct {
	sessions  SessionLookup
	store     TimerStore
	publisher Publisher
	clock     clockwork.Clock
	retries   int
}

type TimerState struct {
	Snapshot realtime.Snapshot `json:"state"`
	View     timer.View        `json:"view"`
}

func NewTimerService(
	sessions SessionLookup,
	store TimerStore,
	publisher Publisher,
	clock clockwork.Clock,
	retries int,
) *TimerService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if retries < 0 {
		retries = 0
	}
	return &TimerService{
		sessions:  sessions,
		store:     store,
		publisher: publisher,
		clock:     clock,
		retries:   retries,
	}
}

// State returns the stored document, or the default one when nothing has
// been written yet, together with its resolution at the server's now.
func (s *TimerService) State(ctx context.Context, sessionID string) (*TimerState, *apperrors.APIError) {
	if _, apiErr := s.session(ctx, sessionID); apiErr != nil {
		return nil, apiErr
	}

	doc, apiErr := s.load(ctx, sessionID)
	if apiErr != nil {
		return nil, apiErr
	}

	now := s.clock.Now().UTC()
	return &TimerState{
		Snapshot: realtime.NewSnapshot(*doc, now),
		View:     timer.Resolve(*doc, now),
	}, nil
}

// Authorize checks that callerID owns sessionID. Commands are authorized
// before their payload is looked at.
func (s *TimerService) Authorize(ctx context.Context, sessionID, callerID string) *apperrors.APIError {
	if callerID == "" {
		return apperrors.Unauthorized("")
	}
	session, apiErr := s.session(ctx, sessionID)
	if apiErr != nil {
		return apiErr
	}
	if session.OwnerID != callerID {
		log.Warn().
			Str("session_id", sessionID).
			Str("user_id", callerID).
			Msg("timer command rejected for non-owner")
		return apperrors.Forbidden("only the session owner can control the timer")
	}
	return nil
}

// ApplyCommand authorizes the caller as the session owner, applies the command
// to the latest document and writes it back. Lost races re-read and re-apply.
func (s *TimerService) ApplyCommand(
	ctx context.Context,
	sessionID string,
	callerID string,
	req timer.Request,
) (*realtime.Snapshot, *apperrors.APIError) {
	if apiErr := s.Authorize(ctx, sessionID, callerID); apiErr != nil {
		return nil, apiErr
	}
	if req.Command == nil {
		return nil, apperrors.BadRequest("invalid_action", "action is required")
	}

	for attempt := 0; ; attempt++ {
		current, apiErr := s.load(ctx, sessionID)
		if apiErr != nil {
			return nil, apiErr
		}

		now := s.clock.Now().UTC()
		if apiErr := s.ensureVersion(req.BaseVersion, current); apiErr != nil {
			return nil, apiErr
		}

		next, changed := timer.Apply(*current, req.Command, now)
		if !changed {
			snapshot := realtime.NewSnapshot(*current, now)
			return &snapshot, nil
		}
		next.SessionID = sessionID
		next.Version = current.Version + 1
		next.UpdatedAt = now

		err := s.store.Save(ctx, &next, current.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			if attempt < s.retries {
				log.Debug().
					Str("session_id", sessionID).
					Int("attempt", attempt+1).
					Msg("timer document changed concurrently, retrying")
				continue
			}
			latest, loadErr := s.load(ctx, sessionID)
			if loadErr != nil {
				return nil, loadErr
			}
			return nil, s.conflict(latest)
		}
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("failed to save timer document")
			return nil, apperrors.Internal("failed to save timer")
		}

		snapshot := realtime.NewSnapshot(next, now)
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, snapshot); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("failed to publish timer snapshot")
			}
		}

		log.Info().
			Str("session_id", sessionID).
			Str("user_id", callerID).
			Str("action", string(req.Command.Action())).
			Str("status", next.Status).
			Int64("version", next.Version).
			Msg("timer command applied")
		return &snapshot, nil
	}
}

func (s *TimerService) session(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to look up session")
		return nil, apperrors.Internal("failed to get session")
	}
	return session, nil
}

func (s *TimerService) load(ctx context.Context, sessionID string) (*model.TimerDocument, *apperrors.APIError) {
	doc, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		fresh := model.NewTimerDocument(sessionID)
		return &fresh, nil
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load timer document")
		return nil, apperrors.Internal("failed to get timer")
	}
	return doc, nil
}

func (s *TimerService) ensureVersion(baseVersion int64, doc *model.TimerDocument) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == doc.Version {
		return nil
	}
	return s.conflict(doc)
}

func (s *TimerService) conflict(doc *model.TimerDocument) *apperrors.APIError {
	return apperrors.Conflict("state_conflict", "timer changed on another device", map[string]interface{}{
		"state": realtime.NewSnapshot(*doc, s.clock.Now().UTC()),
	})
}
