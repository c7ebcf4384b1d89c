package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/model"
	"madamis/backend/internal/repository"
)

type SessionService struct {
	repo  *repository.SessionRepository
	clock clockwork.Clock
}

type CreateSessionInput struct {
	Title       string
	ScheduledAt *time.Time
}

func NewSessionService(repo *repository.SessionRepository, clock clockwork.Clock) *SessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionService{repo: repo, clock: clock}
}

func (s *SessionService) Create(ctx context.Context, ownerID string, input CreateSessionInput) (*model.Session, *apperrors.APIError) {
	if ownerID == "" {
		return nil, apperrors.Unauthorized("")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.BadRequest("invalid_title", "title is required")
	}

	now := s.clock.Now().UTC()
	session := model.Session{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &session); err != nil {
		log.Error().Err(err).Str("user_id", ownerID).Msg("failed to create session")
		return nil, apperrors.Internal("failed to create session")
	}

	log.Info().Str("session_id", session.ID).Str("user_id", ownerID).Msg("session created")
	return &session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, *apperrors.APIError) {
	session, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session")
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context, ownerID string, limit int) ([]model.Session, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sessions, err := s.repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to list sessions")
	}
	return sessions, nil
}
