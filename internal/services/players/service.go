package players

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mcoot/clickergame/internal/broadcast"
	"github.com/mcoot/clickergame/internal/dependencies/clock"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/security"
	"github.com/mcoot/clickergame/internal/storage"
)

var tracer = otel.Tracer("github.com/mcoot/clickergame/internal/services/players")

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Username   *string
	ClickCount *int64
	Password   *string
}

// Service handles player administration
type Service struct {
	storage     storage.Storage
	hasher      *security.Hasher
	broadcaster broadcast.Broadcaster
	clock       clock.Clock
	logger      *slog.Logger
}

// New creates a new players Service
func New(
	storage storage.Storage,
	hasher *security.Hasher,
	broadcaster broadcast.Broadcaster,
	clock clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:     storage,
		hasher:      hasher,
		broadcaster: broadcaster,
		clock:       clock,
		logger:      logger.With(slog.String("component", "players")),
	}
}

// GetUser returns the user with the given id
func (s *Service) GetUser(ctx context.Context, rawID string) (*model.User, error) {
	id, err := model.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	return s.storage.GetUser(ctx, id)
}

// ListPlayers returns all players ranked by click count, highest first
func (s *Service) ListPlayers(ctx context.Context) ([]*model.User, error) {
	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// BroadcastRankings pushes the current rankings to every live connection
func (s *Service) BroadcastRankings(ctx context.Context) error {
	players, err := s.ListPlayers(ctx)
	if err != nil {
		return err
	}
	s.broadcaster.Publish(model.EventUpdateRankings, players)
	return nil
}

// AdminToggleBlock blocks an inactive or active user and unblocks a blocked
// user back to inactive
func (s *Service) AdminToggleBlock(ctx context.Context, rawID string) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "players.AdminToggleBlock")
	defer span.End()

	id, err := model.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}

	var previous model.Status
	user, err := s.storage.UpdateStatus(ctx, id, func(current model.Status) (model.Status, error) {
		previous = current
		return current.AdminToggleBlock(), nil
	}, s.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	span.SetAttributes(
		attribute.String("user.id", string(user.ID)),
		attribute.String("user.status", string(user.Status)),
	)

	s.logger.InfoContext(ctx, "player block toggled",
		slog.String("user_id", string(user.ID)),
		slog.String("from", string(previous)),
		slog.String("to", string(user.Status)))

	s.broadcaster.Publish(model.EventUpdatePlayerStatus, user)
	if err := s.BroadcastRankings(ctx); err != nil {
		// The toggle itself succeeded; the next rankings push will catch up
		s.logger.ErrorContext(ctx, "rankings broadcast failed", slog.Any("error", err))
	}
	return user, nil
}

// UpdatePlayer applies a partial update to a user
func (s *Service) UpdatePlayer(ctx context.Context, rawID string, input UpdateInput) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "players.UpdatePlayer")
	defer span.End()

	id, err := model.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && strings.TrimSpace(*input.Username) == "" {
		return nil, fmt.Errorf("%w: username must not be empty", model.ErrValidation)
	}
	if input.ClickCount != nil && *input.ClickCount < 0 {
		return nil, fmt.Errorf("%w: clickCount must not be negative", model.ErrValidation)
	}
	if input.Password != nil && *input.Password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", model.ErrValidation)
	}
	if input.Password != nil && len(*input.Password) > security.MaxPasswordLength {
		return nil, fmt.Errorf("%w: %s", model.ErrValidation, security.ErrPasswordTooLong)
	}

	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		user.Username = strings.TrimSpace(*input.Username)
	}
	if input.ClickCount != nil {
		user.ClickCount = *input.ClickCount
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.logger.InfoContext(ctx, "player updated", slog.String("user_id", string(user.ID)))
	s.broadcaster.Publish(model.EventUpdatePlayer, user)
	return user, nil
}

// DeletePlayer hard-deletes a user
func (s *Service) DeletePlayer(ctx context.Context, rawID string) error {
	ctx, span := tracer.Start(ctx, "players.DeletePlayer")
	defer span.End()

	id, err := model.ParseUserID(rawID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "player deleted", slog.String("user_id", string(id)))
	s.broadcaster.Publish(model.EventPlayerDeleted, model.PlayerDeletedPayload{ID: id})
	return nil
}
