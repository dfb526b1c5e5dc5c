package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mcoot/clickergame/internal/broadcast"
	"github.com/mcoot/clickergame/internal/dependencies/clock"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/observability"
	"github.com/mcoot/clickergame/internal/services/players"
	"github.com/mcoot/clickergame/internal/storage"
)

var tracer = otel.Tracer("github.com/mcoot/clickergame/internal/services/live")

// Service handles events arriving on live connections. Failures are reported
// to the originating connection only, as targeted error events.
type Service struct {
	storage     storage.Storage
	players     *players.Service
	broadcaster broadcast.Broadcaster
	clock       clock.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a new live Service. metrics may be nil.
func New(
	storage storage.Storage,
	players *players.Service,
	broadcaster broadcast.Broadcaster,
	clock clock.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		storage:     storage,
		players:     players,
		broadcaster: broadcaster,
		clock:       clock,
		logger:      logger.With(slog.String("component", "live")),
		metrics:     metrics,
	}
}

// Connected sends the current rankings to a newly opened connection
func (s *Service) Connected(ctx context.Context, connID string) {
	rankings, err := s.players.ListPlayers(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "rankings snapshot failed",
			slog.String("connection_id", connID),
			slog.Any("error", err))
		s.sendError(connID, model.LiveErrInternal, "could not load rankings")
		return
	}
	s.broadcaster.PublishTo(connID, model.EventUpdateRankings, rankings)
}

// Click adds one click for an active user. The clicking connection receives
// the new count and every connection receives fresh rankings.
func (s *Service) Click(ctx context.Context, connID, rawUserID string) error {
	ctx, span := tracer.Start(ctx, "live.Click")
	defer span.End()
	span.SetAttributes(attribute.String("live.connection_id", connID))

	id, err := model.ParseUserID(rawUserID)
	if err != nil {
		s.metrics.Click("rejected")
		s.sendError(connID, model.LiveErrInvalidID, "invalid user id")
		return err
	}

	user, err := s.storage.IncrementClickCount(ctx, id, s.clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			s.metrics.Click("rejected")
			s.sendError(connID, model.LiveErrUserNotFound, "user not found")
		case errors.Is(err, model.ErrUserNotActive):
			s.metrics.Click("rejected")
			s.sendError(connID, model.LiveErrUserNotActive, "user is not active")
		default:
			s.metrics.Click("error")
			span.RecordError(err)
			span.SetStatus(codes.Error, "increment failed")
			s.logger.ErrorContext(ctx, "click failed",
				slog.String("user_id", string(id)),
				slog.Any("error", err))
			s.sendError(connID, model.LiveErrInternal, "could not register click")
		}
		return err
	}

	s.metrics.Click("ok")
	span.SetAttributes(attribute.Int64("user.click_count", user.ClickCount))

	s.broadcaster.PublishTo(connID, model.EventUpdateClickCount, model.ClickCountPayload{
		UserID:        user.ID,
		NewClickCount: user.ClickCount,
		Status:        user.Status,
	})

	if err := s.players.BroadcastRankings(ctx); err != nil {
		s.logger.ErrorContext(ctx, "rankings broadcast failed", slog.Any("error", err))
	}
	return nil
}

// ToggleBlock flips a player between active and blocked. Unlike the admin
// toggle it never yields inactive and does not re-broadcast rankings.
func (s *Service) ToggleBlock(ctx context.Context, connID, rawPlayerID string) error {
	ctx, span := tracer.Start(ctx, "live.ToggleBlock")
	defer span.End()

	id, err := model.ParseUserID(rawPlayerID)
	if err != nil {
		s.sendError(connID, model.LiveErrInvalidID, "invalid player id")
		return err
	}

	user, err := s.storage.UpdateStatus(ctx, id, func(current model.Status) (model.Status, error) {
		return current.LiveToggleBlock(), nil
	}, s.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.sendError(connID, model.LiveErrUserNotFound, "player not found")
			return err
		}
		s.logger.ErrorContext(ctx, "toggle block failed",
			slog.String("user_id", string(id)),
			slog.Any("error", err))
		s.sendError(connID, model.LiveErrInternal, "could not update player")
		return fmt.Errorf("update status: %w", err)
	}

	s.logger.InfoContext(ctx, "player block toggled from live connection",
		slog.String("user_id", string(user.ID)),
		slog.String("connection_id", connID),
		slog.String("status", string(user.Status)))

	s.broadcaster.Publish(model.EventUpdatePlayerStatus, user)
	return nil
}

func (s *Service) sendError(connID, code, message string) {
	s.broadcaster.PublishTo(connID, model.EventError, model.ErrorPayload{
		Code:    code,
		Message: message,
	})
}
