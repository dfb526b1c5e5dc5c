package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mcoot/clickergame/internal/broadcast"
	"github.com/mcoot/clickergame/internal/dependencies/clock"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/security"
	"github.com/mcoot/clickergame/internal/storage"
)

var tracer = otel.Tracer("github.com/mcoot/clickergame/internal/services/auth")

// LoginResult is returned by a successful login
type LoginResult struct {
	Token string
	User  *model.User
}

// Service handles registration, login and logout
type Service struct {
	storage     storage.Storage
	hasher      *security.Hasher
	tokens      *TokenManager
	broadcaster broadcast.Broadcaster
	clock       clock.Clock
	logger      *slog.Logger
}

// Config holds configuration for the auth service
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret: "dev-secret-change-me",
		TokenTTL:  time.Hour,
	}
}

// New creates a new auth Service
func New(
	storage storage.Storage,
	broadcaster broadcast.Broadcaster,
	clock clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	return &Service{
		storage:     storage,
		hasher:      security.NewHasher(cfg.BcryptCost),
		tokens:      NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, clock),
		broadcaster: broadcaster,
		clock:       clock,
		logger:      logger.With(slog.String("component", "auth")),
	}
}

// Tokens returns the token manager used to sign and verify tokens
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register creates a player account and announces it to live connections
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	user, err := s.createUser(ctx, username, password, model.RolePlayer)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "player registered",
		slog.String("user_id", string(user.ID)),
		slog.String("username", user.Username))
	s.broadcaster.Publish(model.EventPlayerCreated, user)
	return user, nil
}

// RegisterAdmin creates an administrator account. Nothing is broadcast.
func (s *Service) RegisterAdmin(ctx context.Context, username, password string) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "auth.RegisterAdmin")
	defer span.End()

	user, err := s.createUser(ctx, username, password, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "admin registered",
		slog.String("user_id", string(user.ID)),
		slog.String("username", user.Username))
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// It reports whether an account was created. An empty username is a no-op.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}

	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			return false, fmt.Errorf("bootstrap admin %q: %w", username, model.ErrUsernameExists)
		}
		return false, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return false, err
	}

	if _, err := s.RegisterAdmin(ctx, username, password); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) createUser(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}
	if len(password) > security.MaxPasswordLength {
		return nil, fmt.Errorf("%w: %s", model.ErrValidation, security.ErrPasswordTooLong)
	}

	// Check if username exists
	_, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, model.ErrUsernameExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.NewUser(username, hash, role, s.clock.Now())
	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login verifies credentials, marks the user active and issues a token.
// A blocked user is rejected before the password is checked.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}

	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", string(user.ID)))

	if user.Status == model.StatusBlocked {
		s.logger.WarnContext(ctx, "blocked user login rejected", slog.String("user_id", string(user.ID)))
		return nil, model.ErrUserBlocked
	}

	if err := s.hasher.Check(user.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("check password: %w", err)
	}

	// Re-checked under the store's lock in case a block landed meanwhile
	user, err = s.storage.UpdateStatus(ctx, user.ID, func(current model.Status) (model.Status, error) {
		if current == model.StatusBlocked {
			return "", model.ErrUserBlocked
		}
		return model.StatusActive, nil
	}, s.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrUserBlocked) || errors.Is(err, model.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", string(user.ID)))
	s.broadcaster.Publish(model.EventUpdatePlayerStatus, user)

	return &LoginResult{Token: token, User: user}, nil
}

// Logout marks the token's user inactive
func (s *Service) Logout(ctx context.Context, token string) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer span.End()

	if token == "" {
		return nil, model.ErrMissingToken
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.UpdateStatus(ctx, claims.UserID, func(model.Status) (model.Status, error) {
		return model.StatusInactive, nil
	}, s.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", string(user.ID)))
	s.broadcaster.Publish(model.EventUpdatePlayerStatus, user)

	return user, nil
}

// Authenticate verifies a bearer token and loads the user behind it.
// A token whose user no longer exists is invalid.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrMissingToken
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
