package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/storage"
)

const userColumns = `id, username, password_hash, role, click_count, status, created_at, updated_at`

// Observer times a logical DB operation. Satisfied by *observability.Metrics.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool *pgxpool.Pool
	obs  Observer
}

// New creates a storage over an open pool. obs may be nil.
func New(pool *pgxpool.Pool, obs Observer) *Storage {
	return &Storage{pool: pool, obs: obs}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close releases the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks a pooled connection is alive
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) observe(op string, fn func() error) error {
	if s.obs == nil {
		return fn()
	}
	return s.obs.ObserveDB(op, fn)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.ClickCount,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	return s.observe("users.save", func() error {
		_, err := s.pool.Exec(
			ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET
			     username = EXCLUDED.username,
			     password_hash = EXCLUDED.password_hash,
			     click_count = EXCLUDED.click_count,
			     status = EXCLUDED.status,
			     updated_at = EXCLUDED.updated_at`,
			string(user.ID),
			user.Username,
			user.PasswordHash,
			string(user.Role),
			user.ClickCount,
			string(user.Status),
			user.CreatedAt,
			user.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return model.ErrUsernameExists
		}
		return err
	})
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user *model.User
	err := s.observe("users.get", func() error {
		var err error
		user, err = scanUser(s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, string(id)))
		return err
	})
	return user, err
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user *model.User
	err := s.observe("users.get_by_username", func() error {
		var err error
		user, err = scanUser(s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		return err
	})
	return user, err
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	return s.observe("users.delete", func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, string(id))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrUserNotFound
		}
		return nil
	})
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.User, error) {
	players := []*model.User{}
	err := s.observe("users.list_players", func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users
			 WHERE role = $1
			 ORDER BY click_count DESC, username ASC`,
			string(model.RolePlayer))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			players = append(players, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (s *Storage) IncrementClickCount(ctx context.Context, id model.UserID, at time.Time) (*model.User, error) {
	var user *model.User
	err := s.observe("users.increment_clicks", func() error {
		var err error
		user, err = scanUser(s.pool.QueryRow(ctx,
			`UPDATE users SET click_count = click_count + 1, updated_at = $2
			 WHERE id = $1 AND status = $3
			 RETURNING `+userColumns,
			string(id), at, string(model.StatusActive)))
		if !errors.Is(err, model.ErrUserNotFound) {
			return err
		}

		// No row updated: either missing or not active
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return model.ErrUserNotActive
		}
		return model.ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Storage) UpdateStatus(ctx context.Context, id model.UserID, transition storage.StatusTransition, at time.Time) (*model.User, error) {
	var user *model.User
	err := s.observe("users.update_status", func() error {
		return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			current, err := scanUser(tx.QueryRow(ctx,
				`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, string(id)))
			if err != nil {
				return err
			}
			next, err := transition(current.Status)
			if err != nil {
				return err
			}
			user, err = scanUser(tx.QueryRow(ctx,
				`UPDATE users SET status = $2, updated_at = $3
				 WHERE id = $1
				 RETURNING `+userColumns,
				string(id), string(next), at))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
