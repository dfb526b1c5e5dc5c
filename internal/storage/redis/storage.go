package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/storage"
)

// errRetriesExhausted is returned when an optimistic transaction keeps conflicting
var errRetriesExhausted = errors.New("redis transaction retries exhausted")

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection is alive
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// userRecord is the stored form of a user. Unlike model.User it carries the
// password hash.
type userRecord struct {
	ID           model.UserID `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"passwordHash"`
	Role         model.Role   `json:"role"`
	ClickCount   int64        `json:"clickCount"`
	Status       model.Status `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func toRecord(u *model.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		ClickCount:   u.ClickCount,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toUser() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		ClickCount:   r.ClickCount,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func decodeUser(data []byte) (*model.User, error) {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

func getUser(ctx context.Context, c redis.Cmdable, id model.UserID) (*model.User, error) {
	data, err := c.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return decodeUser(data)
}

// withRetry runs an optimistic WATCH transaction, retrying on conflicts
func (s *Storage) withRetry(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	retries := s.cfg.MaxTxRetries
	if retries <= 0 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errRetriesExhausted
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(toRecord(user))
	if err != nil {
		return err
	}

	idxKey := usernameIndexKey(user.Username)

	return s.withRetry(ctx, func(tx *redis.Tx) error {
		owner, err := tx.Get(ctx, idxKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && owner != string(user.ID) {
			return model.ErrUsernameExists
		}

		var previousUsername string
		existing, err := getUser(ctx, tx, user.ID)
		switch {
		case err == nil:
			previousUsername = existing.Username
		case !errors.Is(err, model.ErrUserNotFound):
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), data, 0)
			pipe.Set(ctx, idxKey, string(user.ID), 0)
			if previousUsername != "" && previousUsername != user.Username {
				pipe.Del(ctx, usernameIndexKey(previousUsername))
			}
			if user.Role == model.RolePlayer {
				pipe.ZAdd(ctx, rankingsKey(), redis.Z{Score: float64(user.ClickCount), Member: string(user.ID)})
			}
			return nil
		})
		return err
	}, userKey(user.ID), idxKey)
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return getUser(ctx, s.client, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	// Look up user ID from username index
	userID, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(userID))
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	key := userKey(id)
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		user, err := getUser(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, usernameIndexKey(user.Username))
			pipe.ZRem(ctx, rankingsKey(), string(id))
			return nil
		})
		return err
	}, key)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.User, error) {
	ids, err := s.client.ZRevRange(ctx, rankingsKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(model.UserID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.User, 0, len(values))
	for i, v := range values {
		// Deleted between ZREVRANGE and MGET
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T for %s", v, keys[i])
		}
		user, err := decodeUser([]byte(str))
		if err != nil {
			return nil, err
		}
		players = append(players, user)
	}

	// ZREVRANGE breaks score ties by member id; rank ties by username instead.
	// The stable sort also covers a record changing between the two reads.
	sort.Slice(players, func(i, j int) bool {
		return players[i].Username < players[j].Username
	})
	model.SortByClickCount(players)
	return players, nil
}

func (s *Storage) IncrementClickCount(ctx context.Context, id model.UserID, at time.Time) (*model.User, error) {
	key := userKey(id)
	var updated *model.User

	err := s.withRetry(ctx, func(tx *redis.Tx) error {
		user, err := getUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if !user.IsActive() {
			return model.ErrUserNotActive
		}

		user.ClickCount++
		user.UpdatedAt = at
		data, err := json.Marshal(toRecord(user))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if user.Role == model.RolePlayer {
				pipe.ZAdd(ctx, rankingsKey(), redis.Z{Score: float64(user.ClickCount), Member: string(id)})
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = user
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Storage) UpdateStatus(ctx context.Context, id model.UserID, transition storage.StatusTransition, at time.Time) (*model.User, error) {
	key := userKey(id)
	var updated *model.User

	err := s.withRetry(ctx, func(tx *redis.Tx) error {
		user, err := getUser(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := transition(user.Status)
		if err != nil {
			return err
		}

		user.Status = next
		user.UpdatedAt = at
		data, err := json.Marshal(toRecord(user))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = user
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
