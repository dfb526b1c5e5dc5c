package redis

import (
	"fmt"

	"github.com/mcoot/clickergame/internal/model"
)

// Key prefix for all clicker data
const keyPrefix = "clicker"

// userKey returns the Redis key for a User record
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// rankingsKey returns the Redis key for the ZSET of player ids scored by click count
func rankingsKey() string {
	return fmt.Sprintf("%s:rankings", keyPrefix)
}
