package application

import (
	"context"
	"strconv"
)

// Cache names. Each one is an independent keyspace.
const (
	CacheUser  = "user"  // key: decimal user id
	CacheEmail = "email" // key: email address
)

// Cache is a named key/value store for user read models. Implementations must
// be safe for concurrent use. A miss is reported with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, name, key string) (dto *UserDTO, ok bool, err error)
	Put(ctx context.Context, name, key string, dto *UserDTO) error
	Evict(ctx context.Context, name, key string) error
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

// PasswordHasher turns a plaintext password into a one-way hash.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}
