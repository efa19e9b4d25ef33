package persist

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Storage drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures a Backend.
type Options struct {
	Driver        string
	Dir           string // file driver
	SQLitePath    string // sqlite driver
	RedisAddr     string // redis driver
	RedisPassword string
	RedisDB       int
}

// Open creates the backend named by opts.Driver.
// The redis driver pings the server so misconfiguration surfaces at startup.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileBackend(opts.Dir)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", opts.RedisAddr, err)
		}
		return NewRedisBackend(client), nil
	case DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", opts.Driver)
	}
}
