package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PingFunc reports whether a backing service is reachable.
type PingFunc func(ctx context.Context) error

// PingDatabase checks the pool behind db.
func PingDatabase(db *gorm.DB) PingFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("database handle: %w", err)
		}
		return sqlDB.PingContext(ctx)
	}
}

// PingRedis issues PING on the event client.
func PingRedis(client *redis.Client) PingFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}
}

// PingNATS reports the connection state; nats.go reconnects on its own so
// anything other than CONNECTED is surfaced as unreachable.
func PingNATS(conn *nats.Conn) PingFunc {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("nats not configured")
		}
		if status := conn.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats connection %s", status)
		}
		return nil
	}
}
