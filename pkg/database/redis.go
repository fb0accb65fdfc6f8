package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
)

// InitRedis initializes the Redis client used for balance-update notifications.
// Returns nil when addr is empty or the server is unreachable; the application
// runs without notifications in that case.
func InitRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}
