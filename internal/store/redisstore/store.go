package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "intervention:sweep:lock"

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// AcquireSweepLock takes the cross-instance reaper lock so overlapping cron
// fires don't double-sweep. Returns false when another sweep holds it.
func (s *Store) AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, sweepLockKey, time.Now().Unix(), ttl).Result()
}

func (s *Store) ReleaseSweepLock(ctx context.Context) error {
	return s.rdb.Del(ctx, sweepLockKey).Err()
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// GetUnreadCount reads the cached unread aggregate; the second return is
// false on a miss.
func (s *Store) GetUnreadCount(ctx context.Context, userID string) (int64, bool, error) {
	n, err := s.rdb.Get(ctx, unreadKey(userID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *Store) SetUnreadCount(ctx context.Context, userID string, n int64, ttl time.Duration) error {
	return s.rdb.Set(ctx, unreadKey(userID), n, ttl).Err()
}

func (s *Store) InvalidateUnreadCount(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, unreadKey(userID)).Err()
}
