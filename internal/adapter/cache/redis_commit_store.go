package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

// RedisCommitStore remembers which order consumed each external payment id,
// plus a short-lived status cache for read paths. Commit records use a long
// TTL: they only need to outlive any realistic proof replay window, the
// orders table stays authoritative.
type RedisCommitStore struct {
	rdb       *redis.Client
	commitTTL time.Duration
	statusTTL time.Duration
}

func NewRedisCommitStore(rdb *redis.Client, commitTTL, statusTTL time.Duration) *RedisCommitStore {
	return &RedisCommitStore{rdb: rdb, commitTTL: commitTTL, statusTTL: statusTTL}
}

func (s *RedisCommitStore) RememberCommit(ctx context.Context, externalPaymentID, orderID string) error {
	// SetNX: the first commit for a payment id wins and is never overwritten
	return s.rdb.SetNX(ctx, "commit:pay:"+externalPaymentID, orderID, s.commitTTL).Err()
}

func (s *RedisCommitStore) RecallCommit(ctx context.Context, externalPaymentID string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, "commit:pay:"+externalPaymentID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisCommitStore) SetStatus(ctx context.Context, orderID, status string) error {
	return s.rdb.Set(ctx, "order:status:"+orderID, status, s.statusTTL).Err()
}

func (s *RedisCommitStore) GetStatus(ctx context.Context, orderID string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, "order:status:"+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ usecase.CommitCache = (*RedisCommitStore)(nil)
