package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
)

// hashClient is the subset of *redis.Client the memo uses.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisTeacherMemo remembers teachers in one redis hash keyed by teacher id.
type RedisTeacherMemo struct {
	client hashClient
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTeacherMemo constructs a redis backed memo. A zero ttl keeps entries forever.
func NewRedisTeacherMemo(client hashClient, key string, ttl time.Duration, logger *zap.Logger) *RedisTeacherMemo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTeacherMemo{client: client, key: key, ttl: ttl, logger: logger}
}

// Load returns the remembered teachers ordered by id. Undecodable entries are skipped.
func (r *RedisTeacherMemo) Load(ctx context.Context) ([]models.Teacher, error) {
	if r.client == nil {
		return nil, nil
	}
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", r.key, err)
	}
	teachers := make([]models.Teacher, 0, len(raw))
	for field, payload := range raw {
		var t models.Teacher
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			r.logger.Warn("skipping undecodable teacher", zap.String("field", field), zap.Error(err))
			continue
		}
		teachers = append(teachers, t)
	}
	sortTeachers(teachers)
	return teachers, nil
}

// Remember stores teacher under its id and refreshes the hash expiry.
func (r *RedisTeacherMemo) Remember(ctx context.Context, teacher models.Teacher) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(teacher)
	if err != nil {
		return fmt.Errorf("marshal teacher %d: %w", teacher.ID, err)
	}
	field := strconv.FormatInt(teacher.ID, 10)
	if err := r.client.HSet(ctx, r.key, field, payload).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", r.key, err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire %s: %w", r.key, err)
		}
	}
	return nil
}

// Forget deletes the hash.
func (r *RedisTeacherMemo) Forget(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key, err)
	}
	return nil
}
