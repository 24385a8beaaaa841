package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskbot/internal/breaker"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dialog:session:"

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TTL          time.Duration
}

func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		TTL:          72 * time.Hour,
	}
}

// RedisStore keeps each session as a JSON document under dialog:session:<user>
// with a sliding TTL.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *breaker.CircuitBreaker
	metrics *Metrics
}

func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = DefaultRedisConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	cb := breaker.DefaultConfig("sessions")
	cb.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, redis.Nil)
	}

	return &RedisStore{
		client:  rdb,
		ttl:     config.TTL,
		breaker: breaker.New(cb),
		metrics: NewMetrics(),
	}
}

func key(userID string) string {
	return keyPrefix + userID
}

func (r *RedisStore) unavailable(op string, err error) error {
	r.metrics.RecordError()
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var data string
	err := r.breaker.Execute(func() error {
		var err error
		data, err = r.client.Get(ctx, key(userID)).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		r.metrics.RecordMiss()
		return New(userID), nil
	}
	if err != nil {
		return nil, r.unavailable("get", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		// a document we cannot read is treated as no dialog in flight
		r.metrics.RecordMiss()
		return New(userID), nil
	}
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	s.UserID = userID
	r.metrics.RecordHit()
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	if s.IsIdle() {
		return r.Clear(ctx, s.UserID)
	}

	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = r.breaker.Execute(func() error {
		return r.client.Set(ctx, key(s.UserID), data, r.ttl).Err()
	})
	if err != nil {
		return r.unavailable("put", err)
	}
	r.metrics.RecordPut()
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.breaker.Execute(func() error {
		return r.client.Del(ctx, key(userID)).Err()
	})
	if err != nil {
		return r.unavailable("clear", err)
	}
	r.metrics.RecordClear()
	return nil
}

func (r *RedisStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Stats() map[string]interface{} {
	poolStats := r.client.PoolStats()
	m := r.metrics.GetStats()

	return map[string]interface{}{
		"backend":       "redis",
		"hits":          m.Hits,
		"misses":        m.Misses,
		"errors":        m.Errors,
		"puts":          m.Puts,
		"clears":        m.Clears,
		"hit_rate":      r.metrics.HitRate(),
		"breaker":       r.breaker.GetStats(),
		"pool_hits":     poolStats.Hits,
		"pool_misses":   poolStats.Misses,
		"pool_timeouts": poolStats.Timeouts,
		"pool_total":    poolStats.TotalConns,
		"pool_idle":     poolStats.IdleConns,
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
