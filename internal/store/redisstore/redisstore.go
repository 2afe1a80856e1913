// Package redisstore keeps license records in Redis so several processes
// can share persistent licenses.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/store"
)

const (
	defaultKeyPrefix = "cdmbridge:"
	defaultTimeout   = 5 * time.Second
)

// Config for a Redis-backed store.
type Config struct {
	// Addr like "localhost:6379". Ignored when Client is set.
	Addr string
	DB   int
	// Client reuses an existing connection pool.
	Client *redis.Client
	// KeyPrefix for all keys. Defaults to "cdmbridge:".
	KeyPrefix string
	// Timeout bounds each command. Defaults to five seconds.
	Timeout time.Duration
}

// Store is a domain.LicenseStore backed by Redis.
type Store struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// New connects to Redis and checks the connection.
func New(cfg Config) (*Store, error) {
	cl := cfg.Client
	if cl == nil {
		addr := cfg.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		cl = redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
	}
	s := &Store{client: cl, prefix: cfg.KeyPrefix, timeout: cfg.Timeout}
	if s.prefix == "" {
		s.prefix = defaultKeyPrefix
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	ctx, cancel := s.ctx()
	defer cancel()
	if err := cl.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return s, nil
}

func (s *Store) recordKey(sessionID string) string { return s.prefix + "license:" + sessionID }
func (s *Store) indexKey() string                  { return s.prefix + "licenses" }

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) PutLicense(sessionID string, record []byte) error {
	if err := store.ValidateID(sessionID); err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.recordKey(sessionID), record, 0)
		p.SAdd(ctx, s.indexKey(), sessionID)
		return nil
	})
	return err
}

func (s *Store) GetLicense(sessionID string) ([]byte, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	b, err := s.client.Get(ctx, s.recordKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) DeleteLicense(sessionID string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.recordKey(sessionID))
		p.SRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	return err
}

// ListLicenses returns the stored session ids in lexical order.
func (s *Store) ListLicenses() ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

var _ domain.LicenseStore = (*Store)(nil)
