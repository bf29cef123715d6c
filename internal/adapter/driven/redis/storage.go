// Package redis implements the Storage port on Redis so several dashboard
// rendering hosts can share one session.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/searchpanel/internal/adapter/driven/sealed"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Storage = (*Storage)(nil)

// Storage keeps AES-256-GCM sealed session values under a common key prefix.
type Storage struct {
	client    *goredis.Client
	prefix    string
	expiryKey string
	box       *sealed.Box
	boxErr    error
}

// Option configures a Storage.
type Option func(*Storage)

// WithPrefix sets the key prefix. The default is "searchpanel:".
func WithPrefix(prefix string) Option {
	return func(s *Storage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithExpiryKey names the entry holding the credential expiry in epoch
// milliseconds. When a Save carries it, every saved key expires at that
// instant so an abandoned credential does not outlive its token.
func WithExpiryKey(key string) Option {
	return func(s *Storage) { s.expiryKey = key }
}

// NewStorage creates a Redis-backed Storage. key must be 32 bytes for
// AES-256-GCM, or nil to disable storage (Load and Save will return
// driven.ErrEncryptionKeyNotSet).
func NewStorage(client *goredis.Client, key []byte, opts ...Option) *Storage {
	box, err := sealed.New(key)
	s := &Storage{client: client, prefix: "searchpanel:", box: box, boxErr: err}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Storage) key(k string) string {
	return s.prefix + k
}

// Load fetches keys with a single MGET and opens each value.
func (s *Storage) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	if s.boxErr != nil {
		return nil, s.boxErr
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		plaintext, err := s.box.Open(str)
		if err != nil {
			return nil, fmt.Errorf("decrypt session value %q: %w", keys[i], err)
		}
		out[keys[i]] = plaintext
	}
	return out, nil
}

// Save seals and writes all entries in one MULTI/EXEC.
func (s *Storage) Save(ctx context.Context, entries map[string]string) error {
	if s.boxErr != nil {
		return s.boxErr
	}
	if len(entries) == 0 {
		return nil
	}

	args := goredis.SetArgs{ExpireAt: s.expireAt(entries)}
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range entries {
			sealedValue, err := s.box.Seal(v)
			if err != nil {
				return err
			}
			pipe.SetArgs(ctx, s.key(k), sealedValue, args)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// expireAt returns the instant carried by the expiry entry, or the zero time
// when entries has none.
func (s *Storage) expireAt(entries map[string]string) time.Time {
	if s.expiryKey == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(entries[s.expiryKey], 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Remove deletes keys with a single DEL.
func (s *Storage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
