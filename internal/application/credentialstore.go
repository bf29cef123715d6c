package application

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

// Persisted layout: the token and its absolute expiry in epoch milliseconds.
const (
	StorageKeyToken  = "auth_token"
	StorageKeyExpiry = "token_expiry"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialSource = (*CredentialStore)(nil)

// CredentialStore holds the current credential in memory and mirrors it to an
// optional persistent driven.Storage. It never returns errors: storage
// failures are logged and the in-memory copy stays authoritative for the rest
// of the process.
type CredentialStore struct {
	mu      sync.Mutex
	storage driven.Storage // nil means memory only.
	cred    *model.Credential
	loaded  bool
	now     func() time.Time
	logger  *slog.Logger
}

// NewCredentialStore creates a CredentialStore. storage may be nil when no
// persistent store is available; clock may be nil to use time.Now.
func NewCredentialStore(storage driven.Storage, clock func() time.Time, logger *slog.Logger) *CredentialStore {
	if clock == nil {
		clock = time.Now
	}
	return &CredentialStore{
		storage: storage,
		now:     clock,
		logger:  logger,
	}
}

// Persistent reports whether credentials outlive the process.
func (s *CredentialStore) Persistent() bool {
	return s.storage != nil
}

// Get returns a copy of the current credential, or nil when none is stored.
// The first call hydrates from persistent storage.
func (s *CredentialStore) Get(ctx context.Context) *model.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.cred = s.hydrate(ctx)
		s.loaded = true
	}
	if s.cred == nil {
		return nil
	}
	c := *s.cred
	return &c
}

// Set stores token with an expiry of now+ttl and returns the written credential.
func (s *CredentialStore) Set(ctx context.Context, token string, ttl time.Duration) model.Credential {
	cred := model.NewCredential(token, ttl, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = &cred
	s.loaded = true

	if s.storage != nil {
		err := s.storage.Save(ctx, map[string]string{
			StorageKeyToken:  cred.Token,
			StorageKeyExpiry: strconv.FormatInt(cred.ExpiresAt.UnixMilli(), 10),
		})
		if err != nil {
			metrics.StorageFallbacksTotal.WithLabelValues("save").Inc()
			s.logger.Warn("credential not persisted, keeping it in memory", "error", err)
		}
	}

	return cred
}

// Clear removes the credential from memory and storage together.
func (s *CredentialStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	s.loaded = true

	if s.storage != nil {
		if err := s.storage.Remove(ctx, StorageKeyToken, StorageKeyExpiry); err != nil {
			metrics.StorageFallbacksTotal.WithLabelValues("remove").Inc()
			s.logger.Warn("persisted credential not cleared", "error", err)
		}
	}
}

// hydrate reads the persisted entries. Persistence keeps only the token and
// expiry, so IssuedAt is unknown after a reload and left zero.
func (s *CredentialStore) hydrate(ctx context.Context) *model.Credential {
	if s.storage == nil {
		return nil
	}

	values, err := s.storage.Load(ctx, StorageKeyToken, StorageKeyExpiry)
	if err != nil {
		metrics.StorageFallbacksTotal.WithLabelValues("load").Inc()
		s.logger.Warn("persisted credential unreadable, starting without one", "error", err)
		return nil
	}

	token := values[StorageKeyToken]
	rawExpiry := values[StorageKeyExpiry]
	if token == "" || rawExpiry == "" {
		return nil
	}

	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		s.logger.Warn("persisted credential expiry malformed, ignoring it", "error", err)
		return nil
	}

	return &model.Credential{
		Token:     token,
		ExpiresAt: time.UnixMilli(ms),
	}
}
