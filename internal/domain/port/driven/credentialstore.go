package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by Storage adapters that encrypt values at
// rest when SEARCHPANEL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set SEARCHPANEL_SECRET_KEY")

// Storage is the driven port for scalar key/value persistence of session data.
// Adapters must apply each Save and Remove atomically across all given keys so
// the token and its expiry are never observed half-written.
type Storage interface {
	// Load returns the stored values for the given keys. Missing keys are
	// omitted from the map rather than reported as errors.
	Load(ctx context.Context, keys ...string) (map[string]string, error)

	// Save stores or replaces every entry in a single write.
	Save(ctx context.Context, entries map[string]string) error

	// Remove deletes the given keys. Removing absent keys is not an error.
	Remove(ctx context.Context, keys ...string) error
}

// CredentialSource is the read-only view of the credential store consumed by
// the request pipeline. It never writes.
type CredentialSource interface {
	// Get returns the current credential, or nil when none is stored.
	Get(ctx context.Context) *model.Credential
}
