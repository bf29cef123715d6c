package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/searchpanel/internal/adapter/driven/sealed"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Storage = (*StorageRepo)(nil)

// StorageRepo is the SQLite implementation of the Storage port.
// Values are encrypted with AES-256-GCM before write and decrypted after read.
type StorageRepo struct {
	db     *DB
	box    *sealed.Box
	boxErr error // set when key is nil or unusable; Load and Save return it.
}

// NewStorageRepo creates a new StorageRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable storage (Load and Save will return driven.ErrEncryptionKeyNotSet).
func NewStorageRepo(db *DB, key []byte) *StorageRepo {
	box, err := sealed.New(key)
	return &StorageRepo{db: db, box: box, boxErr: err}
}

// Load returns the decrypted values for keys. Keys with no row are omitted.
func (r *StorageRepo) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	if r.boxErr != nil {
		return nil, r.boxErr
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := `SELECT key, value FROM session_store WHERE key IN (` + placeholders + `)`
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load session values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, encrypted string
		if err := rows.Scan(&key, &encrypted); err != nil {
			return nil, fmt.Errorf("scan session value: %w", err)
		}
		plaintext, err := r.box.Open(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt session value %q: %w", key, err)
		}
		out[key] = plaintext
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session values: %w", err)
	}

	return out, nil
}

// Save stores or replaces every entry inside one transaction.
func (r *StorageRepo) Save(ctx context.Context, entries map[string]string) error {
	if r.boxErr != nil {
		return r.boxErr
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT OR REPLACE INTO session_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	for key, value := range entries {
		encrypted, err := r.box.Seal(value)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, key, encrypted); err != nil {
			return fmt.Errorf("save session value %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Remove deletes keys inside one transaction.
func (r *StorageRepo) Remove(ctx context.Context, keys ...string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `DELETE FROM session_store WHERE key = ?`
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("remove session value %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}
	return nil
}
