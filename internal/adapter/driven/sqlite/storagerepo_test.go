package sqlite

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func TestStorageRepo_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, testKey)
	ctx := context.Background()

	err := repo.Save(ctx, map[string]string{"auth_token": "tok1", "token_expiry": "1772366400000"})
	require.NoError(t, err)

	got, err := repo.Load(ctx, "auth_token", "token_expiry")
	require.NoError(t, err)
	assert.Equal(t, "tok1", got["auth_token"])
	assert.Equal(t, "1772366400000", got["token_expiry"])
}

func TestStorageRepo_LoadMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, testKey)

	got, err := repo.Load(context.Background(), "auth_token")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorageRepo_SaveOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, map[string]string{"auth_token": "old"}))
	require.NoError(t, repo.Save(ctx, map[string]string{"auth_token": "new"}))

	got, err := repo.Load(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "new", got["auth_token"])
}

func TestStorageRepo_ValuesEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, map[string]string{"auth_token": "plaintext-token"}))

	var raw string
	err := db.Reader.QueryRowContext(ctx, `SELECT value FROM session_store WHERE key = ?`, "auth_token").Scan(&raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "plaintext-token")
}

func TestStorageRepo_RemoveClearsTogether(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, map[string]string{"auth_token": "tok", "token_expiry": "1"}))
	require.NoError(t, repo.Remove(ctx, "auth_token", "token_expiry"))

	got, err := repo.Load(ctx, "auth_token", "token_expiry")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorageRepo_RemoveNonexistent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, testKey)

	err := repo.Remove(context.Background(), "nonexistent")
	assert.NoError(t, err, "removing a nonexistent key should not error")
}

func TestStorageRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorageRepo(db, nil)
	ctx := context.Background()

	err := repo.Save(ctx, map[string]string{"auth_token": "tok"})
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Load(ctx, "auth_token")
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestStorageRepo_WrongKeyFailsToDecrypt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewStorageRepo(db, testKey).Save(ctx, map[string]string{"auth_token": "tok"}))

	other := NewStorageRepo(db, bytes.Repeat([]byte{0x07}, 32))
	_, err := other.Load(ctx, "auth_token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt session value")
}
