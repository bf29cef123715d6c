package redis

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

// newTestStorage returns a Storage backed by an in-process Redis server.
func newTestStorage(t *testing.T, opts ...Option) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client, err := Dial(context.Background(), srv.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewStorage(client, testKey, opts...), srv
}

func TestNewStorage_DefaultPrefix(t *testing.T) {
	s := NewStorage(nil, testKey)
	assert.Equal(t, "searchpanel:auth_token", s.key("auth_token"))

	s = NewStorage(nil, testKey, WithPrefix("p:"))
	assert.Equal(t, "p:auth_token", s.key("auth_token"))
}

func TestStorage_EmptyOperationsDoNotTouchClient(t *testing.T) {
	s := NewStorage(nil, testKey, WithPrefix("p:"))
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, s.Save(ctx, nil))
	require.NoError(t, s.Remove(ctx))
}

func TestStorage_RoundTrip(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, map[string]string{"auth_token": "tok", "token_expiry": "99"}))

	got, err := s.Load(ctx, "auth_token", "token_expiry", "absent")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"auth_token": "tok", "token_expiry": "99"}, got)

	require.NoError(t, s.Remove(ctx, "auth_token", "token_expiry"))
	got, err = s.Load(ctx, "auth_token", "token_expiry")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorage_ValuesSealedAtRest(t *testing.T) {
	s, srv := newTestStorage(t)

	require.NoError(t, s.Save(context.Background(), map[string]string{"auth_token": "plaintext-token"}))

	raw, err := srv.Get("searchpanel:auth_token")
	require.NoError(t, err)
	assert.NotContains(t, raw, "plaintext-token")
}

func TestStorage_ExpiresWithCredential(t *testing.T) {
	s, srv := newTestStorage(t, WithExpiryKey("token_expiry"))
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, s.Save(ctx, map[string]string{
		"auth_token":   "tok",
		"token_expiry": strconv.FormatInt(expiry.UnixMilli(), 10),
	}))

	for _, k := range []string{"searchpanel:auth_token", "searchpanel:token_expiry"} {
		ttl := srv.TTL(k)
		assert.Greater(t, ttl, 58*time.Minute, k)
		assert.LessOrEqual(t, ttl, time.Hour, k)
	}

	srv.FastForward(2 * time.Hour)

	got, err := s.Load(ctx, "auth_token", "token_expiry")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorage_NoExpiryEntryKeepsKeys(t *testing.T) {
	s, srv := newTestStorage(t, WithExpiryKey("token_expiry"))

	require.NoError(t, s.Save(context.Background(), map[string]string{"auth_token": "tok"}))

	assert.Zero(t, srv.TTL("searchpanel:auth_token"))
}

func TestStorage_WrongKeyFailsToDecrypt(t *testing.T) {
	s, srv := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, map[string]string{"auth_token": "tok"}))

	client, err := Dial(ctx, srv.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	other := NewStorage(client, bytes.Repeat([]byte{0x07}, 32))
	_, err = other.Load(ctx, "auth_token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt session value")
}

func TestStorage_NoKey(t *testing.T) {
	s := NewStorage(nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, s.Save(ctx, map[string]string{"auth_token": "tok"}), driven.ErrEncryptionKeyNotSet)
	_, err := s.Load(ctx, "auth_token")
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1:1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
