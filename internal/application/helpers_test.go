package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable clock shared by the store and the manager.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: fixedNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- Mock AuthAPI ---

type mockAuthAPI struct {
	login    func(ctx context.Context, in model.LoginInput) model.Response[model.AuthResult]
	register func(ctx context.Context, in model.RegisterInput) model.Response[model.AuthResult]
	refresh  func(ctx context.Context) model.Response[model.TokenResult]
	profile  func(ctx context.Context) model.Response[model.User]
	logout   func(ctx context.Context, token string) model.Response[model.LogoutResult]

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	profileCalls atomic.Int32

	mu           sync.Mutex
	logoutTokens []string
}

func notStubbed[T any]() model.Response[T] {
	return model.Failf[T](model.ErrRequest, "not stubbed")
}

func (m *mockAuthAPI) Login(ctx context.Context, in model.LoginInput) model.Response[model.AuthResult] {
	m.loginCalls.Add(1)
	if m.login == nil {
		return notStubbed[model.AuthResult]()
	}
	return m.login(ctx, in)
}

func (m *mockAuthAPI) Register(ctx context.Context, in model.RegisterInput) model.Response[model.AuthResult] {
	if m.register == nil {
		return notStubbed[model.AuthResult]()
	}
	return m.register(ctx, in)
}

func (m *mockAuthAPI) Refresh(ctx context.Context) model.Response[model.TokenResult] {
	m.refreshCalls.Add(1)
	if m.refresh == nil {
		return notStubbed[model.TokenResult]()
	}
	return m.refresh(ctx)
}

func (m *mockAuthAPI) Profile(ctx context.Context) model.Response[model.User] {
	m.profileCalls.Add(1)
	if m.profile == nil {
		return notStubbed[model.User]()
	}
	return m.profile(ctx)
}

func (m *mockAuthAPI) Logout(ctx context.Context, token string) model.Response[model.LogoutResult] {
	m.mu.Lock()
	m.logoutTokens = append(m.logoutTokens, token)
	m.mu.Unlock()
	if m.logout == nil {
		return model.OK(model.LogoutResult{Success: true})
	}
	return m.logout(ctx, token)
}

func (m *mockAuthAPI) LogoutTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.logoutTokens...)
}

// --- Failing storage ---

var errStorageDown = errors.New("storage unavailable")

type failingStorage struct{}

func (failingStorage) Load(context.Context, ...string) (map[string]string, error) {
	return nil, errStorageDown
}

func (failingStorage) Save(context.Context, map[string]string) error { return errStorageDown }

func (failingStorage) Remove(context.Context, ...string) error { return errStorageDown }

func testUser() model.User {
	return model.User{
		ID:        "u1",
		Email:     "a@b.com",
		Name:      "Ada",
		Role:      "admin",
		CreatedAt: fixedNow.Add(-24 * time.Hour),
	}
}
