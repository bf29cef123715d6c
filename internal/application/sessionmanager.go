package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

// errSessionEnded is returned to refresh callers whose result was discarded
// because the session ended while the refresh was in flight.
var errSessionEnded = &model.APIError{Code: model.ErrUnauthorized, Message: "Session ended"}

// SessionManagerConfig holds the optional settings of a SessionManager.
type SessionManagerConfig struct {
	// RefreshThreshold is how close to expiry a credential must be before
	// RefreshIfNeeded renews it. Defaults to model.DefaultRefreshThreshold.
	RefreshThreshold time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SessionManager owns every transition of the session lifecycle. It is the
// only writer of the CredentialStore and the SessionState.
type SessionManager struct {
	api       driven.AuthAPI
	creds     *CredentialStore
	state     *SessionState
	validate  *validator.Validate
	threshold time.Duration
	now       func() time.Time
	logger    *slog.Logger

	refreshGroup singleflight.Group

	// mu guards phase and epoch. epoch increments whenever a user action
	// starts a new session attempt or ends the session; completions that
	// observe a different epoch are discarded.
	mu    sync.Mutex
	phase model.SessionPhase
	epoch uint64
}

// NewSessionManager creates a SessionManager over the given collaborators.
func NewSessionManager(api driven.AuthAPI, creds *CredentialStore, state *SessionState, cfg SessionManagerConfig) *SessionManager {
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = model.DefaultRefreshThreshold
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &SessionManager{
		api:       api,
		creds:     creds,
		state:     state,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		threshold: cfg.RefreshThreshold,
		now:       cfg.Clock,
		logger:    cfg.Logger,
		phase:     model.PhaseUnauthenticated,
	}
}

// State returns the observable session record.
func (m *SessionManager) State() *SessionState {
	return m.state
}

// Phase returns the current lifecycle phase.
func (m *SessionManager) Phase() model.SessionPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Credential returns the current credential, or nil.
func (m *SessionManager) Credential(ctx context.Context) *model.Credential {
	return m.creds.Get(ctx)
}

// Login authenticates with email and password. On success the credential is
// stored and the session becomes authenticated; on failure the session is
// unauthenticated with Error set to the failure message.
func (m *SessionManager) Login(ctx context.Context, email, password string) model.Response[model.User] {
	in := model.LoginInput{Email: strings.TrimSpace(email), Password: password}

	epoch := m.beginAttempt()
	if apiErr := m.validateInput(in); apiErr != nil {
		m.failAttempt(ctx, epoch, apiErr)
		return model.Fail[model.User](apiErr)
	}

	return m.completeAttempt(ctx, epoch, "login", m.api.Login(ctx, in))
}

// Register creates an account and signs in with it, following the same
// transitions as Login.
func (m *SessionManager) Register(ctx context.Context, name, email, password string) model.Response[model.User] {
	in := model.RegisterInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}

	epoch := m.beginAttempt()
	if apiErr := m.validateInput(in); apiErr != nil {
		m.failAttempt(ctx, epoch, apiErr)
		return model.Fail[model.User](apiErr)
	}

	return m.completeAttempt(ctx, epoch, "register", m.api.Register(ctx, in))
}

// Logout ends the session. The local credential and state are cleared and
// published before the server is told; a failed remote logout is only logged.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.epoch++
	cred := m.creds.Get(ctx)
	m.creds.Clear(ctx)
	m.setPhase(model.PhaseUnauthenticated)
	m.state.update(func(s *model.Session) {
		*s = model.Session{}
	})
	m.mu.Unlock()

	var token string
	if cred != nil {
		token = cred.Token
	}

	resp := m.api.Logout(ctx, token)
	if !resp.Success {
		m.logger.Warn("remote logout failed, local session already cleared", "error", resp.Error)
		return
	}
	m.logger.Info("logged out")
}

// RefreshIfNeeded renews the credential when it is within the refresh
// threshold of expiry and returns the credential in effect afterwards, which
// may be nil when no session exists. Concurrent callers share one refresh
// call and its result. A failed refresh ends the session. A caller whose ctx
// ends stops waiting with ctx.Err(); the shared refresh carries on for the
// others.
func (m *SessionManager) RefreshIfNeeded(ctx context.Context) (*model.Credential, error) {
	cred := m.creds.Get(ctx)
	if !cred.ExpiringSoon(m.now(), m.threshold) {
		return cred, nil
	}

	// The shared call must not die with whichever caller happened to start it.
	ch := m.refreshGroup.DoChan("refresh", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	shared, _ := res.Val.(*model.Credential)
	if shared == nil {
		return nil, nil
	}
	c := *shared
	return &c, nil
}

func (m *SessionManager) refresh(ctx context.Context) (*model.Credential, error) {
	m.mu.Lock()
	cred := m.creds.Get(ctx)
	if !cred.ExpiringSoon(m.now(), m.threshold) {
		// Another refresh finished between the caller's check and this one.
		m.mu.Unlock()
		return cred, nil
	}
	epoch := m.epoch
	prev := m.phase
	m.setPhase(model.PhaseRefreshing)
	m.mu.Unlock()

	resp := m.api.Refresh(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		metrics.RefreshesTotal.WithLabelValues("discarded").Inc()
		m.logger.Debug("refresh result discarded, session changed while in flight")
		return nil, errSessionEnded
	}

	if !resp.Success {
		metrics.RefreshesTotal.WithLabelValues("failed").Inc()
		m.logger.Warn("credential refresh failed, ending session", "error", resp.Error)
		m.endSessionLocked(ctx, "")
		return nil, resp.Error
	}

	updated := m.creds.Set(ctx, resp.Data.Token, time.Duration(resp.Data.ExpiresIn)*time.Second)
	m.setPhase(prev)
	metrics.RefreshesTotal.WithLabelValues("ok").Inc()
	m.logger.Debug("credential refreshed", "expires_at", updated.ExpiresAt)

	return &updated, nil
}

// Bootstrap restores a persisted session at startup. A valid credential is
// confirmed by fetching the profile; an expired credential, or a failed
// confirmation, is cleared and leaves the session unauthenticated.
func (m *SessionManager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	cred := m.creds.Get(ctx)
	if !cred.Valid(m.now()) {
		if cred != nil {
			m.logger.Info("persisted credential expired, clearing it")
		}
		m.endSessionLocked(ctx, "")
		m.mu.Unlock()
		return
	}

	m.epoch++
	epoch := m.epoch
	m.setPhase(model.PhaseAuthenticating)
	m.state.update(func(s *model.Session) {
		s.IsLoading = true
		s.Error = ""
	})
	m.mu.Unlock()

	resp := m.api.Profile(ctx)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	if !resp.Success {
		m.logger.Info("persisted credential rejected, starting signed out", "error", resp.Error)
		m.endSessionLocked(ctx, "")
		m.mu.Unlock()
		return
	}
	m.authenticatedLocked(resp.Data)
	m.mu.Unlock()

	m.logger.Info("session restored", "user", resp.Data.Email)

	if _, err := m.RefreshIfNeeded(ctx); err != nil {
		m.logger.Debug("refresh after restore failed", "error", err)
	}
}

// ReloadProfile re-fetches the signed-in user and replaces the session's User
// on success. An UNAUTHORIZED answer ends the session; other failures leave it
// untouched.
func (m *SessionManager) ReloadProfile(ctx context.Context) model.Response[model.User] {
	m.mu.Lock()
	if m.phase == model.PhaseUnauthenticated {
		m.mu.Unlock()
		return model.Failf[model.User](model.ErrUnauthorized, "Not signed in")
	}
	epoch := m.epoch
	m.mu.Unlock()

	if _, err := m.RefreshIfNeeded(ctx); err != nil {
		return model.Fail[model.User](asAPIError(err))
	}

	resp := m.api.Profile(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return resp
	}
	switch {
	case resp.Success:
		m.state.update(func(s *model.Session) {
			u := resp.Data
			s.User = &u
		})
	case resp.Error.Code == model.ErrUnauthorized:
		m.logger.Info("profile reload rejected, ending session")
		m.endSessionLocked(ctx, resp.Error.Message)
	}
	return resp
}

// beginAttempt starts a login or register attempt and returns its epoch.
func (m *SessionManager) beginAttempt() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.setPhase(model.PhaseAuthenticating)
	m.state.update(func(s *model.Session) {
		s.IsLoading = true
		s.Error = ""
	})
	return m.epoch
}

func (m *SessionManager) completeAttempt(ctx context.Context, epoch uint64, op string, resp model.Response[model.AuthResult]) model.Response[model.User] {
	if !resp.Success {
		m.logger.Info(op+" failed", "code", resp.Error.Code)
		m.failAttempt(ctx, epoch, resp.Error)
		return model.Fail[model.User](resp.Error)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.logger.Debug(op+" result discarded, superseded by a newer action")
		return model.OK(resp.Data.User)
	}

	m.creds.Set(ctx, resp.Data.Token, time.Duration(resp.Data.ExpiresIn)*time.Second)
	m.authenticatedLocked(resp.Data.User)
	m.logger.Info(op+" succeeded", "user", resp.Data.User.Email)

	return model.OK(resp.Data.User)
}

func (m *SessionManager) failAttempt(ctx context.Context, epoch uint64, apiErr *model.APIError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return
	}
	m.endSessionLocked(ctx, apiErr.Message)
}

func (m *SessionManager) authenticatedLocked(user model.User) {
	m.setPhase(model.PhaseAuthenticated)
	m.state.update(func(s *model.Session) {
		u := user
		s.IsAuthenticated = true
		s.User = &u
		s.IsLoading = false
		s.Error = ""
	})
}

// endSessionLocked clears the credential and publishes an unauthenticated
// state carrying errMsg.
func (m *SessionManager) endSessionLocked(ctx context.Context, errMsg string) {
	m.creds.Clear(ctx)
	m.setPhase(model.PhaseUnauthenticated)
	m.state.update(func(s *model.Session) {
		*s = model.Session{Error: errMsg}
	})
}

func (m *SessionManager) setPhase(p model.SessionPhase) {
	if m.phase == p {
		return
	}
	m.phase = p
	metrics.SessionTransitionsTotal.WithLabelValues(string(p)).Inc()
}

// validateInput checks in against its struct tags and returns a
// VALIDATION_ERROR describing the first failing field.
func (m *SessionManager) validateInput(in any) *model.APIError {
	err := m.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &model.APIError{Code: model.ErrValidation, Message: err.Error()}
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}

	return &model.APIError{
		Code:    model.ErrValidation,
		Message: fieldMessage(fieldErrs[0]),
		Details: details,
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &model.APIError{Code: model.ErrRequest, Message: err.Error()}
}
