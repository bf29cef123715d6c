package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// minRefreshCheck bounds how often the loop wakes while a credential is
// already inside the refresh window.
const minRefreshCheck = time.Second

// RefreshLoop keeps the credential fresh without user traffic. It wakes just
// before the refresh window opens, or at most every maxInterval so a session
// started by a later login is picked up.
type RefreshLoop struct {
	sessions    *SessionManager
	maxInterval time.Duration
	logger      *slog.Logger
}

// NewRefreshLoop creates a RefreshLoop that checks at least every maxInterval.
func NewRefreshLoop(sessions *SessionManager, maxInterval time.Duration, logger *slog.Logger) *RefreshLoop {
	if maxInterval < minRefreshCheck {
		maxInterval = minRefreshCheck
	}
	return &RefreshLoop{
		sessions:    sessions,
		maxInterval: maxInterval,
		logger:      logger,
	}
}

// Start runs the loop until ctx is canceled.
func (l *RefreshLoop) Start(ctx context.Context) {
	timer := time.NewTimer(l.next(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("refresh loop stopped")
			return
		case <-timer.C:
			if _, err := l.sessions.RefreshIfNeeded(ctx); err != nil && ctx.Err() == nil {
				l.logger.Warn("scheduled refresh failed", "error", err)
			}
			timer.Reset(l.next(ctx))
		}
	}
}

func (l *RefreshLoop) next(ctx context.Context) time.Duration {
	m := l.sessions
	return nextRefreshCheck(m.creds.Get(ctx), m.now(), m.threshold, l.maxInterval)
}

// nextRefreshCheck returns how long to sleep before the next refresh check.
// Without a valid credential there is nothing to renew until someone signs
// in, so the loop idles at maxInterval.
func nextRefreshCheck(cred *model.Credential, now time.Time, threshold, maxInterval time.Duration) time.Duration {
	if !cred.Valid(now) {
		return maxInterval
	}

	untilWindow := cred.ExpiresAt.Sub(now) - threshold
	switch {
	case untilWindow <= minRefreshCheck:
		return minRefreshCheck
	case untilWindow > maxInterval:
		return maxInterval
	default:
		return untilWindow
	}
}
