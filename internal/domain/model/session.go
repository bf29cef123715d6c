package model

// Session is the externally observable session record that UI surfaces bind to.
// IsAuthenticated implies User is non-nil. Error is empty when there is no error.
type Session struct {
	IsAuthenticated bool
	User            *User
	IsLoading       bool
	Error           string
}

// SessionPhase is the Session Manager's internal state machine position.
type SessionPhase string

const (
	PhaseUnauthenticated SessionPhase = "unauthenticated"
	PhaseAuthenticating  SessionPhase = "authenticating"
	PhaseAuthenticated   SessionPhase = "authenticated"
	PhaseRefreshing      SessionPhase = "refreshing"
)
