package driven

import (
	"context"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// AuthAPI is the driven port for the search platform's authentication endpoints.
// Every method resolves to a normalized Response; none of them return Go errors.
type AuthAPI interface {
	// Login exchanges email and password for a user and credential.
	Login(ctx context.Context, in model.LoginInput) model.Response[model.AuthResult]

	// Register creates an account and returns a user and credential.
	Register(ctx context.Context, in model.RegisterInput) model.Response[model.AuthResult]

	// Refresh exchanges the currently attached credential for a new one.
	Refresh(ctx context.Context) model.Response[model.TokenResult]

	// Profile returns the user owning the currently attached credential.
	Profile(ctx context.Context) model.Response[model.User]

	// Logout revokes token on the server. The token is passed explicitly because
	// the local credential has already been cleared when this runs.
	Logout(ctx context.Context, token string) model.Response[model.LogoutResult]
}
