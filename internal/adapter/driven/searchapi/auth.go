package searchapi

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthAPI = (*Client)(nil)

// DefaultTokenTTL is assumed when the server sends neither expires_in nor a
// JWT exp claim.
const DefaultTokenTTL = time.Hour

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, in model.LoginInput) model.Response[model.AuthResult] {
	resp := Do[model.AuthResult](ctx, c, http.MethodPost, "/auth/login", in)
	return c.completeAuth(resp)
}

// Register posts a new account to /auth/register.
func (c *Client) Register(ctx context.Context, in model.RegisterInput) model.Response[model.AuthResult] {
	resp := Do[model.AuthResult](ctx, c, http.MethodPost, "/auth/register", in)
	return c.completeAuth(resp)
}

// Refresh exchanges the stored credential at /auth/refresh.
func (c *Client) Refresh(ctx context.Context) model.Response[model.TokenResult] {
	resp := Do[model.TokenResult](ctx, c, http.MethodPost, "/auth/refresh", nil)
	if !resp.Success {
		return resp
	}
	if resp.Data.Token == "" {
		return model.Failf[model.TokenResult](model.ErrRequest, "Invalid response from the search API: missing token")
	}
	resp.Data.ExpiresIn = c.ttlSeconds(resp.Data.Token, resp.Data.ExpiresIn)
	return resp
}

// Profile fetches the current user from /auth/profile.
func (c *Client) Profile(ctx context.Context) model.Response[model.User] {
	return Do[model.User](ctx, c, http.MethodGet, "/auth/profile", nil)
}

// Logout revokes token at /auth/logout and drops every cached response,
// whatever the server answers.
func (c *Client) Logout(ctx context.Context, token string) model.Response[model.LogoutResult] {
	defer c.PurgeCache()
	if token == "" {
		return model.OK(model.LogoutResult{Success: true})
	}
	return Do[model.LogoutResult](ctx, c, http.MethodPost, "/auth/logout", nil, WithToken(token))
}

func (c *Client) completeAuth(resp model.Response[model.AuthResult]) model.Response[model.AuthResult] {
	if !resp.Success {
		return resp
	}
	if resp.Data.Token == "" {
		return model.Failf[model.AuthResult](model.ErrRequest, "Invalid response from the search API: missing token")
	}
	resp.Data.ExpiresIn = c.ttlSeconds(resp.Data.Token, resp.Data.ExpiresIn)
	c.PurgeCache()
	return resp
}

// ttlSeconds returns expiresIn when the server sent one. Otherwise the token's
// own exp claim is read (signature unverified; the client cannot verify it and
// only needs a refresh deadline), falling back to DefaultTokenTTL.
func (c *Client) ttlSeconds(token string, expiresIn int64) int64 {
	if expiresIn > 0 {
		return expiresIn
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		left := max(claims.ExpiresAt.Sub(c.now()), 0)
		return int64(left / time.Second)
	}

	c.logger.Debug("token lifetime unknown, using default", "ttl", DefaultTokenTTL)
	return int64(DefaultTokenTTL / time.Second)
}
