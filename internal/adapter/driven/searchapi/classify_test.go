package searchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), "unable to reach"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), "did not respond in time"},
		{"canceled", fmt.Errorf("get: %w", context.Canceled), "canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyTransportError(tt.err)
			assert.Equal(t, model.ErrNetwork, got.Code)
			assert.Contains(t, got.Message, tt.want)
			assert.Contains(t, got.Message, "CORS")
		})
	}
}

func TestClassifyResponse_StructuredWins(t *testing.T) {
	body := []byte(`{"success":false,"error":{"code":"VALIDATION_ERROR","message":"email invalid","details":{"field":"email"}}}`)

	got := classifyResponse(http.StatusInternalServerError, body)

	assert.Equal(t, model.ErrValidation, got.Code)
	assert.Equal(t, "email invalid", got.Message)
	assert.Equal(t, map[string]any{"field": "email"}, got.Details)
}

func TestClassifyResponse_StructuredWithoutMessage(t *testing.T) {
	got := classifyResponse(http.StatusForbidden, []byte(`{"error":{"code":"FORBIDDEN"}}`))

	assert.Equal(t, model.ErrForbidden, got.Code)
	assert.Equal(t, "Forbidden", got.Message)
	assert.Nil(t, got.Details)
}

func TestClassifyResponse_EmptyCodeFallsBack(t *testing.T) {
	got := classifyResponse(http.StatusServiceUnavailable, []byte(`{"error":{"code":"","message":"x"}}`))

	assert.Equal(t, model.ErrInternal, got.Code)
	assert.Equal(t, "Service Unavailable", got.Message)
}

func TestClassifyResponse_LooseMessageUsesStatusText(t *testing.T) {
	got := classifyResponse(http.StatusBadRequest, []byte(`{"message":"email is taken"}`))

	assert.Equal(t, model.ErrValidation, got.Code)
	assert.Equal(t, "Bad Request", got.Message)
}

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		name string
		resp model.Response[struct{}]
		want string
	}{
		{"success", model.OK(struct{}{}), "ok"},
		{"known kind", model.Failf[struct{}](model.ErrRateLimited, "slow down"), "RATE_LIMITED"},
		{"server defined kind", model.Failf[struct{}](model.ErrorKind("QUOTA_EXCEEDED"), "plan limit"), "other"},
		{"random code", model.Failf[struct{}](model.ErrorKind("req-7f3a9c"), "x"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeLabel(tt.resp.Success, tt.resp.Error))
		})
	}
}

func TestClassifyResponse_UnknownStatus(t *testing.T) {
	got := classifyResponse(599, nil)

	assert.Equal(t, model.ErrInternal, got.Code)
	assert.Equal(t, "Request failed", got.Message)
}

func TestDecodeSuccess_EnvelopeWithFailure(t *testing.T) {
	body := []byte(`{"success":false,"error":{"code":"QUOTA_EXCEEDED","message":"plan limit"}}`)

	got := decodeSuccess[map[string]any](http.StatusOK, body)

	assert.False(t, got.Success)
	assert.Equal(t, model.ErrorKind("QUOTA_EXCEEDED"), got.Error.Code)
}

func TestDecodeSuccess_LogoutShape(t *testing.T) {
	got := decodeSuccess[model.LogoutResult](http.StatusOK, []byte(`{"success":true}`))

	assert.True(t, got.Success)
	assert.True(t, got.Data.Success)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := newMemoryCache()
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)

	c.Clear()
	assert.Zero(t, c.Len())
}
