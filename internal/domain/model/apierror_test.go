package model_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   model.ErrorKind
	}{
		{http.StatusBadRequest, model.ErrValidation},
		{http.StatusUnprocessableEntity, model.ErrValidation},
		{http.StatusUnauthorized, model.ErrUnauthorized},
		{http.StatusForbidden, model.ErrForbidden},
		{http.StatusTooManyRequests, model.ErrRateLimited},
		{http.StatusInternalServerError, model.ErrInternal},
		{http.StatusBadGateway, model.ErrInternal},
		{http.StatusServiceUnavailable, model.ErrInternal},
		{http.StatusNotFound, model.ErrRequest},
		{http.StatusConflict, model.ErrRequest},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, model.KindForStatus(tt.status))
		})
	}
}

func TestErrorKind_Known(t *testing.T) {
	assert.True(t, model.ErrNetwork.Known())
	assert.True(t, model.ErrInternal.Known())
	assert.False(t, model.ErrorKind("QUOTA_EXCEEDED").Known())
	assert.False(t, model.ErrorKind("").Known())
}

func TestAPIError_IsMatchesByCode(t *testing.T) {
	var err error = &model.APIError{Code: model.ErrUnauthorized, Message: "token expired"}

	assert.True(t, errors.Is(err, &model.APIError{Code: model.ErrUnauthorized}))
	assert.False(t, errors.Is(err, &model.APIError{Code: model.ErrForbidden}))
	assert.Equal(t, "UNAUTHORIZED: token expired", err.Error())
}

func TestResponse_Err(t *testing.T) {
	ok := model.OK("payload")
	assert.True(t, ok.Success)
	assert.NoError(t, ok.Err())

	failed := model.Failf[string](model.ErrNetwork, "unreachable")
	assert.False(t, failed.Success)
	assert.Empty(t, failed.Data)
	assert.ErrorIs(t, failed.Err(), &model.APIError{Code: model.ErrNetwork})
}
