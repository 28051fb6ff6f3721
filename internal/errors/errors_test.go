package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/types"
)

func TestCategorize(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Categorize(nil))
	})

	t.Run("wrapped categorized error keeps its category", func(t *testing.T) {
		orig := NewInvalidParameterError("page", "must be at least 1")
		got := Categorize(fmt.Errorf("query ledger: %w", orig))
		require.NotNil(t, got)
		assert.Same(t, orig, got)
		assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		got := Categorize(&types.ServiceError{Code: CodeInvalidHolding, Message: "bad sign"})
		assert.Equal(t, CategoryValidation, got.Category)
		assert.Equal(t, http.StatusUnprocessableEntity, got.StatusCode)
		assert.Equal(t, "bad sign", got.Message)
	})

	t.Run("plain error is internal", func(t *testing.T) {
		cause := stderrors.New("boom")
		got := Categorize(cause)
		assert.Equal(t, CodeInternalError, got.Code)
		assert.ErrorIs(t, got, cause)
	})
}

func TestNewBackendError_Status(t *testing.T) {
	tests := []struct {
		backendStatus int
		want          int
		retryable     bool
	}{
		{0, http.StatusBadGateway, true},
		{http.StatusInternalServerError, http.StatusBadGateway, true},
		{http.StatusTooManyRequests, http.StatusTooManyRequests, false},
		{http.StatusUnauthorized, http.StatusUnauthorized, false},
		{http.StatusBadRequest, http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.backendStatus), func(t *testing.T) {
			err := NewBackendError(tt.backendStatus, "rate limited", nil)
			assert.Equal(t, tt.want, GetHTTPStatusCode(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestUserAndSystemErrors(t *testing.T) {
	assert.True(t, IsUserError(NewNotFoundError("portfolio", "alice")))
	assert.False(t, IsSystemError(NewNotFoundError("portfolio", "alice")))

	dbErr := NewDatabaseError("load ledger", stderrors.New("conn refused"))
	assert.True(t, IsSystemError(dbErr))
	assert.True(t, IsRetryable(dbErr))
	assert.Contains(t, dbErr.Error(), "conn refused")

	assert.True(t, IsRetryable(NewServiceUnavailableError("redis")))
	assert.False(t, IsRetryable(NewInternalError("unexpected", nil)))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatusCode(stderrors.New("x")))
}

func TestToServiceError(t *testing.T) {
	svc := NewRateLimitError(3).ToServiceError()
	assert.Equal(t, CodeRateLimitExceeded, svc.Code)
	assert.Equal(t, 3, svc.Details["retryAfter"])
}
