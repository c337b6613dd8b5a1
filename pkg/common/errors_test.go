package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "message only",
			err:      NewForbiddenError("forbidden"),
			expected: "forbidden",
		},
		{
			name:     "message with cause",
			err:      NewInternalError("failed to load ride", errors.New("connection refused")),
			expected: "failed to load ride: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_IsMatchesByReason(t *testing.T) {
	sentinel := NewDomainError(http.StatusConflict, ReasonAlreadyAccepted, "this ride is no longer available")
	wrapped := fmt.Errorf("accept: %w", sentinel.WithCause(errors.New("no rows")))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, NewDomainError(http.StatusNotFound, ReasonRequestNotFound, "x")))
	assert.False(t, errors.Is(NewBadRequestError("a", nil), &AppError{}))
}

func TestAppError_WithCauseCopies(t *testing.T) {
	sentinel := NewDomainError(http.StatusConflict, ReasonStateConflict, "cannot perform this action now")
	cause := errors.New("rows affected 0")

	wrapped := sentinel.WithCause(cause)

	assert.Nil(t, sentinel.Err)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.Equal(t, sentinel.Message, wrapped.Message)
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(fmt.Errorf("wrap: %w", NewNotFoundError("ride not found", nil)))
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestHandleError_HidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
		wantMsg    string
	}{
		{
			name:       "domain error",
			err:        NewDomainError(http.StatusPaymentRequired, ReasonInsufficientFunds, "insufficient wallet balance").WithCause(errors.New("pq: 0 rows")),
			wantStatus: http.StatusPaymentRequired,
			wantReason: ReasonInsufficientFunds,
			wantMsg:    "insufficient wallet balance",
		},
		{
			name:       "raw error becomes internal",
			err:        errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantReason: ReasonInternal,
			wantMsg:    "failed to accept ride",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			HandleError(c, tt.err, "failed to accept ride")

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantReason, resp.Error.Reason)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
			assert.NotContains(t, w.Body.String(), "connection refused")
			assert.NotContains(t, w.Body.String(), "0 rows")
		})
	}
}
