package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name        string
		environment string
	}{
		{"production", "production"},
		{"development", "development"},
		{"empty defaults to development", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Init(tt.environment))
			assert.NotNil(t, Get())
		})
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "req-123")
	assert.Equal(t, "req-123", CorrelationIDFromContext(ctx))
	assert.Equal(t, "", CorrelationIDFromContext(context.Background()))
}

func TestWithContext_NeverNil(t *testing.T) {
	assert.NotNil(t, WithContext(context.Background()))
	assert.NotNil(t, WithContext(ContextWithCorrelationID(context.Background(), "abc")))
}
