package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx stands in for an open transaction; only its identity matters here.
type fakeTx struct {
	pgx.Tx
}

// ============== Transaction Context Tests ==============

func TestConn_ReturnsTransactionFromContext(t *testing.T) {
	tx := &fakeTx{}
	ctx := WithTx(context.Background(), tx)

	assert.Same(t, tx, Conn(ctx, nil))
}

func TestInTx_JoinsOpenTransaction(t *testing.T) {
	tx := &fakeTx{}
	ctx := WithTx(context.Background(), tx)
	m := NewTxManager(nil)

	calls := 0
	err := m.InTx(ctx, func(inner context.Context) error {
		calls++
		assert.Same(t, tx, Conn(inner, nil))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestInTx_NestedErrorPropagates(t *testing.T) {
	ctx := WithTx(context.Background(), &fakeTx{})
	m := NewTxManager(nil)
	boom := errors.New("boom")

	err := m.InTx(ctx, func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
}

// ============== Error Classification Tests ==============

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain error", errors.New("duplicate"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsPostgresRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"connection exception class", &pgconn.PgError{Code: "08006"}, true},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"connection refused", errors.New("dial tcp: Connection Refused"), true},
		{"unexpected eof", errors.New("unexpected EOF"), true},
		{"unknown", errors.New("permission denied for table"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPostgresRetryable(tt.err))
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
