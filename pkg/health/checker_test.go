package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseChecker_NilPool(t *testing.T) {
	err := DatabaseChecker(nil)(context.Background())
	require.Error(t, err)
	assert.Equal(t, "database connection is nil", err.Error())
}

func TestRedisChecker(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		wantErr bool
	}{
		{
			name:  "pong",
			setup: func(mock redismock.ClientMock) { mock.ExpectPing().SetVal("PONG") },
		},
		{
			name:    "connection refused",
			setup:   func(mock redismock.ClientMock) { mock.ExpectPing().SetErr(errors.New("connection refused")) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.setup(mock)

			err := RedisChecker(client)(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHealthCheckWithDeps_ReportsUnhealthyDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	router := gin.New()
	router.GET("/healthz", common.HealthCheckWithDeps("schoolrun-api", "test", time.Second, map[string]common.DependencyCheck{
		"database": DatabaseChecker(nil),
		"redis":    RedisChecker(client),
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"healthy"`)
	assert.Contains(t, w.Body.String(), "database connection is nil")
}
