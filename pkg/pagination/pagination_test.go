package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedLimit  int
		expectedOffset int
	}{
		{"defaults", "", DefaultLimit, DefaultOffset},
		{"valid values", "limit=10&offset=20", 10, 20},
		{"zero limit uses default", "limit=0", DefaultLimit, DefaultOffset},
		{"negative values use defaults", "limit=-5&offset=-3", DefaultLimit, DefaultOffset},
		{"limit clamped to max", "limit=500", MaxLimit, DefaultOffset},
		{"garbage ignored", "limit=ten&offset=x", DefaultLimit, DefaultOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/rides/history?"+tt.query, nil)

			params := ParseParams(c)

			assert.Equal(t, tt.expectedLimit, params.Limit)
			assert.Equal(t, tt.expectedOffset, params.Offset)
		})
	}
}

func TestBuildMetaAndHasMore(t *testing.T) {
	meta := BuildMeta(20, 40, 100)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 40, meta.Offset)
	assert.Equal(t, int64(100), meta.Total)

	assert.True(t, HasMore(20, 40, 100))
	assert.False(t, HasMore(20, 80, 100))
	assert.False(t, HasMore(20, 0, 0))
}
