package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/common"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultOffset = 0
)

// Params holds limit/offset paging parameters
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads limit and offset from the query string, clamping them
// to sane values.
func ParseParams(c *gin.Context) Params {
	p := Params{Limit: DefaultLimit, Offset: DefaultOffset}

	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}

// BuildMeta builds response metadata for a page
func BuildMeta(limit, offset int, total int64) *common.Meta {
	return &common.Meta{Limit: limit, Offset: offset, Total: total}
}

// HasMore reports whether rows exist past the current page
func HasMore(limit, offset int, total int64) bool {
	return int64(offset+limit) < total
}
