package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds validated offset pagination parameters
type Params struct {
	Skip  int
	Limit int
}

// Parse extracts and validates skip/limit from query parameters. A limit
// above max is reported so the handler can reject it explicitly instead of
// silently clamping.
func Parse(c *gin.Context, max int) (Params, bool) {
	if max <= 0 {
		max = MaxLimit
	}
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(max)))

	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > max {
		return Params{Skip: skip, Limit: max}, false
	}

	return Params{Skip: skip, Limit: limit}, true
}
