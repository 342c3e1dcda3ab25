package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func ctxWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParseDefaults(t *testing.T) {
	p, ok := Parse(ctxWithQuery(""), 100)
	if !ok {
		t.Fatalf("defaults rejected")
	}
	if p.Skip != 0 || p.Limit != 100 {
		t.Fatalf("params = %+v", p)
	}
}

func TestParseExplicitValues(t *testing.T) {
	p, ok := Parse(ctxWithQuery("skip=30&limit=15"), 100)
	if !ok {
		t.Fatalf("valid query rejected")
	}
	if p.Skip != 30 || p.Limit != 15 {
		t.Fatalf("params = %+v", p)
	}
}

func TestParseRejectsOverMax(t *testing.T) {
	p, ok := Parse(ctxWithQuery("limit=11"), 10)
	if ok {
		t.Fatalf("over-max limit accepted")
	}
	if p.Limit != 10 {
		t.Fatalf("reported limit = %d, want clamp to 10", p.Limit)
	}
}

func TestParseNormalizesNegatives(t *testing.T) {
	p, ok := Parse(ctxWithQuery("skip=-5&limit=-1"), 100)
	if !ok {
		t.Fatalf("negative values rejected")
	}
	if p.Skip != 0 || p.Limit != DefaultLimit {
		t.Fatalf("params = %+v", p)
	}
}
