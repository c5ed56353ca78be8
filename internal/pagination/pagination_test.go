package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func params(t *testing.T, query string, defaultPerPage int) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromRequest(c, defaultPerPage)
}

func TestDefaults(t *testing.T) {
	p := params(t, "", 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 0, p.Offset())
}

func TestClamping(t *testing.T) {
	p := params(t, "page=0&per_page=500", 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)

	p = params(t, "per_page=-3", 10)
	assert.Equal(t, 1, p.PerPage)

	p = params(t, "page=notanumber&per_page=abc", 20)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
}

func TestOffset(t *testing.T) {
	p := params(t, "page=3&per_page=25", 10)
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestEnvelopePages(t *testing.T) {
	p := params(t, "per_page=10", 10)

	env := p.Envelope([]int{}, 0)
	assert.Equal(t, 0, env["pages"])

	env = p.Envelope([]int{1}, 101)
	assert.Equal(t, 11, env["pages"])
	assert.Equal(t, 101, env["total"])
}
