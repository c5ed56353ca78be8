package pagination

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const maxPerPage = 100

// Params are the page/per_page query parameters, clamped to sane bounds.
type Params struct {
	Page    int
	PerPage int
}

// FromRequest parses pagination parameters. Out-of-range values are clamped
// rather than rejected: page to ≥1, per_page to [1, 100].
func FromRequest(c echo.Context, defaultPerPage int) Params {
	p := Params{Page: 1, PerPage: defaultPerPage}

	if raw := c.QueryParam("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 1 {
			p.Page = v
		}
	}
	if raw := c.QueryParam("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			p.PerPage = v
		}
	}

	if p.PerPage < 1 {
		p.PerPage = 1
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Params) Limit() int  { return p.PerPage }
func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// Envelope is the common paginated response shape.
func (p Params) Envelope(items interface{}, total int) echo.Map {
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return echo.Map{
		"items":    items,
		"total":    total,
		"pages":    pages,
		"page":     p.Page,
		"per_page": p.PerPage,
	}
}
