// Package pagination implements the page-number envelope used by every
// collection endpoint: {"results": ..., "next": url, "previous": url}.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rentals-dev/rentals/internal/apperrors"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 20
)

type Page struct {
	Number int
	Size   int
}

// FromRequest reads page and page_size query parameters, clamping the
// size to MaxPageSize. Malformed values fall back to defaults.
func FromRequest(ctx *gin.Context) Page {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(ctx.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	if err != nil || size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: page, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type Envelope struct {
	Results  interface{} `json:"results"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
}

// Envelope wraps one page of results. A page past the end of the
// collection is a not-found, matching the wrapper contract; page 1 of
// an empty collection is an empty page.
func (p Page) Envelope(ctx *gin.Context, total int64, results interface{}) (Envelope, error) {
	if p.Number > 1 && int64(p.Offset()) >= total {
		return Envelope{}, apperrors.NotFound("invalid page")
	}
	env := Envelope{Results: results}
	if int64(p.Number*p.Size) < total {
		env.Next = p.pageURL(ctx, p.Number+1)
	}
	if p.Number > 1 {
		env.Previous = p.pageURL(ctx, p.Number-1)
	}
	return env, nil
}

func (p Page) pageURL(ctx *gin.Context, page int) *string {
	u := *ctx.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(p.Size))
	u.RawQuery = q.Encode()
	u.Host = ctx.Request.Host
	u.Scheme = "http"
	if ctx.Request.TLS != nil {
		u.Scheme = "https"
	}
	s := u.String()
	return &s
}
