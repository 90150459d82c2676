// Package pagination slices list results for the HTTP API.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params holds the requested window.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads the limit and offset query parameters. Missing or
// invalid values fall back to DefaultLimit and zero; limit is capped at
// MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Page returns the items inside the window.
func Page[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// Response wraps a page of results.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
	Next    string      `json:"next,omitempty"`
}

// NewResponse pages items and, when more remain, links to the next page by
// rewriting the offset of the request URL.
func NewResponse[T any](items []T, p Params, requestURL *url.URL) *Response {
	total := len(items)
	resp := &Response{
		Data:    Page(items, p),
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}
	if resp.HasMore && requestURL != nil {
		next := *requestURL
		q := next.Query()
		q.Set("limit", strconv.Itoa(p.Limit))
		q.Set("offset", strconv.Itoa(p.Offset+p.Limit))
		next.RawQuery = q.Encode()
		resp.Next = next.RequestURI()
	}
	return resp
}

func (p Params) String() string {
	return fmt.Sprintf("limit=%d offset=%d", p.Limit, p.Offset)
}
