// Package search fronts the external web-search provider used during the
// search task. The study only needs ranked results; where they come from is
// behind Provider.
package search

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no provider is configured
var ErrUnavailable = errors.New("search provider unavailable")

// Result is one ranked hit. Rank starts at 1.
type Result struct {
	Rank    int     `json:"rank"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Results is one page of hits
type Results struct {
	Query   string   `json:"query"`
	Total   int      `json:"total"`
	Results []Result `json:"results"`
}

// Options control paging
type Options struct {
	Limit  int
	Offset int
}

// Normalize applies defaults and bounds
func (o Options) Normalize() Options {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Limit > 50 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Provider runs a web search
type Provider interface {
	Search(ctx context.Context, query string, opts Options) (*Results, error)
}
