// Package tracking turns search-task interactions into server-side events.
// Every call is best-effort: failures are logged and the caller carries on.
package tracking

import (
	"context"

	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/logger"
)

// API is the subset of the study client the tracker needs
type API interface {
	StartQuery(ctx context.Context, req api.StartQueryRequest) (*api.StartQueryResponse, error)
	EndQuery(ctx context.Context, queryID string) (*api.EndQueryResponse, error)
	LogClick(ctx context.Context, req api.LogClickRequest) (*api.LogClickResponse, error)
	LogScroll(ctx context.Context, req api.LogScrollRequest) (int, error)
	LogHover(ctx context.Context, req api.LogHoverRequest) (string, error)
}

// SessionSource yields the current session id
type SessionSource interface {
	SessionID() string
}

// Tracker sends interaction events for the current session
type Tracker struct {
	api      API
	sessions SessionSource
}

// NewTracker returns a tracker bound to sessions
func NewTracker(client API, sessions SessionSource) *Tracker {
	return &Tracker{api: client, sessions: sessions}
}

func (t *Tracker) session(event string) string {
	sid := t.sessions.SessionID()
	if sid == "" {
		logger.Warn("Dropping event without session", "event", event)
	}
	return sid
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rankPtr(rank int) *int {
	if rank <= 0 {
		return nil
	}
	return &rank
}

// StartQuery opens a query. An empty structure is classified from the text.
// It returns "" and 0 when the event could not be recorded.
func (t *Tracker) StartQuery(ctx context.Context, text, structure string) (string, int) {
	sid := t.session("query_start")
	if sid == "" {
		return "", 0
	}
	if structure == "" {
		structure = ClassifyQuery(text)
	}

	resp, err := t.api.StartQuery(ctx, api.StartQueryRequest{SessionID: sid, QueryText: text, QueryStructure: structure})
	if err != nil {
		logger.Warn("Query start dropped", "err", err)
		return "", 0
	}
	logger.Debug("Query started", "query_id", resp.QueryID, "order", resp.QueryOrder, "structure", structure)
	return resp.QueryID, resp.QueryOrder
}

// EndQuery closes a query and returns its duration in seconds
func (t *Tracker) EndQuery(ctx context.Context, queryID string) int {
	if queryID == "" {
		return 0
	}
	resp, err := t.api.EndQuery(ctx, queryID)
	if err != nil {
		logger.Warn("Query end dropped", "query_id", queryID, "err", err)
		return 0
	}
	if resp.DurationSeconds == nil {
		return 0
	}
	return *resp.DurationSeconds
}

// LogClick records a result click and returns its order. rank <= 0 means
// unknown.
func (t *Tracker) LogClick(ctx context.Context, queryID, url string, rank int) int {
	if queryID == "" {
		logger.Warn("Dropping click without query", "url", url)
		return 0
	}
	resp, err := t.api.LogClick(ctx, api.LogClickRequest{QueryID: queryID, ClickedURL: url, ClickedRank: rankPtr(rank)})
	if err != nil {
		logger.Warn("Click dropped", "query_id", queryID, "err", err)
		return 0
	}
	return resp.ClickOrder
}

// LogHover records a dwell over a result
func (t *Tracker) LogHover(ctx context.Context, queryID, url string, rank, ms int) string {
	sid := t.session("hover")
	if sid == "" {
		return ""
	}
	id, err := t.api.LogHover(ctx, api.LogHoverRequest{
		SessionID:   sid,
		QueryID:     optional(queryID),
		HoveredURL:  url,
		HoveredRank: rankPtr(rank),
		HoverMs:     ms,
	})
	if err != nil {
		logger.Warn("Hover dropped", "err", err)
		return ""
	}
	return id
}

// LogScroll sends one scroll maximum and returns the session's stored
// maximum, or -1 when the event was dropped
func (t *Tracker) LogScroll(ctx context.Context, path, queryID string, pct int) int {
	sid := t.session("scroll")
	if sid == "" {
		return -1
	}
	depth, err := t.api.LogScroll(ctx, api.LogScrollRequest{
		SessionID:    sid,
		QueryID:      optional(queryID),
		Path:         path,
		MaxScrollPct: pct,
	})
	if err != nil {
		logger.Warn("Scroll dropped", "path", path, "err", err)
		return -1
	}
	return depth
}
