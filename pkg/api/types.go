package api

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/searchstudy/pkg/pages"
)

// Session mirrors the server's session row
type Session struct {
	ID                       string     `json:"id"`
	ParticipantID            string     `json:"participant_id"`
	SessionStartTime         time.Time  `json:"session_start_time"`
	SessionEndTime           *time.Time `json:"session_end_time"`
	QueryCount               int        `json:"query_count"`
	TotalClickedResultsCount int        `json:"total_clicked_results_count"`
	ScrollDepthMax           int        `json:"scroll_depth_max"`
}

// SessionResponse is returned by consent-confirm, session-ensure and
// session-end. SessionID is empty when session-end found nothing to close.
type SessionResponse struct {
	SessionID string   `json:"session_id"`
	Created   bool     `json:"created"`
	Session   *Session `json:"session"`
}

// EndSessionRequest names the session to close. Either field is enough.
type EndSessionRequest struct {
	ParticipantID string `json:"participant_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// Summary is the recomputed per-session aggregate
type Summary struct {
	SessionID        string    `json:"session_id"`
	TotalSearches    int       `json:"total_searches"`
	TotalClicks      int       `json:"total_clicks"`
	AvgTimePerQuery  float64   `json:"avg_time_per_query"`
	ClicksPerQuery   float64   `json:"clicks_per_query"`
	QueriesPerMinute float64   `json:"queries_per_minute"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StartQueryRequest opens a query
type StartQueryRequest struct {
	SessionID      string `json:"session_id"`
	QueryText      string `json:"query_text"`
	QueryStructure string `json:"query_structure,omitempty"`
}

// StartQueryResponse carries the assigned order
type StartQueryResponse struct {
	QueryID    string `json:"query_id"`
	QueryOrder int    `json:"query_order"`
}

// EndQueryResponse carries the computed duration
type EndQueryResponse struct {
	QueryID         string `json:"query_id"`
	DurationSeconds *int   `json:"duration_seconds"`
}

// LogClickRequest records a result click. ClickedRank is optional.
type LogClickRequest struct {
	QueryID     string `json:"query_id"`
	ClickedURL  string `json:"clicked_url"`
	ClickedRank *int   `json:"clicked_rank,omitempty"`
}

// LogClickResponse carries the assigned order
type LogClickResponse struct {
	ClickID    string `json:"click_id"`
	ClickOrder int    `json:"click_order"`
}

// LogScrollRequest is one flushed scroll maximum
type LogScrollRequest struct {
	SessionID    string  `json:"session_id"`
	QueryID      *string `json:"query_id,omitempty"`
	Path         string  `json:"path"`
	MaxScrollPct int     `json:"max_scroll_pct"`
}

// LogHoverRequest is a dwell over one result
type LogHoverRequest struct {
	SessionID   string  `json:"session_id"`
	QueryID     *string `json:"query_id,omitempty"`
	HoveredURL  string  `json:"hovered_url"`
	HoveredRank *int    `json:"hovered_rank,omitempty"`
	HoverMs     int     `json:"hover_ms"`
}

// SaveResponsesResponse is returned after a server-side draft upsert
type SaveResponsesResponse struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadResponsesResponse holds a server-side draft. ResponseData is nil when
// the participant has none for the page.
type LoadResponsesResponse struct {
	ResponseData jsoniter.RawMessage `json:"response_data"`
	UpdatedAt    *time.Time          `json:"updated_at"`
}

// SearchResult is one ranked hit
type SearchResult struct {
	Rank    int     `json:"rank"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// SearchResponse is one page of results
type SearchResponse struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Results []SearchResult `json:"results"`
}

// SubmissionIDs identifies who submits. SessionID is optional for surveys.
type SubmissionIDs struct {
	ParticipantID string  `json:"participant_id"`
	SessionID     *string `json:"session_id,omitempty"`
}

type backgroundSurveyRequest struct {
	SubmissionIDs
	pages.BackgroundSurvey
}

type taskInstructionRequest struct {
	SubmissionIDs
	pages.TaskInstruction
}

type postTaskSurveyRequest struct {
	SubmissionIDs
	pages.PostTaskSurvey
}

type resultLogRequest struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
	pages.ResultLog
}

type idResponse struct {
	ID string `json:"id"`
}
