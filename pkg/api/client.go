// Package api is the typed client for the study server's endpoints.
package api

import (
	"bytes"
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/zfogg/searchstudy/pkg/pages"
)

const prefix = "/api/v1"

// Client wraps a resty client pointed at the study server
type Client struct {
	http *resty.Client
}

// New returns a Client over rc
func New(rc *resty.Client) *Client {
	return &Client{http: rc}
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(prefix + path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return ParseResponseBody(resp.Body(), out)
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(prefix + path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return ParseResponseBody(resp.Body(), out)
}

// Health checks that the server and its database are up
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	return CheckResponse(resp, err)
}

// ConfirmConsent closes any open session and opens a new one
func (c *Client) ConfirmConsent(ctx context.Context, participantID string) (*SessionResponse, error) {
	var out SessionResponse
	body := map[string]string{"participant_id": participantID}
	if err := c.post(ctx, "/consent-confirm", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureSession returns the open session, creating one when none exists
func (c *Client) EnsureSession(ctx context.Context, participantID string) (*SessionResponse, error) {
	var out SessionResponse
	body := map[string]string{"participant_id": participantID}
	if err := c.post(ctx, "/session-ensure", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession closes a session by id or by participant
func (c *Client) EndSession(ctx context.Context, req EndSessionRequest) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.post(ctx, "/session-end", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession fetches a session row with its counters
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var out struct {
		Session Session `json:"session"`
	}
	if err := c.get(ctx, "/sessions/"+sessionID, nil, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// SessionSummary fetches the aggregate for sessionID
func (c *Client) SessionSummary(ctx context.Context, sessionID string) (*Summary, error) {
	var out struct {
		Summary Summary `json:"summary"`
	}
	if err := c.get(ctx, "/sessions/"+sessionID+"/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out.Summary, nil
}

// StartQuery opens a query and returns its id and order
func (c *Client) StartQuery(ctx context.Context, req StartQueryRequest) (*StartQueryResponse, error) {
	var out StartQueryResponse
	if err := c.post(ctx, "/query-start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndQuery closes a query
func (c *Client) EndQuery(ctx context.Context, queryID string) (*EndQueryResponse, error) {
	var out EndQueryResponse
	if err := c.post(ctx, "/query-end", map[string]string{"query_id": queryID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogClick records a result click
func (c *Client) LogClick(ctx context.Context, req LogClickRequest) (*LogClickResponse, error) {
	var out LogClickResponse
	if err := c.post(ctx, "/log-click", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogScroll sends a scroll maximum and returns the session's stored maximum
func (c *Client) LogScroll(ctx context.Context, req LogScrollRequest) (int, error) {
	var out struct {
		ScrollDepthMax int `json:"scroll_depth_max"`
	}
	if err := c.post(ctx, "/log-scroll", req, &out); err != nil {
		return 0, err
	}
	return out.ScrollDepthMax, nil
}

// LogHover records a hover and returns its id
func (c *Client) LogHover(ctx context.Context, req LogHoverRequest) (string, error) {
	var out struct {
		HoverID string `json:"hover_id"`
	}
	if err := c.post(ctx, "/log-hover", req, &out); err != nil {
		return "", err
	}
	return out.HoverID, nil
}

func (c *Client) submit(ctx context.Context, path string, body interface{}) (string, error) {
	var out idResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// SubmitBackgroundSurvey stores the background survey
func (c *Client) SubmitBackgroundSurvey(ctx context.Context, participantID string, sessionID *string, answers *pages.BackgroundSurvey) (string, error) {
	return c.submit(ctx, "/submit-background-survey", backgroundSurveyRequest{
		SubmissionIDs:    SubmissionIDs{ParticipantID: participantID, SessionID: sessionID},
		BackgroundSurvey: *answers,
	})
}

// SubmitTaskInstruction stores the task-brief acknowledgement
func (c *Client) SubmitTaskInstruction(ctx context.Context, participantID string, sessionID *string, answers *pages.TaskInstruction) (string, error) {
	return c.submit(ctx, "/submit-task-instruction", taskInstructionRequest{
		SubmissionIDs:   SubmissionIDs{ParticipantID: participantID, SessionID: sessionID},
		TaskInstruction: *answers,
	})
}

// SubmitPostTaskSurvey stores the post-task survey
func (c *Client) SubmitPostTaskSurvey(ctx context.Context, participantID string, sessionID *string, answers *pages.PostTaskSurvey) (string, error) {
	return c.submit(ctx, "/submit-post-task-survey", postTaskSurveyRequest{
		SubmissionIDs:  SubmissionIDs{ParticipantID: participantID, SessionID: sessionID},
		PostTaskSurvey: *answers,
	})
}

// SubmitResultLog stores the participant's findings for sessionID
func (c *Client) SubmitResultLog(ctx context.Context, participantID, sessionID string, answers *pages.ResultLog) (string, error) {
	return c.submit(ctx, "/result-log", resultLogRequest{
		ParticipantID: participantID,
		SessionID:     sessionID,
		ResultLog:     *answers,
	})
}

// SaveResponses upserts a server-side draft
func (c *Client) SaveResponses(ctx context.Context, participantID string, pageID pages.PageID, data []byte, changeType string) (*SaveResponsesResponse, error) {
	body := struct {
		ParticipantID string       `json:"participant_id"`
		PageID        pages.PageID `json:"page_id"`
		ResponseData  rawJSON      `json:"response_data"`
		ChangeType    string       `json:"change_type,omitempty"`
	}{participantID, pageID, rawJSON(data), changeType}

	var out SaveResponsesResponse
	if err := c.post(ctx, "/save-responses", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadResponses fetches a server-side draft
func (c *Client) LoadResponses(ctx context.Context, participantID string, pageID pages.PageID) (*LoadResponsesResponse, error) {
	var out LoadResponsesResponse
	body := map[string]string{"participant_id": participantID, "page_id": string(pageID)}
	if err := c.post(ctx, "/load-responses", body, &out); err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(out.ResponseData), []byte("null")) {
		out.ResponseData = nil
	}
	return &out, nil
}

// ClearResponses deletes a server-side draft and reports whether one existed
func (c *Client) ClearResponses(ctx context.Context, participantID string, pageID pages.PageID) (bool, error) {
	var out struct {
		Cleared bool `json:"cleared"`
	}
	body := map[string]string{"participant_id": participantID, "page_id": string(pageID)}
	if err := c.post(ctx, "/clear-responses", body, &out); err != nil {
		return false, err
	}
	return out.Cleared, nil
}

// Search queries the configured search provider
func (c *Client) Search(ctx context.Context, query string, limit, offset int) (*SearchResponse, error) {
	params := map[string]string{"q": query}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if offset > 0 {
		params["offset"] = strconv.Itoa(offset)
	}

	var out SearchResponse
	if err := c.get(ctx, "/search", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// rawJSON embeds pre-encoded JSON as-is
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
