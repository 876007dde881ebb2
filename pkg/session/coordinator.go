// Package session drives a participant through the study: consent, the
// session lifecycle and final submissions.
package session

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/drafts"
	clienterrors "github.com/zfogg/searchstudy/pkg/errors"
	"github.com/zfogg/searchstudy/pkg/identity"
	"github.com/zfogg/searchstudy/pkg/logger"
	"github.com/zfogg/searchstudy/pkg/pages"
	"github.com/zfogg/searchstudy/pkg/storage"
)

// StorageKey is where the current session id lives in client storage
const StorageKey = "session_id"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNoParticipant = clienterrors.State("no participant id; confirm consent first")
	ErrNoSession     = clienterrors.State("no open session; confirm consent or ensure a session first")
)

// State is the coordinator's view of the session lifecycle
type State int

const (
	NoSession State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "no_session"
	}
}

// Coordinator owns the participant's session id
type Coordinator struct {
	api      *api.Client
	identity *identity.Provider
	kv       storage.KV
	drafts   *drafts.Store

	mu    sync.Mutex
	state State
}

// NewCoordinator builds a coordinator. A session id left in kv by an earlier
// run is treated as active.
func NewCoordinator(client *api.Client, ids *identity.Provider, kv storage.KV, store *drafts.Store) *Coordinator {
	c := &Coordinator{api: client, identity: ids, kv: kv, drafts: store}
	if _, ok := kv.Get(StorageKey); ok {
		c.state = Active
	}
	return c
}

// EnsureParticipantID returns the participant id, creating it when absent
func (c *Coordinator) EnsureParticipantID() string {
	return c.identity.GetOrCreateParticipantID()
}

// SessionID returns the cached session id, or "" when there is none
func (c *Coordinator) SessionID() string {
	id, _ := c.kv.Get(StorageKey)
	return id
}

// State returns the current lifecycle state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) activate(sessionID string) {
	if err := c.kv.Set(StorageKey, sessionID); err != nil {
		logger.Warn("Failed to persist session id", "err", err)
	}
	c.mu.Lock()
	c.state = Active
	c.mu.Unlock()
}

// ConfirmConsent starts fresh: local drafts are cleared, then the server
// closes any open session and opens a new one.
func (c *Coordinator) ConfirmConsent(ctx context.Context) (string, error) {
	pid := c.EnsureParticipantID()
	c.drafts.ClearAll(ctx)

	resp, err := c.api.ConfirmConsent(ctx, pid)
	if err != nil {
		logger.Error("Consent confirmation failed", "participant_id", pid, "err", err)
		return "", err
	}
	c.activate(resp.SessionID)
	logger.Info("Consent confirmed", "participant_id", pid, "session_id", resp.SessionID)
	return resp.SessionID, nil
}

// EnsureSession returns the open session, creating one when needed
func (c *Coordinator) EnsureSession(ctx context.Context) (string, error) {
	pid := c.EnsureParticipantID()
	resp, err := c.api.EnsureSession(ctx, pid)
	if err != nil {
		logger.Error("Ensure session failed", "participant_id", pid, "err", err)
		return "", err
	}
	c.activate(resp.SessionID)
	return resp.SessionID, nil
}

// EndSession closes the current session and forgets its id. The participant
// id is kept.
func (c *Coordinator) EndSession(ctx context.Context) error {
	req := api.EndSessionRequest{SessionID: c.SessionID()}
	if req.SessionID == "" {
		pid, ok := c.identity.Current()
		if !ok {
			return ErrNoParticipant
		}
		req.ParticipantID = pid
	}

	if _, err := c.api.EndSession(ctx, req); err != nil {
		logger.Error("End session failed", "session_id", req.SessionID, "err", err)
		return err
	}
	if err := c.kv.Delete(StorageKey); err != nil {
		logger.Warn("Failed to forget session id", "err", err)
	}
	c.mu.Lock()
	c.state = Closed
	c.mu.Unlock()
	return nil
}

// SavePage stores p on the server as the participant's draft for its page
func (c *Coordinator) SavePage(ctx context.Context, p pages.Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = c.api.SaveResponses(ctx, c.EnsureParticipantID(), p.PageID(), data, "")
	if err != nil {
		logger.Warn("Save page failed", "page", p.PageID(), "err", err)
	}
	return err
}

// LoadPage returns the server-side draft for page, or nil when there is none
func (c *Coordinator) LoadPage(ctx context.Context, page pages.PageID) (pages.Page, error) {
	resp, err := c.api.LoadResponses(ctx, c.EnsureParticipantID(), page)
	if err != nil {
		logger.Warn("Load page failed", "page", page, "err", err)
		return nil, err
	}
	if resp.ResponseData == nil {
		return nil, nil
	}
	return pages.Decode(page, resp.ResponseData)
}

// SaveResultLog submits the findings for the open session. It never creates
// a participant or session: both must already exist.
func (c *Coordinator) SaveResultLog(ctx context.Context, answers *pages.ResultLog) (string, error) {
	pid, ok := c.identity.Current()
	if !ok {
		logger.Error("Result log without participant")
		return "", ErrNoParticipant
	}
	sid := c.SessionID()
	if sid == "" || c.State() != Active {
		logger.Error("Result log without open session", "participant_id", pid)
		return "", ErrNoSession
	}

	id, err := c.api.SubmitResultLog(ctx, pid, sid, answers)
	if err != nil {
		logger.Error("Result log failed", "session_id", sid, "err", err)
		return "", err
	}
	c.drafts.ClearDraft(ctx, pages.ResultLogPage)
	return id, nil
}

func (c *Coordinator) optionalSession() *string {
	if sid := c.SessionID(); sid != "" {
		return &sid
	}
	return nil
}

// SubmitBackgroundSurvey submits the background survey and clears its draft
func (c *Coordinator) SubmitBackgroundSurvey(ctx context.Context, answers *pages.BackgroundSurvey) (string, error) {
	id, err := c.api.SubmitBackgroundSurvey(ctx, c.EnsureParticipantID(), c.optionalSession(), answers)
	return c.submitted(ctx, pages.BackgroundSurveyPage, id, err)
}

// SubmitTaskInstruction submits the task acknowledgement and clears its draft
func (c *Coordinator) SubmitTaskInstruction(ctx context.Context, answers *pages.TaskInstruction) (string, error) {
	id, err := c.api.SubmitTaskInstruction(ctx, c.EnsureParticipantID(), c.optionalSession(), answers)
	return c.submitted(ctx, pages.TaskInstructionPage, id, err)
}

// SubmitPostTaskSurvey submits the post-task survey and clears its draft
func (c *Coordinator) SubmitPostTaskSurvey(ctx context.Context, answers *pages.PostTaskSurvey) (string, error) {
	id, err := c.api.SubmitPostTaskSurvey(ctx, c.EnsureParticipantID(), c.optionalSession(), answers)
	return c.submitted(ctx, pages.PostTaskSurveyPage, id, err)
}

func (c *Coordinator) submitted(ctx context.Context, page pages.PageID, id string, err error) (string, error) {
	if err != nil {
		logger.Error("Submission failed", "page", page, "err", err)
		return "", err
	}
	c.drafts.ClearDraft(ctx, page)
	return id, nil
}
