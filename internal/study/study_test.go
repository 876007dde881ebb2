package study

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/searchstudy/internal/cache"
	apperrors "github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/testutil"
	"github.com/zfogg/searchstudy/pkg/pages"
	"gorm.io/gorm"
)

type StudySuite struct {
	suite.Suite
	ctx         context.Context
	db          *gorm.DB
	clock       *testutil.FixedClock
	cache       *cache.MemoryCache
	sessions    *SessionService
	tracking    *TrackingService
	responses   *ResponseService
	submissions *SubmissionService
}

func TestStudySuite(t *testing.T) {
	suite.Run(t, new(StudySuite))
}

func (s *StudySuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.OpenDB(s.T())
	s.clock = &testutil.FixedClock{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	s.cache = cache.NewMemoryCache()

	opts := Options{Cache: s.cache, Now: s.clock.Now}
	s.sessions = NewSessionService(s.db, opts)
	s.tracking = NewTrackingService(s.db, opts)
	s.responses = NewResponseService(s.db, opts)
	s.submissions = NewSubmissionService(s.db, opts)
}

func (s *StudySuite) participant() ParticipantInfo {
	return ParticipantInfo{ParticipantID: uuid.NewString(), DeviceType: "desktop", IPAddress: "203.0.113.7"}
}

func (s *StudySuite) consent(who ParticipantInfo) *models.Session {
	session, err := s.sessions.ConfirmConsent(s.ctx, who)
	s.Require().NoError(err)
	return session
}

func (s *StudySuite) reloadSession(id string) models.Session {
	var session models.Session
	s.Require().NoError(s.db.First(&session, "id = ?", id).Error)
	return session
}

// Sessions

func (s *StudySuite) TestConfirmConsent_SingleOpenSession() {
	who := s.participant()

	var last *models.Session
	for i := 0; i < 4; i++ {
		last = s.consent(who)
		s.clock.Advance(time.Minute)
	}

	var sessions []models.Session
	s.Require().NoError(s.db.Where("participant_id = ?", who.ParticipantID).
		Order("session_start_time ASC").Find(&sessions).Error)
	s.Require().Len(sessions, 4)

	open := 0
	for _, session := range sessions {
		if session.SessionEndTime == nil {
			open++
			s.Equal(last.ID, session.ID)
			continue
		}
		s.False(session.SessionEndTime.After(last.SessionStartTime),
			"closed sessions end before the newest starts")
	}
	s.Equal(1, open)

	var timings []models.SessionTiming
	s.Require().NoError(s.db.Where("participant_id = ?", who.ParticipantID).Find(&timings).Error)
	s.Len(timings, 4)
	superseded := 0
	for _, timing := range timings {
		if timing.EndReason == endReasonSuperseded {
			superseded++
			s.Require().NotNil(timing.DurationSeconds)
			s.Equal(60, *timing.DurationSeconds)
		}
	}
	s.Equal(3, superseded)

	var participants int64
	s.Require().NoError(s.db.Model(&models.Participant{}).Where("id = ?", who.ParticipantID).Count(&participants).Error)
	s.EqualValues(1, participants)
}

func (s *StudySuite) TestEnsureSession_GetOrCreate() {
	who := s.participant()

	first, created, err := s.sessions.EnsureSession(s.ctx, who)
	s.Require().NoError(err)
	s.True(created)

	again, created, err := s.sessions.EnsureSession(s.ctx, who)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, again.ID)

	_, err = s.sessions.EndSession(s.ctx, EndSessionInput{SessionID: first.ID})
	s.Require().NoError(err)

	next, created, err := s.sessions.EnsureSession(s.ctx, who)
	s.Require().NoError(err)
	s.True(created)
	s.NotEqual(first.ID, next.ID)
}

func (s *StudySuite) TestEnsureSession_IgnoresStaleCache() {
	who := s.participant()
	session := s.consent(who)

	_, err := s.sessions.EndSession(s.ctx, EndSessionInput{SessionID: session.ID})
	s.Require().NoError(err)
	s.cache.SetOpenSession(s.ctx, who.ParticipantID, session.ID)

	ensured, created, err := s.sessions.EnsureSession(s.ctx, who)
	s.Require().NoError(err)
	s.True(created)
	s.NotEqual(session.ID, ensured.ID)
}

func (s *StudySuite) TestEndSession_ByParticipantIsIdempotent() {
	who := s.participant()
	session := s.consent(who)
	s.clock.Advance(90 * time.Second)

	ended, err := s.sessions.EndSession(s.ctx, EndSessionInput{ParticipantID: who.ParticipantID})
	s.Require().NoError(err)
	s.Require().NotNil(ended)
	s.Equal(session.ID, ended.ID)
	s.NotNil(ended.SessionEndTime)

	var timing models.SessionTiming
	s.Require().NoError(s.db.First(&timing, "session_id = ?", session.ID).Error)
	s.Require().NotNil(timing.DurationSeconds)
	s.Equal(90, *timing.DurationSeconds)
	s.Equal(endReasonEnded, timing.EndReason)

	none, err := s.sessions.EndSession(s.ctx, EndSessionInput{ParticipantID: who.ParticipantID})
	s.NoError(err)
	s.Nil(none)

	s.clock.Advance(time.Hour)
	again, err := s.sessions.EndSession(s.ctx, EndSessionInput{SessionID: session.ID})
	s.Require().NoError(err)
	s.True(again.SessionEndTime.Equal(*ended.SessionEndTime), "end time is not moved by a repeat call")
}

func (s *StudySuite) TestEndSession_Errors() {
	_, err := s.sessions.EndSession(s.ctx, EndSessionInput{SessionID: uuid.NewString()})
	s.ErrorIs(err, ErrSessionNotFound)

	session := s.consent(s.participant())
	_, err = s.sessions.EndSession(s.ctx, EndSessionInput{SessionID: session.ID, ParticipantID: uuid.NewString()})
	s.ErrorIs(err, ErrParticipantMismatch)
}

// Tracking

func (s *StudySuite) TestPhoneDealsScenario() {
	session := s.consent(s.participant())

	query, err := s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "phone deals", QueryStructure: "keyword"})
	s.Require().NoError(err)
	s.Equal(1, query.QueryOrder)

	rank := 1
	c1, err := s.tracking.LogClick(s.ctx, LogClickInput{QueryID: query.ID, ClickedURL: "https://shop.example/deal-1", ClickedRank: &rank})
	s.Require().NoError(err)
	c2, err := s.tracking.LogClick(s.ctx, LogClickInput{QueryID: query.ID, ClickedURL: "https://shop.example/deal-2"})
	s.Require().NoError(err)
	s.Equal(1, c1.ClickOrder)
	s.Equal(2, c2.ClickOrder)

	s.clock.Advance(42*time.Second + 900*time.Millisecond)
	ended, err := s.tracking.EndQuery(s.ctx, query.ID)
	s.Require().NoError(err)
	s.Require().NotNil(ended.DurationSeconds)
	s.Equal(42, *ended.DurationSeconds)

	reloaded := s.reloadSession(session.ID)
	s.Equal(1, reloaded.QueryCount)
	s.Equal(2, reloaded.TotalClickedResultsCount)

	var q models.Query
	s.Require().NoError(s.db.First(&q, "id = ?", query.ID).Error)
	s.Equal(2, q.ClickCount)

	summary, err := s.tracking.Summary(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(1, summary.TotalSearches)
	s.Equal(2, summary.TotalClicks)
	s.InDelta(2.0, summary.ClicksPerQuery, 0.0001)
	s.InDelta(42.0, summary.AvgTimePerQuery, 0.0001)
	s.InDelta(1.0, summary.QueriesPerMinute, 0.0001)
}

func (s *StudySuite) TestLogClick_OrderStrictlyIncreasing() {
	session := s.consent(s.participant())
	query, err := s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "best budget laptop"})
	s.Require().NoError(err)

	var orders []int
	for i := 0; i < 6; i++ {
		click, err := s.tracking.LogClick(s.ctx, LogClickInput{QueryID: query.ID, ClickedURL: "https://example.com"})
		s.Require().NoError(err)
		orders = append(orders, click.ClickOrder)
	}
	s.Equal([]int{1, 2, 3, 4, 5, 6}, orders)
}

func (s *StudySuite) TestAggregateConsistency() {
	session := s.consent(s.participant())

	clicksPerQuery := []int{3, 0, 2}
	for i, n := range clicksPerQuery {
		query, err := s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "q"})
		s.Require().NoError(err)
		s.Equal(i+1, query.QueryOrder)
		for j := 0; j < n; j++ {
			_, err := s.tracking.LogClick(s.ctx, LogClickInput{QueryID: query.ID, ClickedURL: "https://example.com"})
			s.Require().NoError(err)
		}
		s.clock.Advance(10 * time.Second)
		if i != 1 {
			_, err = s.tracking.EndQuery(s.ctx, query.ID)
			s.Require().NoError(err)
		}
	}

	var queries, clicks int64
	s.Require().NoError(s.db.Model(&models.Query{}).Where("session_id = ?", session.ID).Count(&queries).Error)
	s.Require().NoError(s.db.Model(&models.Click{}).Where("session_id = ?", session.ID).Count(&clicks).Error)

	reloaded := s.reloadSession(session.ID)
	s.EqualValues(queries, reloaded.QueryCount)
	s.EqualValues(clicks, reloaded.TotalClickedResultsCount)
	s.EqualValues(5, clicks)
}

func (s *StudySuite) TestStartQuery_ExplicitOrderAndClosedSession() {
	who := s.participant()
	session := s.consent(who)

	query, err := s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "q", QueryOrder: 7})
	s.Require().NoError(err)
	s.Equal(7, query.QueryOrder)

	next, err := s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "q2"})
	s.Require().NoError(err)
	s.Equal(8, next.QueryOrder)

	_, err = s.sessions.EndSession(s.ctx, EndSessionInput{SessionID: session.ID})
	s.Require().NoError(err)
	_, err = s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "late"})
	s.ErrorIs(err, ErrSessionClosed)

	_, err = s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: uuid.NewString(), QueryText: "q"})
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *StudySuite) TestEndQuery_IdempotentAndClampsSkew() {
	session := s.consent(s.participant())
	query, err := s.tracking.StartQuery(s.ctx, StartQueryInput{SessionID: session.ID, QueryText: "q"})
	s.Require().NoError(err)

	s.clock.Advance(-5 * time.Second)
	ended, err := s.tracking.EndQuery(s.ctx, query.ID)
	s.Require().NoError(err)
	s.Equal(0, *ended.DurationSeconds)

	s.clock.Advance(time.Minute)
	again, err := s.tracking.EndQuery(s.ctx, query.ID)
	s.Require().NoError(err)
	s.Equal(0, *again.DurationSeconds)

	_, err = s.tracking.EndQuery(s.ctx, uuid.NewString())
	s.ErrorIs(err, ErrQueryNotFound)
}

func (s *StudySuite) TestLogScroll_Monotonic() {
	session := s.consent(s.participant())

	for _, pct := range []int{10, 45, 30, 80, 5} {
		_, err := s.tracking.LogScroll(s.ctx, LogScrollInput{SessionID: session.ID, Path: "/search", MaxScrollPct: pct})
		s.Require().NoError(err)
	}
	s.Equal(80, s.reloadSession(session.ID).ScrollDepthMax)

	depth, err := s.tracking.LogScroll(s.ctx, LogScrollInput{SessionID: session.ID, Path: "/search", MaxScrollPct: 140})
	s.Require().NoError(err)
	s.Equal(100, depth)

	var events int64
	s.Require().NoError(s.db.Model(&models.ScrollEvent{}).Where("session_id = ?", session.ID).Count(&events).Error)
	s.EqualValues(6, events)
}

func (s *StudySuite) TestLogHover() {
	session := s.consent(s.participant())
	rank := 3
	event, err := s.tracking.LogHover(s.ctx, LogHoverInput{SessionID: session.ID, HoveredURL: "https://example.com", HoveredRank: &rank, HoverMs: -10})
	s.Require().NoError(err)
	s.Equal(0, event.HoverMs)

	_, err = s.tracking.LogHover(s.ctx, LogHoverInput{SessionID: uuid.NewString(), HoveredURL: "x"})
	s.ErrorIs(err, ErrSessionNotFound)
}

// Responses

func (s *StudySuite) TestResponses_RoundTripAndHistory() {
	who := s.participant()
	draft := json.RawMessage(`{"q1_age":"25-34","q7_devices":["phone","laptop"],"q5_search_frequency":4}`)

	saved, err := s.responses.Save(s.ctx, SaveInput{Participant: who, PageID: pages.BackgroundSurveyPage, ResponseData: draft})
	s.Require().NoError(err)

	loaded, err := s.responses.Load(s.ctx, who.ParticipantID, pages.BackgroundSurveyPage)
	s.Require().NoError(err)
	s.Require().NotNil(loaded)
	s.Equal(saved.ID, loaded.ID)
	s.JSONEq(string(draft), string(loaded.ResponseData))

	_, err = s.responses.Save(s.ctx, SaveInput{Participant: who, PageID: pages.BackgroundSurveyPage, ResponseData: json.RawMessage(`{"q1_age":"35-44"}`)})
	s.Require().NoError(err)
	_, err = s.responses.Save(s.ctx, SaveInput{Participant: who, PageID: pages.BackgroundSurveyPage, ResponseData: json.RawMessage(`{"q1_age":"35-44"}`), ChangeType: "navigate_away"})
	s.Require().NoError(err)

	var live int64
	s.Require().NoError(s.db.Model(&models.SavedResponse{}).Where("participant_id = ?", who.ParticipantID).Count(&live).Error)
	s.EqualValues(1, live)

	cleared, err := s.responses.Clear(s.ctx, who.ParticipantID, pages.BackgroundSurveyPage)
	s.Require().NoError(err)
	s.True(cleared)

	gone, err := s.responses.Load(s.ctx, who.ParticipantID, pages.BackgroundSurveyPage)
	s.Require().NoError(err)
	s.Nil(gone)

	cleared, err = s.responses.Clear(s.ctx, who.ParticipantID, pages.BackgroundSurveyPage)
	s.Require().NoError(err)
	s.False(cleared)

	revived, err := s.responses.Save(s.ctx, SaveInput{Participant: who, PageID: pages.BackgroundSurveyPage, ResponseData: json.RawMessage(`{"q1_age":"18-24"}`)})
	s.Require().NoError(err)
	s.Equal(saved.ID, revived.ID)

	history, err := s.responses.History(s.ctx, who.ParticipantID, pages.BackgroundSurveyPage)
	s.Require().NoError(err)
	var kinds []string
	for _, h := range history {
		kinds = append(kinds, h.ChangeType)
	}
	s.Equal([]string{"create", "update", "navigate_away", "clear", "create"}, kinds)
}

func (s *StudySuite) TestResponses_IsolatedByParticipant() {
	a, b := s.participant(), s.participant()

	_, err := s.responses.Save(s.ctx, SaveInput{Participant: a, PageID: pages.ResultLogPage, ResponseData: json.RawMessage(`{"q11_best_option":"Phone A"}`)})
	s.Require().NoError(err)

	got, err := s.responses.Load(s.ctx, b.ParticipantID, pages.ResultLogPage)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *StudySuite) TestResponses_RejectsUnknownPageAndBadShape() {
	who := s.participant()

	_, err := s.responses.Save(s.ctx, SaveInput{Participant: who, PageID: "consent_form", ResponseData: json.RawMessage(`{}`)})
	var apiErr *apperrors.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(apperrors.ErrUnknownPage, apiErr.Code)

	_, err = s.responses.Save(s.ctx, SaveInput{Participant: who, PageID: pages.ResultLogPage, ResponseData: json.RawMessage(`{"q13_sources":"x"}`)})
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(apperrors.ErrValidation, apiErr.Code)
}

// Submissions

func validBackground(attention pages.Scale) *pages.BackgroundSurvey {
	return &pages.BackgroundSurvey{
		Q1Age:             "25-34",
		Q2Gender:          "prefer not to say",
		Q3Education:       "bachelor",
		Q5SearchFrequency: 5,
		Q7Devices:         []string{"phone"},
		Q8AttentionCheck:  attention,
	}
}

// Participants are told to answer 1 on the attention check, but the
// deployed validation rejects 1. This pins that behaviour.
func (s *StudySuite) TestSubmitBackgroundSurvey_AttentionCheckRejectsOne() {
	who := s.participant()
	session := s.consent(who)

	_, err := s.submissions.SubmitBackgroundSurvey(s.ctx, who, &session.ID, validBackground(1))
	var apiErr *apperrors.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(apperrors.ErrAttentionCheck, apiErr.Code)
	s.Equal("q8_attention_check", apiErr.Field)

	var rows int64
	s.Require().NoError(s.db.Model(&models.BackgroundSurveyResponse{}).Count(&rows).Error)
	s.Zero(rows)

	row, err := s.submissions.SubmitBackgroundSurvey(s.ctx, who, &session.ID, validBackground(3))
	s.Require().NoError(err)
	s.Equal(3, row.Q8AttentionCheck)
	s.Equal(models.StringList{"phone"}, row.Q7Devices)
}

func (s *StudySuite) TestSubmitBackgroundSurvey_RequiredFields() {
	who := s.participant()
	survey := validBackground(2)
	survey.Q2Gender = " "

	_, err := s.submissions.SubmitBackgroundSurvey(s.ctx, who, nil, survey)
	var apiErr *apperrors.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("q2_gender", apiErr.Field)
}

func (s *StudySuite) TestSubmitResultLog_SessionOwnership() {
	who := s.participant()
	session := s.consent(who)
	log := &pages.ResultLog{Q11BestOption: "Phone A", Q13Sources: []string{"retailer"}, Q14Confidence: 4}

	row, err := s.submissions.SubmitResultLog(s.ctx, who, session.ID, log)
	s.Require().NoError(err)
	s.Equal(session.ID, row.SessionID)

	_, err = s.submissions.SubmitResultLog(s.ctx, s.participant(), session.ID, log)
	s.ErrorIs(err, ErrParticipantMismatch)

	_, err = s.submissions.SubmitResultLog(s.ctx, who, uuid.NewString(), log)
	s.ErrorIs(err, ErrSessionNotFound)

	_, err = s.submissions.SubmitResultLog(s.ctx, who, session.ID, &pages.ResultLog{Q14Confidence: 3})
	s.Error(err)
}

func (s *StudySuite) TestSubmitTaskInstructionAndPostTask() {
	who := s.participant()

	_, err := s.submissions.SubmitTaskInstruction(s.ctx, who, nil, &pages.TaskInstruction{})
	s.Error(err)
	row, err := s.submissions.SubmitTaskInstruction(s.ctx, who, nil, &pages.TaskInstruction{Acknowledged: true, ReadingSeconds: 48})
	s.Require().NoError(err)
	s.Equal(48, row.ReadingSeconds)

	_, err = s.submissions.SubmitPostTaskSurvey(s.ctx, who, nil, &pages.PostTaskSurvey{Q16Satisfaction: 11})
	s.Error(err)
	post, err := s.submissions.SubmitPostTaskSurvey(s.ctx, who, nil, &pages.PostTaskSurvey{Q16Satisfaction: 6, Q22Strategy: "compared prices"})
	s.Require().NoError(err)
	s.Equal(6, post.Q16Satisfaction)
}

func TestHashIP(t *testing.T) {
	plain := base{}
	assert.Equal(t, "198.51.100.4", plain.hashIP("198.51.100.4"))

	salted := base{ipSalt: "pepper"}
	h1 := salted.hashIP("198.51.100.4")
	require.Len(t, h1, 64)
	assert.Equal(t, h1, salted.hashIP("198.51.100.4"))
	assert.NotEqual(t, h1, salted.hashIP("198.51.100.5"))
	assert.Empty(t, salted.hashIP(""))
}

func TestElapsedSeconds(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, elapsedSeconds(start, start.Add(2999*time.Millisecond)))
	assert.Equal(t, 0, elapsedSeconds(start, start.Add(-time.Second)))
}
