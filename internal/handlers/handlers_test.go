package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/searchstudy/internal/cache"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/testutil"
	"gorm.io/gorm"
)

type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	clock    *testutil.FixedClock
	handlers *Handlers
	router   *gin.Engine
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = testutil.OpenDB(s.T())
	s.clock = &testutil.FixedClock{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	s.handlers = NewHandlers(s.db, study.Options{Cache: cache.NewMemoryCache(), Now: s.clock.Now})

	s.router = gin.New()
	s.router.GET("/health", s.handlers.Health)
	api := s.router.Group("/api/v1")
	s.handlers.RegisterRoutes(api)
	s.handlers.RegisterSearchRoutes(api)
}

type envelope map[string]interface{}

func (s *HandlersTestSuite) do(method, path string, body interface{}) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (s *HandlersTestSuite) post(path string, body interface{}) (int, envelope) {
	return s.do(http.MethodPost, "/api/v1"+path, body)
}

func (s *HandlersTestSuite) consent() (participantID, sessionID string) {
	participantID = uuid.NewString()
	code, body := s.post("/consent-confirm", gin.H{"participant_id": participantID})
	s.Require().Equal(http.StatusOK, code, body)
	return participantID, body["session_id"].(string)
}

func (s *HandlersTestSuite) assertError(code int, body envelope, wantStatus int, wantCode string) {
	s.Equal(wantStatus, code, body)
	s.Equal(false, body["ok"])
	s.Equal(wantCode, body["code"])
	s.NotEmpty(body["error"])
}

func (s *HandlersTestSuite) TestHealth() {
	code, body := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("healthy", body["status"])
}

func (s *HandlersTestSuite) TestConsentThenEnsure() {
	participantID, sessionID := s.consent()

	code, body := s.post("/session-ensure", gin.H{"participant_id": participantID})
	s.Equal(http.StatusOK, code)
	s.Equal(true, body["ok"])
	s.Equal(sessionID, body["session_id"])
	s.Equal(false, body["created"])

	var p models.Participant
	s.Require().NoError(s.db.First(&p, "id = ?", participantID).Error)
	s.Equal("mobile", p.DeviceType)
}

func (s *HandlersTestSuite) TestConsentTwiceLeavesOneOpenSession() {
	participantID, first := s.consent()
	code, body := s.post("/consent-confirm", gin.H{"participant_id": participantID})
	s.Require().Equal(http.StatusOK, code)
	s.NotEqual(first, body["session_id"])

	var open int64
	s.Require().NoError(s.db.Model(&models.Session{}).
		Where("participant_id = ? AND session_end_time IS NULL", participantID).
		Count(&open).Error)
	s.EqualValues(1, open)
}

func (s *HandlersTestSuite) TestInvalidUUIDRejected() {
	code, body := s.post("/consent-confirm", gin.H{"participant_id": "not-a-uuid"})
	s.assertError(code, body, http.StatusBadRequest, "INVALID_UUID")
	s.Equal("participant_id", body["field"])

	code, body = s.post("/session-ensure", gin.H{})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func (s *HandlersTestSuite) TestBindingErrorsNameTheField() {
	_, sessionID := s.consent()

	code, body := s.post("/query-start", gin.H{"session_id": sessionID, "query_text": strings.Repeat("q", 2049)})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	s.Equal("query_text", body["field"])

	code, body = s.post("/log-hover", gin.H{"session_id": sessionID, "query_id": "nope", "hovered_url": "https://a.example"})
	s.assertError(code, body, http.StatusBadRequest, "INVALID_UUID")
	s.Equal("query_id", body["field"])

	code, body = s.post("/log-scroll", gin.H{"session_id": sessionID, "query_id": "", "path": "/search", "max_scroll_pct": 20})
	s.Equal(http.StatusOK, code, body)

	code, body = s.do(http.MethodGet, "/api/v1/sessions/not-a-uuid/summary", nil)
	s.assertError(code, body, http.StatusBadRequest, "INVALID_UUID")
	s.Equal("session_id", body["field"])

	code, body = s.post("/save-responses", gin.H{"page_id": "background_survey", "response_data": gin.H{}})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	s.Equal("participant_id", body["field"])

	participantID, _ := s.consent()
	code, body = s.post("/submit-background-survey", gin.H{
		"participant_id":     participantID,
		"q1_age":             "25-34",
		"q2_gender":          "   ",
		"q3_education":       "bachelor",
		"q8_attention_check": 3,
	})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	s.Equal("q2_gender", body["field"])
}

func (s *HandlersTestSuite) TestClickOrderIgnoresClientSequence() {
	_, sessionID := s.consent()
	code, body := s.post("/query-start", gin.H{"session_id": sessionID, "query_text": "phone deals"})
	s.Require().Equal(http.StatusOK, code, body)
	queryID := body["query_id"].(string)

	for want := 1; want <= 2; want++ {
		code, body = s.post("/log-click", gin.H{"query_id": queryID, "clicked_url": "https://a.example", "click_order": 1})
		s.Require().Equal(http.StatusOK, code, body)
		s.EqualValues(want, body["click_order"])
	}
}

func (s *HandlersTestSuite) TestMalformedJSON() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query-start", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"code":"BAD_REQUEST"`)
}

func (s *HandlersTestSuite) TestPhoneDealsScenario() {
	_, sessionID := s.consent()

	code, body := s.post("/query-start", gin.H{"session_id": sessionID, "query_text": "phone deals"})
	s.Require().Equal(http.StatusOK, code, body)
	s.EqualValues(1, body["query_order"])
	queryID := body["query_id"].(string)

	for i, url := range []string{"https://a.example", "https://b.example"} {
		code, body = s.post("/log-click", gin.H{"query_id": queryID, "clicked_url": url, "clicked_rank": i + 1})
		s.Require().Equal(http.StatusOK, code, body)
		s.EqualValues(i+1, body["click_order"])
	}

	s.clock.Advance(42 * time.Second)
	code, body = s.post("/query-end", gin.H{"query_id": queryID})
	s.Require().Equal(http.StatusOK, code, body)
	s.EqualValues(42, body["duration_seconds"])

	var session models.Session
	s.Require().NoError(s.db.First(&session, "id = ?", sessionID).Error)
	s.Equal(1, session.QueryCount)
	s.Equal(2, session.TotalClickedResultsCount)

	code, body = s.do(http.MethodGet, "/api/v1/sessions/"+sessionID+"/summary", nil)
	s.Require().Equal(http.StatusOK, code, body)
	summary := body["summary"].(map[string]interface{})
	s.EqualValues(1, summary["total_searches"])
	s.EqualValues(2, summary["total_clicks"])
}

func (s *HandlersTestSuite) TestTrackingErrors() {
	code, body := s.post("/query-start", gin.H{"session_id": uuid.NewString(), "query_text": "x"})
	s.assertError(code, body, http.StatusNotFound, "NOT_FOUND")

	code, body = s.post("/log-click", gin.H{"query_id": uuid.NewString(), "clicked_url": "https://a.example"})
	s.assertError(code, body, http.StatusNotFound, "NOT_FOUND")
	s.Equal("query_id", body["field"])

	_, sessionID := s.consent()
	code, body = s.post("/query-start", gin.H{"session_id": sessionID, "query_text": "  "})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	code, _ = s.post("/session-end", gin.H{"session_id": sessionID})
	s.Require().Equal(http.StatusOK, code)
	code, body = s.post("/query-start", gin.H{"session_id": sessionID, "query_text": "late"})
	s.assertError(code, body, http.StatusConflict, "SESSION_CLOSED")
}

func (s *HandlersTestSuite) TestGetSession() {
	participantID, sessionID := s.consent()
	code, body := s.post("/query-start", gin.H{"session_id": sessionID, "query_text": "phone deals"})
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.do(http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	s.Require().Equal(http.StatusOK, code, body)
	session := body["session"].(map[string]interface{})
	s.Equal(participantID, session["participant_id"])
	s.EqualValues(1, session["query_count"])

	code, body = s.do(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	s.assertError(code, body, http.StatusNotFound, "NOT_FOUND")
}

func (s *HandlersTestSuite) TestLogScrollKeepsMaximum() {
	_, sessionID := s.consent()

	var last float64
	for _, pct := range []int{10, 45, 30, 80, 5} {
		code, body := s.post("/log-scroll", gin.H{"session_id": sessionID, "path": "/search", "max_scroll_pct": pct})
		s.Require().Equal(http.StatusOK, code, body)
		last = body["scroll_depth_max"].(float64)
	}
	s.EqualValues(80, last)

	code, body := s.post("/log-scroll", gin.H{"session_id": sessionID, "path": "/search", "max_scroll_pct": 250})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(100, body["scroll_depth_max"])
}

func (s *HandlersTestSuite) TestLogHover() {
	_, sessionID := s.consent()
	code, body := s.post("/log-hover", gin.H{"session_id": sessionID, "hovered_url": "https://a.example", "hover_ms": 900})
	s.Equal(http.StatusOK, code, body)
	s.NotEmpty(body["hover_id"])
}

func (s *HandlersTestSuite) TestEndSession() {
	participantID, sessionID := s.consent()

	code, body := s.post("/session-end", gin.H{"participant_id": participantID})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(sessionID, body["session_id"])

	code, body = s.post("/session-end", gin.H{"participant_id": participantID})
	s.Require().Equal(http.StatusOK, code)
	s.Nil(body["session_id"])

	code, body = s.post("/session-end", gin.H{"session_id": sessionID, "participant_id": uuid.NewString()})
	s.assertError(code, body, http.StatusForbidden, "PARTICIPANT_MISMATCH")

	code, body = s.post("/session-end", gin.H{})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func (s *HandlersTestSuite) TestDraftRoundTripAndIsolation() {
	a, _ := s.consent()
	b, _ := s.consent()
	draft := gin.H{"q1_age": "25-34", "q7_devices": []string{"phone", "laptop"}}

	code, body := s.post("/save-responses", gin.H{"participant_id": a, "page_id": "background_survey", "response_data": draft})
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.post("/load-responses", gin.H{"participant_id": a, "page_id": "background_survey"})
	s.Require().Equal(http.StatusOK, code)
	loaded := body["response_data"].(map[string]interface{})
	s.Equal("25-34", loaded["q1_age"])
	s.Equal([]interface{}{"phone", "laptop"}, loaded["q7_devices"])

	code, body = s.post("/load-responses", gin.H{"participant_id": b, "page_id": "background_survey"})
	s.Require().Equal(http.StatusOK, code)
	s.Nil(body["response_data"])

	code, body = s.post("/clear-responses", gin.H{"participant_id": a, "page_id": "background_survey"})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(true, body["cleared"])

	code, body = s.post("/load-responses", gin.H{"participant_id": a, "page_id": "background_survey"})
	s.Require().Equal(http.StatusOK, code)
	s.Nil(body["response_data"])
}

func (s *HandlersTestSuite) TestDraftRejectsUnknownPage() {
	a, _ := s.consent()
	code, body := s.post("/save-responses", gin.H{"participant_id": a, "page_id": "nope", "response_data": gin.H{}})
	s.assertError(code, body, http.StatusBadRequest, "UNKNOWN_PAGE")

	code, body = s.post("/save-responses", gin.H{"participant_id": a, "page_id": "background_survey", "response_data": gin.H{"q1_age": 42}})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

// Participants are told to answer 1, and the deployed validation rejects 1.
func (s *HandlersTestSuite) TestBackgroundSurveyAttentionCheck() {
	participantID, sessionID := s.consent()
	survey := gin.H{
		"participant_id":      participantID,
		"session_id":          sessionID,
		"q1_age":              "25-34",
		"q2_gender":           "woman",
		"q3_education":        "bachelor",
		"q5_search_frequency": "7",
		"q7_devices":          []string{"phone"},
		"q8_attention_check":  1e300,
	}

	code, body := s.post("/submit-background-survey", survey)
	s.assertError(code, body, http.StatusBadRequest, "BAD_REQUEST")

	survey["q8_attention_check"] = 1
	code, body = s.post("/submit-background-survey", survey)
	s.assertError(code, body, http.StatusUnprocessableEntity, "ATTENTION_CHECK_FAILED")
	s.Equal("q8_attention_check", body["field"])

	survey["q8_attention_check"] = "3"
	code, body = s.post("/submit-background-survey", survey)
	s.Require().Equal(http.StatusOK, code, body)

	var row models.BackgroundSurveyResponse
	s.Require().NoError(s.db.First(&row, "id = ?", body["id"]).Error)
	s.Equal(7, row.Q5SearchFrequency)
	s.Equal(3, row.Q8AttentionCheck)
}

func (s *HandlersTestSuite) TestSubmissions() {
	participantID, sessionID := s.consent()

	code, body := s.post("/submit-task-instruction", gin.H{"participant_id": participantID, "acknowledged": true})
	s.Equal(http.StatusOK, code, body)

	code, body = s.post("/result-log", gin.H{
		"participant_id":  participantID,
		"session_id":      sessionID,
		"q11_best_option": "Carrier bundle",
		"q13_sources":     []string{"retailer", "review site"},
		"q14_confidence":  8,
	})
	s.Equal(http.StatusOK, code, body)

	code, body = s.post("/result-log", gin.H{"participant_id": participantID, "q11_best_option": "x"})
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	s.Equal("session_id", body["field"])

	code, body = s.post("/submit-post-task-survey", gin.H{"participant_id": participantID, "session_id": sessionID, "q16_satisfaction": 4})
	s.Equal(http.StatusOK, code, body)

	code, body = s.post("/result-log", gin.H{"participant_id": uuid.NewString(), "session_id": sessionID, "q11_best_option": "x"})
	s.assertError(code, body, http.StatusForbidden, "PARTICIPANT_MISMATCH")
}

type stubProvider struct {
	err error
}

func (p stubProvider) Search(_ context.Context, q string, opts search.Options) (*search.Results, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &search.Results{Query: q, Total: 1, Results: []search.Result{{Rank: 1, Title: "Deal", URL: "https://a.example"}}}, nil
}

func (s *HandlersTestSuite) TestSearch() {
	code, body := s.do(http.MethodGet, "/api/v1/search?q=phone", nil)
	s.assertError(code, body, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")

	s.handlers.SetSearchProvider(stubProvider{})
	code, body = s.do(http.MethodGet, "/api/v1/search?q=phone", nil)
	s.Require().Equal(http.StatusOK, code, body)
	s.EqualValues(1, body["total"])
	s.Len(body["results"], 1)

	code, body = s.do(http.MethodGet, "/api/v1/search", nil)
	s.assertError(code, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	s.handlers.SetSearchProvider(stubProvider{err: errors.New("timeout")})
	code, body = s.do(http.MethodGet, "/api/v1/search?q=phone", nil)
	s.assertError(code, body, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}
