package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/testutil/apiserver"
	"github.com/zfogg/searchstudy/pkg/output"
	"github.com/zfogg/searchstudy/pkg/storage"
)

type stubProvider struct{}

func (stubProvider) Search(_ context.Context, query string, opts search.Options) (*search.Results, error) {
	return &search.Results{
		Query: query,
		Total: 2,
		Results: []search.Result{
			{Rank: 1, Title: "Phone deals this week", URL: "https://shop.example/deals"},
			{Rank: 2, Title: "Refurbished phones", URL: "https://shop.example/refurb"},
		},
	}, nil
}

type CmdTestSuite struct {
	suite.Suite
	srv    *apiserver.Server
	config string
	out    *bytes.Buffer
	stderr *bytes.Buffer
}

func (s *CmdTestSuite) SetupTest() {
	s.srv = apiserver.Start(s.T(), apiserver.Options{Search: stubProvider{}})

	dir := s.T().TempDir()
	s.config = filepath.Join(dir, "config.toml")
	toml := fmt.Sprintf("[api]\nbase_url = %q\ntimeout = 5\n", s.srv.URL)
	s.Require().NoError(os.WriteFile(s.config, []byte(toml), 0600))

	color.NoColor = true
	s.out = &bytes.Buffer{}
	s.stderr = &bytes.Buffer{}
	prev := output.Out
	output.Out = s.out
	s.T().Cleanup(func() { output.Out = prev })
}

func (s *CmdTestSuite) run(args ...string) int {
	s.out.Reset()
	s.stderr.Reset()
	return Run(append(args, "--config", s.config), s.stderr)
}

func (s *CmdTestSuite) mustRun(args ...string) string {
	code := s.run(args...)
	s.Require().Equal(0, code, "studyctl %v: %s", args, s.stderr.String())
	return s.out.String()
}

func (s *CmdTestSuite) participantID() string {
	kv, err := storage.OpenFile(filepath.Join(filepath.Dir(s.config), "state.json"))
	s.Require().NoError(err)
	pid, ok := kv.Get("participant_id")
	s.Require().True(ok)
	return pid
}

func (s *CmdTestSuite) TestParticipantFlow() {
	s.Contains(s.mustRun("consent", "--yes"), "Consent recorded")
	pid := s.participantID()

	s.Contains(s.mustRun("draft", "save", "background_survey", "--data", `{"q1_age":"25-34"}`), "Draft saved")
	s.Contains(s.mustRun("draft", "save", "background_survey", "--data", `{"q1_age":"25-34"}`), "Nothing new")
	s.Contains(s.mustRun("draft", "load", "background_survey"), "25-34")

	s.mustRun("submit", "background_survey", "--data",
		`{"q1_age":"25-34","q2_gender":"prefer not to say","q3_education":"bachelor","q5_search_frequency":"5","q8_attention_check":3}`)
	s.Contains(s.mustRun("draft", "load", "background_survey"), "No draft")

	s.mustRun("submit", "task_instruction", "--data", `{"acknowledged":true}`)

	out := s.mustRun("search", "phone", "deals")
	s.Contains(out, "https://shop.example/deals")
	s.Contains(out, "Query #1")

	s.Contains(s.mustRun("click", "https://shop.example/deals", "--rank", "1"), "Click #1")
	s.Contains(s.mustRun("hover", "https://shop.example/refurb", "--rank", "2", "--ms", "900"), "Hover recorded")
	s.Contains(s.mustRun("scroll", "10", "45", "30", "80", "5"), "80%")
	s.mustRun("query", "end")

	s.mustRun("submit", "result_log", "--data", `{"q11_best_option":"Phone X","q14_confidence":6}`)

	summary := s.mustRun("session", "summary", "-o", "json")
	s.Contains(summary, `"total_searches": 1`)
	s.Contains(summary, `"total_clicks": 1`)

	s.mustRun("submit", "post_task_survey", "--data", `{"q16_satisfaction":5}`)
	status := s.mustRun("session", "status", "-o", "json")
	s.Contains(status, `"query_count": 1`)
	s.Contains(status, `"scroll_depth_max": 80`)
	s.Contains(s.mustRun("session", "end"), "Session ended")
	s.Contains(s.mustRun("session", "status"), "no_session")

	var session models.Session
	s.Require().NoError(s.srv.DB.Where("participant_id = ?", pid).First(&session).Error)
	s.NotNil(session.SessionEndTime)
	s.Equal(1, session.QueryCount)
	s.Equal(1, session.TotalClickedResultsCount)
	s.Equal(80, session.ScrollDepthMax)

	var logs int64
	s.Require().NoError(s.srv.DB.Model(&models.SearchResultLog{}).Where("participant_id = ?", pid).Count(&logs).Error)
	s.EqualValues(1, logs)
}

func (s *CmdTestSuite) TestAttentionCheckRejected() {
	s.mustRun("consent", "--yes")
	code := s.run("submit", "background_survey", "--data",
		`{"q1_age":"25-34","q2_gender":"x","q3_education":"y","q8_attention_check":1}`)
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "Error (validation): attention check failed (q8_attention_check)")
	s.Contains(s.stderr.String(), "Suggestion: Re-read question 8")
}

func (s *CmdTestSuite) TestResultLogNeedsSession() {
	s.mustRun("whoami")
	code := s.run("submit", "result_log", "--data", `{"q11_best_option":"Phone X"}`)
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "state")
}

func (s *CmdTestSuite) TestUnknownPage() {
	s.Equal(1, s.run("draft", "load", "checkout"))
	s.Contains(s.stderr.String(), "unknown page")
}

func (s *CmdTestSuite) TestSubmitWithoutAnswers() {
	s.mustRun("consent", "--yes")
	s.Equal(1, s.run("submit", "post_task_survey"))
	s.Contains(s.stderr.String(), "no draft")
}

func (s *CmdTestSuite) TestClickWithoutQuery() {
	s.mustRun("consent", "--yes")
	s.Equal(1, s.run("click", "https://shop.example/deals"))
}

func (s *CmdTestSuite) TestConsentClearsDrafts() {
	s.mustRun("consent", "--yes")
	s.mustRun("draft", "save", "post_task_survey", "--data", `{"q22_strategy":"compare prices"}`)
	s.Regexp(`post_task_survey\s+yes`, s.mustRun("draft", "list", "-o", "table"))

	s.mustRun("consent", "--yes")
	s.Contains(s.mustRun("draft", "load", "post_task_survey"), "No draft")
}

func (s *CmdTestSuite) TestVersion() {
	s.Contains(s.mustRun("version"), "studyctl v")
}

func (s *CmdTestSuite) TestInvalidOutputFormat() {
	s.Equal(1, s.run("whoami", "-o", "yaml"))
}

func TestCmdTestSuite(t *testing.T) {
	suite.Run(t, new(CmdTestSuite))
}

func TestWireRejectsUnknownBackend(t *testing.T) {
	_, err := wire(storage.NewMemoryKV(), nil, "s3")
	if err == nil {
		t.Fatal("expected an error for an unknown drafts backend")
	}
}
