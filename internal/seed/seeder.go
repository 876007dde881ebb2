// Package seed fills a development database with synthetic participants
// by walking each one through the study flow with the real services.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/database"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/study"
	"github.com/zfogg/searchstudy/internal/validation"
	"github.com/zfogg/searchstudy/pkg/pages"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	devices     = []string{"desktop", "mobile", "tablet"}
	structures  = []string{"keyword", "question", "quoted", "boolean", "single_term"}
	educations  = []string{"high school", "some college", "bachelor", "master", "doctorate"}
	genders     = []string{"woman", "man", "non-binary", "prefer not to say"}
	ageBrackets = []string{"18-24", "25-34", "35-44", "45-54", "55+"}
	phoneTerms  = []string{"phone deals", "best phone plan", "unlocked phone discount", "trade in offer", "cheap smartphone"}
)

// Seeder handles database seeding operations
type Seeder struct {
	db          *gorm.DB
	clock       time.Time
	attention   validation.AttentionCheck
	sessions    *study.SessionService
	tracking    *study.TrackingService
	responses   *study.ResponseService
	submissions *study.SubmissionService
	index       *search.ESProvider
}

// NewSeeder creates a seeder. Timestamps start a week in the past and
// advance as participants act.
func NewSeeder(db *gorm.DB, attentionMode string) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())

	s := &Seeder{
		db:        db,
		clock:     time.Now().UTC().Add(-7 * 24 * time.Hour),
		attention: validation.NewAttentionCheck(attentionMode),
	}
	opts := study.Options{Now: s.now, AttentionCheck: s.attention}
	s.sessions = study.NewSessionService(db, opts)
	s.tracking = study.NewTrackingService(db, opts)
	s.responses = study.NewResponseService(db, opts)
	s.submissions = study.NewSubmissionService(db, opts)
	return s
}

// SetSearchIndex enables seeding the search corpus
func (s *Seeder) SetSearchIndex(p *search.ESProvider) {
	s.index = p
}

func (s *Seeder) now() time.Time { return s.clock }

func (s *Seeder) advance(minSec, maxSec int) {
	s.clock = s.clock.Add(time.Duration(gofakeit.Number(minSec, maxSec)) * time.Second)
}

// SeedDev walks n synthetic participants through the full flow
func (s *Seeder) SeedDev(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.seedParticipant(ctx); err != nil {
			return fmt.Errorf("failed to seed participant %d: %w", i+1, err)
		}
	}
	logger.Log.Info("Seeded participants", zap.Int("count", n))

	if s.index != nil {
		if err := s.SeedSearchCorpus(ctx, n*10); err != nil {
			return fmt.Errorf("failed to seed search corpus: %w", err)
		}
	} else {
		logger.Log.Info("Search index not configured - skipping corpus seeding")
	}
	return nil
}

// attentionAnswer returns an answer the configured check accepts
func (s *Seeder) attentionAnswer() pages.Scale {
	if s.attention.Mode == config.AttentionCheckInstructed {
		return pages.Scale(s.attention.Expected)
	}
	return pages.Scale(gofakeit.Number(2, 5))
}

func (s *Seeder) seedParticipant(ctx context.Context) error {
	who := study.ParticipantInfo{
		ParticipantID: gofakeit.UUID(),
		DeviceType:    gofakeit.RandomString(devices),
		IPAddress:     gofakeit.IPv4Address(),
	}

	session, err := s.sessions.ConfirmConsent(ctx, who)
	if err != nil {
		return err
	}
	s.advance(20, 90)

	background := &pages.BackgroundSurvey{
		Q1Age:              gofakeit.RandomString(ageBrackets),
		Q2Gender:           gofakeit.RandomString(genders),
		Q3Education:        gofakeit.RandomString(educations),
		Q4Occupation:       gofakeit.JobTitle(),
		Q5SearchFrequency:  pages.Scale(gofakeit.Number(1, 7)),
		Q6SearchConfidence: pages.Scale(gofakeit.Number(1, 7)),
		Q7Devices:          []string{gofakeit.RandomString(devices)},
		Q8AttentionCheck:   s.attentionAnswer(),
		Q9OnlineShopping:   pages.Scale(gofakeit.Number(1, 7)),
		Q10PriorKnowledge:  pages.Scale(gofakeit.Number(1, 7)),
	}
	if err := s.saveDraft(ctx, who, background); err != nil {
		return err
	}
	if _, err := s.submissions.SubmitBackgroundSurvey(ctx, who, &session.ID, background); err != nil {
		return err
	}
	s.advance(30, 120)

	if _, err := s.submissions.SubmitTaskInstruction(ctx, who, &session.ID, &pages.TaskInstruction{
		Acknowledged:   true,
		ReadingSeconds: pages.Scale(gofakeit.Number(15, 90)),
	}); err != nil {
		return err
	}

	var bestURL string
	queries := gofakeit.Number(1, 4)
	for q := 0; q < queries; q++ {
		url, err := s.seedQuery(ctx, session.ID)
		if err != nil {
			return err
		}
		if url != "" {
			bestURL = url
		}
	}

	if _, err := s.submissions.SubmitResultLog(ctx, who, session.ID, &pages.ResultLog{
		Q11BestOption: gofakeit.ProductName(),
		Q12OptionURL:  bestURL,
		Q13Sources:    []string{gofakeit.Company(), gofakeit.Company()},
		Q14Confidence: pages.Scale(gofakeit.Number(1, 7)),
		Q15Rationale:  gofakeit.HipsterSentence(),
	}); err != nil {
		return err
	}
	s.advance(30, 180)

	if _, err := s.submissions.SubmitPostTaskSurvey(ctx, who, &session.ID, &pages.PostTaskSurvey{
		Q16Satisfaction: pages.Scale(gofakeit.Number(1, 7)),
		Q17Ease:         pages.Scale(gofakeit.Number(1, 7)),
		Q18Confidence:   pages.Scale(gofakeit.Number(1, 7)),
		Q19Trust:        pages.Scale(gofakeit.Number(1, 7)),
		Q20Effort:       pages.Scale(gofakeit.Number(1, 7)),
		Q21Workload:     pages.Scale(gofakeit.Number(1, 7)),
		Q22Strategy:     gofakeit.HipsterSentence(),
	}); err != nil {
		return err
	}

	_, err = s.sessions.EndSession(ctx, study.EndSessionInput{SessionID: session.ID})
	return err
}

// seedQuery runs one search with clicks, hovers and scrolling. It returns
// the last clicked URL.
func (s *Seeder) seedQuery(ctx context.Context, sessionID string) (string, error) {
	query, err := s.tracking.StartQuery(ctx, study.StartQueryInput{
		SessionID:      sessionID,
		QueryText:      gofakeit.RandomString(phoneTerms),
		QueryStructure: gofakeit.RandomString(structures),
	})
	if err != nil {
		return "", err
	}

	var lastURL string
	depth := 0
	for c := gofakeit.Number(0, 3); c > 0; c-- {
		s.advance(3, 40)
		rank := gofakeit.Number(1, 10)
		url := gofakeit.URL()
		if _, err := s.tracking.LogHover(ctx, study.LogHoverInput{
			SessionID:   sessionID,
			QueryID:     &query.ID,
			HoveredURL:  url,
			HoveredRank: &rank,
			HoverMs:     gofakeit.Number(200, 4000),
		}); err != nil {
			return "", err
		}
		if _, err := s.tracking.LogClick(ctx, study.LogClickInput{
			QueryID:     query.ID,
			ClickedURL:  url,
			ClickedRank: &rank,
		}); err != nil {
			return "", err
		}
		lastURL = url

		depth += gofakeit.Number(5, 40)
		if _, err := s.tracking.LogScroll(ctx, study.LogScrollInput{
			SessionID:    sessionID,
			QueryID:      &query.ID,
			Path:         "/search",
			MaxScrollPct: depth,
		}); err != nil {
			return "", err
		}
	}

	s.advance(5, 60)
	if _, err := s.tracking.EndQuery(ctx, query.ID); err != nil {
		return "", err
	}
	return lastURL, nil
}

func (s *Seeder) saveDraft(ctx context.Context, who study.ParticipantInfo, page pages.Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	_, err = s.responses.Save(ctx, study.SaveInput{
		Participant:  who,
		PageID:       page.PageID(),
		ResponseData: data,
	})
	return err
}

// SeedSearchCorpus indexes n synthetic shopping pages for the search task
func (s *Seeder) SeedSearchCorpus(ctx context.Context, n int) error {
	if s.index == nil {
		return fmt.Errorf("search index not configured")
	}
	if err := s.index.EnsureIndex(ctx); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		product := gofakeit.ProductName()
		doc := search.Document{
			ID:      gofakeit.UUID(),
			Title:   fmt.Sprintf("%s - %s", product, gofakeit.Company()),
			URL:     gofakeit.URL(),
			Snippet: fmt.Sprintf("%s %s", gofakeit.RandomString(phoneTerms), gofakeit.HipsterSentence()),
			Body:    gofakeit.HipsterSentence(),
		}
		if err := s.index.IndexDocument(ctx, doc); err != nil {
			return err
		}
	}
	logger.Log.Info("Seeded search corpus", zap.Int("documents", n))
	return nil
}

// Clean removes all study data
func (s *Seeder) Clean() error {
	return database.Truncate(s.db)
}
