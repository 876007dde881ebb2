package study

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"github.com/zfogg/searchstudy/internal/validation"
	"github.com/zfogg/searchstudy/pkg/pages"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxScale = 10

// SubmissionService appends finalized page answers. Rows are never updated.
type SubmissionService struct {
	base
	attention validation.AttentionCheck
}

// NewSubmissionService creates a submission service
func NewSubmissionService(db *gorm.DB, opts Options) *SubmissionService {
	attention := opts.AttentionCheck
	if attention.Mode == "" {
		attention = validation.NewAttentionCheck("")
	}
	return &SubmissionService{base: newBase(db, opts), attention: attention}
}

// SubmitBackgroundSurvey validates and stores the background survey.
func (s *SubmissionService) SubmitBackgroundSurvey(ctx context.Context, who ParticipantInfo, sessionID *string, in *pages.BackgroundSurvey) (row *models.BackgroundSurveyResponse, err error) {
	const kind = "background_survey"
	defer func() { s.record(kind, who.ParticipantID, err) }()

	if apiErr := validation.First(
		validation.Struct(in),
		scaleRange("q5_search_frequency", in.Q5SearchFrequency),
		scaleRange("q6_search_confidence", in.Q6SearchConfidence),
		scaleRange("q9_online_shopping", in.Q9OnlineShopping),
		scaleRange("q10_prior_knowledge", in.Q10PriorKnowledge),
		s.attention.Validate("q8_attention_check", in.Q8AttentionCheck.Int()),
	); apiErr != nil {
		return nil, apiErr
	}

	row = &models.BackgroundSurveyResponse{
		ParticipantID:      who.ParticipantID,
		SessionID:          sessionID,
		Q1Age:              in.Q1Age,
		Q2Gender:           in.Q2Gender,
		Q3Education:        in.Q3Education,
		Q4Occupation:       in.Q4Occupation,
		Q5SearchFrequency:  in.Q5SearchFrequency.Int(),
		Q6SearchConfidence: in.Q6SearchConfidence.Int(),
		Q7Devices:          models.StringList(in.Q7Devices),
		Q8AttentionCheck:   in.Q8AttentionCheck.Int(),
		Q9OnlineShopping:   in.Q9OnlineShopping.Int(),
		Q10PriorKnowledge:  in.Q10PriorKnowledge.Int(),
		SubmittedAt:        s.now(),
	}
	if err = s.insert(ctx, kind, who, sessionID, row); err != nil {
		return nil, err
	}
	return row, nil
}

// SubmitTaskInstruction stores the task-brief acknowledgement.
func (s *SubmissionService) SubmitTaskInstruction(ctx context.Context, who ParticipantInfo, sessionID *string, in *pages.TaskInstruction) (row *models.TaskInstructionResponse, err error) {
	const kind = "task_instruction"
	defer func() { s.record(kind, who.ParticipantID, err) }()

	if !in.Acknowledged {
		return nil, apperrors.ValidationError("acknowledged", "task instructions must be acknowledged")
	}

	reading := in.ReadingSeconds.Int()
	if reading < 0 {
		reading = 0
	}
	row = &models.TaskInstructionResponse{
		ParticipantID:       who.ParticipantID,
		SessionID:           sessionID,
		Acknowledged:        in.Acknowledged,
		ComprehensionAnswer: in.ComprehensionAnswer,
		ReadingSeconds:      reading,
		SubmittedAt:         s.now(),
	}
	if err = s.insert(ctx, kind, who, sessionID, row); err != nil {
		return nil, err
	}
	return row, nil
}

// SubmitPostTaskSurvey validates and stores the post-task survey.
func (s *SubmissionService) SubmitPostTaskSurvey(ctx context.Context, who ParticipantInfo, sessionID *string, in *pages.PostTaskSurvey) (row *models.PostTaskSurveyResponse, err error) {
	const kind = "post_task_survey"
	defer func() { s.record(kind, who.ParticipantID, err) }()

	if apiErr := validation.First(
		scaleRange("q16_satisfaction", in.Q16Satisfaction),
		scaleRange("q17_ease", in.Q17Ease),
		scaleRange("q18_confidence", in.Q18Confidence),
		scaleRange("q19_trust", in.Q19Trust),
		scaleRange("q20_effort", in.Q20Effort),
		scaleRange("q21_workload", in.Q21Workload),
	); apiErr != nil {
		return nil, apiErr
	}

	row = &models.PostTaskSurveyResponse{
		ParticipantID:   who.ParticipantID,
		SessionID:       sessionID,
		Q16Satisfaction: in.Q16Satisfaction.Int(),
		Q17Ease:         in.Q17Ease.Int(),
		Q18Confidence:   in.Q18Confidence.Int(),
		Q19Trust:        in.Q19Trust.Int(),
		Q20Effort:       in.Q20Effort.Int(),
		Q21Workload:     in.Q21Workload.Int(),
		Q22Strategy:     in.Q22Strategy,
		Q23Feedback:     in.Q23Feedback,
		SubmittedAt:     s.now(),
	}
	if err = s.insert(ctx, kind, who, sessionID, row); err != nil {
		return nil, err
	}
	return row, nil
}

// SubmitResultLog stores the findings for a session that belongs to the
// participant.
func (s *SubmissionService) SubmitResultLog(ctx context.Context, who ParticipantInfo, sessionID string, in *pages.ResultLog) (row *models.SearchResultLog, err error) {
	const kind = "result_log"
	defer func() { s.record(kind, who.ParticipantID, err) }()

	if apiErr := validation.First(
		validation.Struct(in),
		scaleRange("q14_confidence", in.Q14Confidence),
	); apiErr != nil {
		return nil, apiErr
	}

	row = &models.SearchResultLog{
		ParticipantID: who.ParticipantID,
		SessionID:     sessionID,
		Q11BestOption: in.Q11BestOption,
		Q12OptionURL:  in.Q12OptionURL,
		Q13Sources:    models.StringList(in.Q13Sources),
		Q14Confidence: in.Q14Confidence.Int(),
		Q15Rationale:  in.Q15Rationale,
		SubmittedAt:   s.now(),
	}
	if err = s.insert(ctx, kind, who, &sessionID, row); err != nil {
		return nil, err
	}
	return row, nil
}

// insert checks session ownership, upserts the participant and appends row.
func (s *SubmissionService) insert(ctx context.Context, kind string, who ParticipantInfo, sessionID *string, row interface{}) (err error) {
	ctx, span := s.events.TraceSubmission(ctx, kind, who.ParticipantID)
	defer func() { telemetry.End(span, err) }()

	return s.withTx(ctx, func(tx *gorm.DB) error {
		if sessionID != nil && *sessionID != "" {
			session, err := s.loadSession(tx, *sessionID)
			if err != nil {
				return err
			}
			if session.ParticipantID != who.ParticipantID {
				return ErrParticipantMismatch
			}
		}
		if err := s.upsertParticipant(tx, who); err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert %s: %w", kind, err)
		}
		return nil
	})
}

func (s *SubmissionService) record(kind, participantID string, err error) {
	status := "ok"
	if err != nil {
		status = "rejected"
		if _, ok := err.(*apperrors.APIError); !ok {
			status = "error"
		}
	}
	s.metrics.SubmissionsTotal.WithLabelValues(kind, status).Inc()
	if err == nil {
		logger.Log.Info("Submission stored",
			zap.String("kind", kind),
			logger.WithParticipantID(participantID),
			zap.Time("submitted_at", s.now().Truncate(time.Second)),
		)
	}
}

func scaleRange(field string, v pages.Scale) *apperrors.APIError {
	if v < 0 || v > maxScale {
		return apperrors.ValidationError(field, fmt.Sprintf("%s must be between 0 and %d", field, maxScale))
	}
	return nil
}
