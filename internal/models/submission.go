package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission rows are immutable once written. Each one captures the
// finalized answers for a page and is distinct from the SavedResponse draft.

// BackgroundSurveyResponse holds q1..q10 of the background survey.
type BackgroundSurveyResponse struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID      string     `gorm:"size:36;not null;index" json:"participant_id"`
	SessionID          *string    `gorm:"size:36;index" json:"session_id,omitempty"`
	Q1Age              string     `gorm:"size:32" json:"q1_age"`
	Q2Gender           string     `gorm:"size:64" json:"q2_gender"`
	Q3Education        string     `gorm:"size:64" json:"q3_education"`
	Q4Occupation       string     `gorm:"size:128" json:"q4_occupation"`
	Q5SearchFrequency  int        `json:"q5_search_frequency"`
	Q6SearchConfidence int        `json:"q6_search_confidence"`
	Q7Devices          StringList `json:"q7_devices"`
	Q8AttentionCheck   int        `json:"q8_attention_check"`
	Q9OnlineShopping   int        `json:"q9_online_shopping"`
	Q10PriorKnowledge  int        `json:"q10_prior_knowledge"`
	SubmittedAt        time.Time  `gorm:"not null" json:"submitted_at"`
}

func (BackgroundSurveyResponse) TableName() string {
	return "background_survey_responses"
}

func (r *BackgroundSurveyResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// TaskInstructionResponse records that the participant read the task brief.
type TaskInstructionResponse struct {
	ID                  string    `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID       string    `gorm:"size:36;not null;index" json:"participant_id"`
	SessionID           *string   `gorm:"size:36;index" json:"session_id,omitempty"`
	Acknowledged        bool      `json:"acknowledged"`
	ComprehensionAnswer string    `gorm:"type:text" json:"comprehension_answer"`
	ReadingSeconds      int       `json:"reading_seconds"`
	SubmittedAt         time.Time `gorm:"not null" json:"submitted_at"`
}

func (TaskInstructionResponse) TableName() string {
	return "task_instruction_responses"
}

func (r *TaskInstructionResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// PostTaskSurveyResponse holds q16..q23 of the post-task survey.
type PostTaskSurveyResponse struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID   string    `gorm:"size:36;not null;index" json:"participant_id"`
	SessionID       *string   `gorm:"size:36;index" json:"session_id,omitempty"`
	Q16Satisfaction int       `json:"q16_satisfaction"`
	Q17Ease         int       `json:"q17_ease"`
	Q18Confidence   int       `json:"q18_confidence"`
	Q19Trust        int       `json:"q19_trust"`
	Q20Effort       int       `json:"q20_effort"`
	Q21Workload     int       `json:"q21_workload"`
	Q22Strategy     string    `gorm:"type:text" json:"q22_strategy"`
	Q23Feedback     string    `gorm:"type:text" json:"q23_feedback"`
	SubmittedAt     time.Time `gorm:"not null" json:"submitted_at"`
}

func (PostTaskSurveyResponse) TableName() string {
	return "post_task_survey_responses"
}

func (r *PostTaskSurveyResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// SearchResultLog holds the participant's findings (q11..q15) for one
// completed search-task session.
type SearchResultLog struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID string     `gorm:"size:36;not null;index" json:"participant_id"`
	SessionID     string     `gorm:"size:36;not null;index" json:"session_id"`
	Q11BestOption string     `gorm:"type:text" json:"q11_best_option"`
	Q12OptionURL  string     `gorm:"type:text" json:"q12_option_url"`
	Q13Sources    StringList `json:"q13_sources"`
	Q14Confidence int        `json:"q14_confidence"`
	Q15Rationale  string     `gorm:"type:text" json:"q15_rationale"`
	SubmittedAt   time.Time  `gorm:"not null" json:"submitted_at"`
}

func (SearchResultLog) TableName() string {
	return "search_result_logs"
}

func (r *SearchResultLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Participant{},
		&Session{},
		&SessionTiming{},
		&SessionSummary{},
		&Query{},
		&Click{},
		&ScrollEvent{},
		&HoverEvent{},
		&SavedResponse{},
		&ResponseHistory{},
		&BackgroundSurveyResponse{},
		&TaskInstructionResponse{},
		&PostTaskSurveyResponse{},
		&SearchResultLog{},
	}
}
