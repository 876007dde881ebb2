package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is one continuous visit through the study flow. At most one
// session per participant has a nil SessionEndTime; the partial unique index
// idx_sessions_one_open enforces it.
type Session struct {
	ID                       string     `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID            string     `gorm:"size:36;not null;index" json:"participant_id"`
	SessionStartTime         time.Time  `gorm:"not null" json:"session_start_time"`
	SessionEndTime           *time.Time `json:"session_end_time"`
	QueryCount               int        `gorm:"not null;default:0" json:"query_count"`
	TotalClickedResultsCount int        `gorm:"not null;default:0" json:"total_clicked_results_count"`
	ScrollDepthMax           int        `gorm:"not null;default:0" json:"scroll_depth_max"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// TableName specifies the table name
func (Session) TableName() string {
	return "sessions"
}

// IsOpen reports whether the session has not been ended
func (s *Session) IsOpen() bool {
	return s.SessionEndTime == nil
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

// SessionTiming is the audit record opened alongside a session and
// finalized when the session ends or is superseded.
type SessionTiming struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	SessionID       string     `gorm:"size:36;not null;uniqueIndex" json:"session_id"`
	ParticipantID   string     `gorm:"size:36;not null;index" json:"participant_id"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int       `json:"duration_seconds"`
	EndReason       string     `gorm:"size:32" json:"end_reason,omitempty"` // ended, superseded
	CreatedAt       time.Time  `json:"created_at"`
}

func (SessionTiming) TableName() string {
	return "session_timings"
}

func (t *SessionTiming) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	return nil
}

// SessionSummary is the denormalized per-session aggregate, recomputed from
// live counts after each query or click event.
type SessionSummary struct {
	SessionID        string    `gorm:"primaryKey;size:36" json:"session_id"`
	TotalSearches    int       `json:"total_searches"`
	TotalClicks      int       `json:"total_clicks"`
	AvgTimePerQuery  float64   `json:"avg_time_per_query"`
	ClicksPerQuery   float64   `json:"clicks_per_query"`
	QueriesPerMinute float64   `json:"queries_per_minute"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (SessionSummary) TableName() string {
	return "session_summaries"
}
