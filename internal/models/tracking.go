package models

import (
	"time"

	"gorm.io/gorm"
)

// Query is one search submitted during the search task.
type Query struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	SessionID       string     `gorm:"size:36;not null;index:idx_queries_session_order" json:"session_id"`
	QueryOrder      int        `gorm:"not null;index:idx_queries_session_order" json:"query_order"`
	QueryText       string     `gorm:"type:text;not null" json:"query_text"`
	QueryStructure  string     `gorm:"size:32" json:"query_structure,omitempty"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int       `json:"duration_seconds"`
	ClickCount      int        `gorm:"not null;default:0" json:"click_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (Query) TableName() string {
	return "queries"
}

func (q *Query) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = generateUUID()
	}
	return nil
}

// Click is an append-only record of one result click.
type Click struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	QueryID     string    `gorm:"size:36;not null;index:idx_clicks_query_order" json:"query_id"`
	SessionID   string    `gorm:"size:36;not null;index" json:"session_id"`
	ClickOrder  int       `gorm:"not null;index:idx_clicks_query_order" json:"click_order"`
	ClickedURL  string    `gorm:"type:text;not null" json:"clicked_url"`
	ClickedRank *int      `json:"clicked_rank"`
	ClickTime   time.Time `gorm:"not null" json:"click_time"`
}

func (Click) TableName() string {
	return "clicks"
}

func (c *Click) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// ScrollEvent records the flushed maximum scroll depth for one page visit.
type ScrollEvent struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID    string    `gorm:"size:36;not null;index" json:"session_id"`
	QueryID      *string   `gorm:"size:36;index" json:"query_id,omitempty"`
	Path         string    `gorm:"size:512" json:"path"`
	MaxScrollPct int       `gorm:"not null" json:"max_scroll_pct"`
	RecordedAt   time.Time `gorm:"not null" json:"recorded_at"`
}

func (ScrollEvent) TableName() string {
	return "scroll_events"
}

func (e *ScrollEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}

// HoverEvent records a dwell over a search result.
type HoverEvent struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID   string    `gorm:"size:36;not null;index" json:"session_id"`
	QueryID     *string   `gorm:"size:36;index" json:"query_id,omitempty"`
	HoveredURL  string    `gorm:"type:text;not null" json:"hovered_url"`
	HoveredRank *int      `json:"hovered_rank"`
	HoverMs     int       `gorm:"not null" json:"hover_ms"`
	RecordedAt  time.Time `gorm:"not null" json:"recorded_at"`
}

func (HoverEvent) TableName() string {
	return "hover_events"
}

func (e *HoverEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}
