package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Change types recorded in response_history
const (
	ChangeCreate       = "create"
	ChangeUpdate       = "update"
	ChangeNavigateAway = "navigate_away"
	ChangeNavigateBack = "navigate_back"
	ChangeClear        = "clear"
)

// SavedResponse is the server-side draft for one page. There is at most one
// live row per (participant_id, page_id); clearing soft-deletes it and the
// next save revives the same row.
type SavedResponse struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID string         `gorm:"size:36;not null;uniqueIndex:idx_saved_responses_participant_page" json:"participant_id"`
	PageID        string         `gorm:"size:64;not null;uniqueIndex:idx_saved_responses_participant_page" json:"page_id"`
	ResponseData  datatypes.JSON `json:"response_data"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (SavedResponse) TableName() string {
	return "saved_responses"
}

func (r *SavedResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// ResponseHistory is the append-only audit log of draft changes.
type ResponseHistory struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID string         `gorm:"size:36;not null;index:idx_response_history_participant_page" json:"participant_id"`
	PageID        string         `gorm:"size:64;not null;index:idx_response_history_participant_page" json:"page_id"`
	ResponseData  datatypes.JSON `json:"response_data"`
	ChangeType    string         `gorm:"size:16;not null" json:"change_type"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

func (ResponseHistory) TableName() string {
	return "response_history"
}

func (h *ResponseHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = generateUUID()
	}
	return nil
}
