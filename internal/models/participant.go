package models

import (
	"time"

	"gorm.io/gorm"
)

// Participant is one anonymous study taker. The id is generated client-side
// and the row is upserted on the first write that references it.
type Participant struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DeviceType string    `gorm:"size:16" json:"device_type,omitempty"`
	IPAddress  string    `gorm:"size:128" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Participant) TableName() string {
	return "participants"
}

// BeforeCreate hooks for GORM
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
