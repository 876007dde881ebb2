package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/zfogg/searchstudy/internal/errors"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/pkg/pages"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResponseService persists server-side drafts keyed by
// (participant_id, page_id) and logs every change to response_history.
type ResponseService struct {
	base
}

// NewResponseService creates a response service
func NewResponseService(db *gorm.DB, opts Options) *ResponseService {
	return &ResponseService{base: newBase(db, opts)}
}

// SaveInput is one draft write. ChangeType may name a navigation event;
// otherwise create or update is inferred.
type SaveInput struct {
	Participant  ParticipantInfo
	PageID       pages.PageID
	ResponseData json.RawMessage
	ChangeType   string
}

// Save validates the draft against its page schema, upserts the live row
// and appends a history entry.
func (r *ResponseService) Save(ctx context.Context, in SaveInput) (*models.SavedResponse, error) {
	if _, err := pages.Decode(in.PageID, in.ResponseData); err != nil {
		if errors.Is(err, pages.ErrUnknownPage) {
			return nil, apperrors.UnknownPage(string(in.PageID))
		}
		return nil, apperrors.ValidationError("response_data", err.Error())
	}
	data := datatypes.JSON(in.ResponseData)
	if len(data) == 0 {
		data = datatypes.JSON("{}")
	}

	var saved models.SavedResponse
	changeType := ""
	err := r.withTx(ctx, func(tx *gorm.DB) error {
		if err := r.upsertParticipant(tx, in.Participant); err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}

		var existing models.SavedResponse
		if err := tx.Unscoped().
			Where("participant_id = ? AND page_id = ?", in.Participant.ParticipantID, in.PageID).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		changeType = resolveChangeType(in.ChangeType, existing)

		row := models.SavedResponse{
			ParticipantID: in.Participant.ParticipantID,
			PageID:        string(in.PageID),
			ResponseData:  data,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "participant_id"}, {Name: "page_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"response_data", "updated_at", "deleted_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert saved response: %w", err)
		}

		if err := tx.Where("participant_id = ? AND page_id = ?", in.Participant.ParticipantID, in.PageID).
			First(&saved).Error; err != nil {
			return err
		}

		return tx.Create(&models.ResponseHistory{
			ParticipantID: in.Participant.ParticipantID,
			PageID:        string(in.PageID),
			ResponseData:  data,
			ChangeType:    changeType,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	r.metrics.DraftSavesTotal.WithLabelValues(changeType).Inc()
	logger.Log.Debug("Draft saved",
		logger.WithParticipantID(in.Participant.ParticipantID),
		logger.WithPageID(string(in.PageID)),
	)
	return &saved, nil
}

func resolveChangeType(requested string, existing models.SavedResponse) string {
	if existing.ID == "" || existing.DeletedAt.Valid {
		return models.ChangeCreate
	}
	switch requested {
	case models.ChangeNavigateAway, models.ChangeNavigateBack:
		return requested
	default:
		return models.ChangeUpdate
	}
}

// Load returns the live draft, or nil when none exists.
func (r *ResponseService) Load(ctx context.Context, participantID string, pageID pages.PageID) (*models.SavedResponse, error) {
	if !pages.Known(pageID) {
		return nil, apperrors.UnknownPage(string(pageID))
	}
	var saved models.SavedResponse
	err := r.db.WithContext(ctx).
		Where("participant_id = ? AND page_id = ?", participantID, pageID).
		Limit(1).Find(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == "" {
		return nil, nil
	}
	return &saved, nil
}

// Clear soft-deletes the live draft and records the clear in history.
// Clearing a missing draft is a no-op. It reports whether a row was cleared.
func (r *ResponseService) Clear(ctx context.Context, participantID string, pageID pages.PageID) (bool, error) {
	if !pages.Known(pageID) {
		return false, apperrors.UnknownPage(string(pageID))
	}
	cleared := false
	err := r.withTx(ctx, func(tx *gorm.DB) error {
		res := tx.Where("participant_id = ? AND page_id = ?", participantID, pageID).
			Delete(&models.SavedResponse{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cleared = true
		return tx.Create(&models.ResponseHistory{
			ParticipantID: participantID,
			PageID:        string(pageID),
			ResponseData:  datatypes.JSON("null"),
			ChangeType:    models.ChangeClear,
		}).Error
	})
	if err != nil {
		return false, err
	}
	if cleared {
		r.metrics.DraftSavesTotal.WithLabelValues(models.ChangeClear).Inc()
	}
	return cleared, nil
}

// History returns the change log for one page, oldest first.
func (r *ResponseService) History(ctx context.Context, participantID string, pageID pages.PageID) ([]models.ResponseHistory, error) {
	var rows []models.ResponseHistory
	err := r.db.WithContext(ctx).
		Where("participant_id = ? AND page_id = ?", participantID, pageID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
