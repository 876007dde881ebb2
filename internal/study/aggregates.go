package study

import (
	"fmt"
	"time"

	"github.com/zfogg/searchstudy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// recomputeSessionCounters sets query_count and total_clicked_results_count
// from fresh row counts rather than incrementing them.
func recomputeSessionCounters(tx *gorm.DB, sessionID string) error {
	var queries, clicks int64
	if err := tx.Model(&models.Query{}).Where("session_id = ?", sessionID).Count(&queries).Error; err != nil {
		return fmt.Errorf("count queries: %w", err)
	}
	if err := tx.Model(&models.Click{}).Where("session_id = ?", sessionID).Count(&clicks).Error; err != nil {
		return fmt.Errorf("count clicks: %w", err)
	}
	return tx.Model(&models.Session{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
		"query_count":                 queries,
		"total_clicked_results_count": clicks,
	}).Error
}

// recomputeSummary rebuilds the session_summaries row from live counts.
// queries_per_minute uses at least one minute of elapsed time.
func recomputeSummary(tx *gorm.DB, sessionID string, now time.Time) error {
	var session models.Session
	if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
		return err
	}

	var searches, clicks int64
	if err := tx.Model(&models.Query{}).Where("session_id = ?", sessionID).Count(&searches).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Click{}).Where("session_id = ?", sessionID).Count(&clicks).Error; err != nil {
		return err
	}

	var avg struct{ Avg float64 }
	if err := tx.Model(&models.Query{}).
		Select("COALESCE(AVG(duration_seconds), 0) AS avg").
		Where("session_id = ? AND duration_seconds IS NOT NULL", sessionID).
		Scan(&avg).Error; err != nil {
		return err
	}

	end := now
	if session.SessionEndTime != nil {
		end = *session.SessionEndTime
	}
	minutes := end.Sub(session.SessionStartTime).Minutes()
	if minutes < 1 {
		minutes = 1
	}

	summary := models.SessionSummary{
		SessionID:        sessionID,
		TotalSearches:    int(searches),
		TotalClicks:      int(clicks),
		AvgTimePerQuery:  avg.Avg,
		QueriesPerMinute: float64(searches) / minutes,
		UpdatedAt:        now,
	}
	if searches > 0 {
		summary.ClicksPerQuery = float64(clicks) / float64(searches)
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_searches", "total_clicks", "avg_time_per_query",
			"clicks_per_query", "queries_per_minute", "updated_at",
		}),
	}).Create(&summary).Error
}
