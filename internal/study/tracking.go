package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"github.com/zfogg/searchstudy/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TrackingService records queries, clicks, scrolls and hovers and keeps
// the session aggregates in sync by recomputing them from row counts.
//
// query_order and click_order are assigned by reading the current maximum
// inside the insert transaction. That is not atomic across concurrent
// writers: two racing inserts can share an order value. Nothing is lost in
// that case, and no unique index turns it into an error.
type TrackingService struct {
	base
}

// NewTrackingService creates a tracking service
func NewTrackingService(db *gorm.DB, opts Options) *TrackingService {
	return &TrackingService{base: newBase(db, opts)}
}

// StartQueryInput opens a query. QueryOrder > 0 is stored as given.
type StartQueryInput struct {
	SessionID      string
	QueryText      string
	QueryStructure string
	QueryOrder     int
}

// StartQuery inserts a query with the next per-session order.
func (t *TrackingService) StartQuery(ctx context.Context, in StartQueryInput) (query *models.Query, err error) {
	ctx, span := t.events.TraceTracking(ctx, "query_start", in.SessionID)
	defer func() { telemetry.End(span, err) }()

	now := t.now()
	err = t.withTx(ctx, func(tx *gorm.DB) error {
		session, err := t.loadSession(tx, in.SessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return ErrSessionClosed
		}

		order := in.QueryOrder
		if order <= 0 {
			var maxOrder int
			if err := tx.Model(&models.Query{}).
				Where("session_id = ?", in.SessionID).
				Select("COALESCE(MAX(query_order), 0)").
				Scan(&maxOrder).Error; err != nil {
				return fmt.Errorf("read max query order: %w", err)
			}
			order = maxOrder + 1
		}

		query = &models.Query{
			SessionID:      in.SessionID,
			QueryOrder:     order,
			QueryText:      in.QueryText,
			QueryStructure: in.QueryStructure,
			StartTime:      now,
		}
		if err := tx.Create(query).Error; err != nil {
			return fmt.Errorf("create query: %w", err)
		}

		if err := recomputeSessionCounters(tx, in.SessionID); err != nil {
			return err
		}
		return recomputeSummary(tx, in.SessionID, now)
	})
	if err != nil {
		return nil, err
	}

	t.metrics.QueriesStartedTotal.Inc()
	logger.Log.Debug("Query started",
		logger.WithSessionID(in.SessionID),
		logger.WithQueryID(query.ID),
		zap.Int("query_order", query.QueryOrder),
	)
	return query, nil
}

// EndQuery stamps end_time and duration. Ending an ended query is a no-op
// that returns the stored row.
func (t *TrackingService) EndQuery(ctx context.Context, queryID string) (query *models.Query, err error) {
	ctx, span := t.events.TraceTracking(ctx, "query_end", "")
	defer func() { telemetry.End(span, err) }()

	now := t.now()
	ended := false
	err = t.withTx(ctx, func(tx *gorm.DB) error {
		q, err := loadQuery(tx, queryID)
		if err != nil {
			return err
		}
		query = q
		if q.EndTime != nil {
			return nil
		}

		duration := elapsedSeconds(q.StartTime, now)
		if err := tx.Model(q).Updates(map[string]interface{}{
			"end_time":         now,
			"duration_seconds": duration,
		}).Error; err != nil {
			return fmt.Errorf("end query: %w", err)
		}
		q.EndTime = &now
		q.DurationSeconds = &duration
		ended = true

		if err := recomputeSessionCounters(tx, q.SessionID); err != nil {
			return err
		}
		return recomputeSummary(tx, q.SessionID, now)
	})
	if err != nil {
		return nil, err
	}

	if ended {
		t.metrics.QueryDuration.Observe(float64(*query.DurationSeconds))
	}
	return query, nil
}

// LogClickInput records a result click
type LogClickInput struct {
	QueryID     string
	ClickedURL  string
	ClickedRank *int
}

// LogClick appends a click with the next per-query order and recomputes
// the query and session click counts.
func (t *TrackingService) LogClick(ctx context.Context, in LogClickInput) (click *models.Click, err error) {
	ctx, span := t.events.TraceTracking(ctx, "click", "")
	defer func() { telemetry.End(span, err) }()

	now := t.now()
	err = t.withTx(ctx, func(tx *gorm.DB) error {
		q, err := loadQuery(tx, in.QueryID)
		if err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&models.Click{}).
			Where("query_id = ?", in.QueryID).
			Select("COALESCE(MAX(click_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("read max click order: %w", err)
		}

		click = &models.Click{
			QueryID:     q.ID,
			SessionID:   q.SessionID,
			ClickOrder:  maxOrder + 1,
			ClickedURL:  in.ClickedURL,
			ClickedRank: in.ClickedRank,
			ClickTime:   now,
		}
		if err := tx.Create(click).Error; err != nil {
			return fmt.Errorf("create click: %w", err)
		}

		var clicks int64
		if err := tx.Model(&models.Click{}).Where("query_id = ?", q.ID).Count(&clicks).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Query{}).Where("id = ?", q.ID).
			Update("click_count", clicks).Error; err != nil {
			return err
		}

		if err := recomputeSessionCounters(tx, q.SessionID); err != nil {
			return err
		}
		return recomputeSummary(tx, q.SessionID, now)
	})
	if err != nil {
		return nil, err
	}

	t.metrics.ClicksTotal.Inc()
	return click, nil
}

// LogScrollInput is one flushed scroll maximum for a page visit.
type LogScrollInput struct {
	SessionID    string
	QueryID      *string
	Path         string
	MaxScrollPct int
}

// LogScroll stores the event and raises the session's scroll_depth_max to
// max(current, incoming). It returns the stored maximum.
func (t *TrackingService) LogScroll(ctx context.Context, in LogScrollInput) (depth int, err error) {
	ctx, span := t.events.TraceTracking(ctx, "scroll", in.SessionID)
	defer func() { telemetry.End(span, err) }()

	pct := validation.ClampPercent(in.MaxScrollPct)
	err = t.withTx(ctx, func(tx *gorm.DB) error {
		session, err := t.loadSession(tx, in.SessionID)
		if err != nil {
			return err
		}

		event := &models.ScrollEvent{
			SessionID:    in.SessionID,
			QueryID:      in.QueryID,
			Path:         in.Path,
			MaxScrollPct: pct,
			RecordedAt:   t.now(),
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("create scroll event: %w", err)
		}

		depth = session.ScrollDepthMax
		if pct <= depth {
			return nil
		}
		depth = pct
		return tx.Model(&models.Session{}).
			Where("id = ? AND scroll_depth_max < ?", in.SessionID, pct).
			Update("scroll_depth_max", pct).Error
	})
	if err != nil {
		return 0, err
	}

	t.metrics.ScrollFlushesTotal.Inc()
	return depth, nil
}

// LogHoverInput is a dwell over one search result.
type LogHoverInput struct {
	SessionID   string
	QueryID     *string
	HoveredURL  string
	HoveredRank *int
	HoverMs     int
}

// LogHover appends a hover event.
func (t *TrackingService) LogHover(ctx context.Context, in LogHoverInput) (event *models.HoverEvent, err error) {
	ctx, span := t.events.TraceTracking(ctx, "hover", in.SessionID)
	defer func() { telemetry.End(span, err) }()

	db := t.db.WithContext(ctx)
	if _, err = t.loadSession(db, in.SessionID); err != nil {
		return nil, err
	}

	hoverMs := in.HoverMs
	if hoverMs < 0 {
		hoverMs = 0
	}
	event = &models.HoverEvent{
		SessionID:   in.SessionID,
		QueryID:     in.QueryID,
		HoveredURL:  in.HoveredURL,
		HoveredRank: in.HoveredRank,
		HoverMs:     hoverMs,
		RecordedAt:  t.now(),
	}
	if err = db.Create(event).Error; err != nil {
		return nil, fmt.Errorf("create hover event: %w", err)
	}

	t.metrics.HoversTotal.Inc()
	return event, nil
}

// Summary returns the session's aggregate row, computing it if no event has
// written one yet.
func (t *TrackingService) Summary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	db := t.db.WithContext(ctx)
	if _, err := t.loadSession(db, sessionID); err != nil {
		return nil, err
	}

	var summary models.SessionSummary
	err := db.First(&summary, "session_id = ?", sessionID).Error
	if err == nil {
		return &summary, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := recomputeSummary(db, sessionID, t.now()); err != nil {
		return nil, err
	}
	if err := db.First(&summary, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

func loadQuery(tx *gorm.DB, id string) (*models.Query, error) {
	var q models.Query
	if err := tx.First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueryNotFound
		}
		return nil, err
	}
	return &q, nil
}
