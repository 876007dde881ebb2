// Package study holds the persistence rules of the search study: session
// lifecycle, interaction tracking, draft responses and final submissions.
package study

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zfogg/searchstudy/internal/cache"
	"github.com/zfogg/searchstudy/internal/metrics"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"github.com/zfogg/searchstudy/internal/validation"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrQueryNotFound       = errors.New("query not found")
	ErrSessionClosed       = errors.New("session is closed")
	ErrParticipantMismatch = errors.New("session does not belong to participant")
)

// Options configures every service in this package.
type Options struct {
	Cache          cache.SessionCache
	Now            func() time.Time
	IPHashSalt     string
	AttentionCheck validation.AttentionCheck
}

type base struct {
	db      *gorm.DB
	cache   cache.SessionCache
	now     func() time.Time
	ipSalt  string
	events  *telemetry.StudyEvents
	metrics *metrics.Metrics
}

func newBase(db *gorm.DB, opts Options) base {
	b := base{
		db:      db,
		cache:   opts.Cache,
		now:     opts.Now,
		ipSalt:  opts.IPHashSalt,
		events:  telemetry.NewStudyEvents(),
		metrics: metrics.Get(),
	}
	if b.cache == nil {
		b.cache = cache.NoopCache{}
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	return b
}

// ParticipantInfo is captured from the request on first write.
type ParticipantInfo struct {
	ParticipantID string
	DeviceType    string
	IPAddress     string
}

// upsertParticipant inserts the participant if missing. Existing rows are
// never modified, so device and ip reflect the first write.
func (b *base) upsertParticipant(tx *gorm.DB, info ParticipantInfo) error {
	p := models.Participant{
		ID:         info.ParticipantID,
		DeviceType: info.DeviceType,
		IPAddress:  b.hashIP(info.IPAddress),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&p).Error
}

// hashIP returns a keyed BLAKE2b digest of ip when a salt is configured.
func (b *base) hashIP(ip string) string {
	if ip == "" || b.ipSalt == "" {
		return ip
	}
	key := []byte(b.ipSalt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *base) loadSession(tx *gorm.DB, id string) (*models.Session, error) {
	var s models.Session
	if err := tx.First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (b *base) findOpenSession(tx *gorm.DB, participantID string) (*models.Session, error) {
	var s models.Session
	err := tx.Where("participant_id = ? AND session_end_time IS NULL", participantID).
		Order("session_start_time DESC").
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, nil
	}
	return &s, nil
}

// elapsedSeconds floors to whole seconds and clamps negative skew to zero.
func elapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func (b *base) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.db.WithContext(ctx).Transaction(fn)
}
