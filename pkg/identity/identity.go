// Package identity hands out the stable anonymous participant id.
package identity

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/zfogg/searchstudy/pkg/logger"
	"github.com/zfogg/searchstudy/pkg/storage"
)

// StorageKey is where the id lives in client storage
const StorageKey = "participant_id"

var idShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// IsValidID reports whether s has the lowercase hyphenated-hex UUID shape
// the server accepts
func IsValidID(s string) bool {
	return idShape.MatchString(s)
}

// Provider reads and creates the participant id
type Provider struct {
	kv storage.KV
	mu sync.Mutex

	generate func() (uuid.UUID, error)
}

// NewProvider returns a Provider over kv
func NewProvider(kv storage.KV) *Provider {
	return &Provider{kv: kv, generate: uuid.NewRandom}
}

// Current returns the stored id without creating one
func (p *Provider) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stored()
}

func (p *Provider) stored() (string, bool) {
	id, ok := p.kv.Get(StorageKey)
	if !ok || !IsValidID(id) {
		return "", false
	}
	return id, true
}

// GetOrCreateParticipantID returns the stored id, replacing a malformed one
// with a fresh id. It always returns a valid id, even when the store fails.
func (p *Provider) GetOrCreateParticipantID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.stored(); ok {
		return id
	}
	if bad, ok := p.kv.Get(StorageKey); ok {
		logger.Warn("Replacing malformed participant id", "stored", bad)
	}

	id := p.newID()
	if err := p.kv.Set(StorageKey, id); err != nil {
		logger.Error("Failed to persist participant id", "err", err)
	}
	logger.Info("Created participant id", "participant_id", id)
	return id
}

// Reset forgets the stored id so the next call creates a new participant
func (p *Provider) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kv.Delete(StorageKey)
}

func (p *Provider) newID() string {
	id, err := p.generate()
	if err == nil {
		return id.String()
	}
	logger.Warn("Secure id generator failed, using fallback", "err", err)
	return fallbackV4()
}

// fallbackV4 formats 128 pseudo-random bits as a version 4 UUID
func fallbackV4() string {
	var b [16]byte
	hi, lo := rand.Uint64(), rand.Uint64()
	for i := 0; i < 8; i++ {
		b[i] = byte(hi >> (56 - 8*i))
		b[8+i] = byte(lo >> (56 - 8*i))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
