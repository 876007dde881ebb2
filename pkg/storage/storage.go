// Package storage is the client's durable key-value store.
package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/searchstudy/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KV is a flat string store
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Keys(prefix string) []string
}

// MemoryKV keeps values in process memory
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV returns an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryKV) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return keys(m.values, prefix)
}

// FileKV persists the whole map as JSON on every write. The file is
// readable by the owner only.
type FileKV struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenFile loads path. A missing file starts empty; an unreadable one is
// logged and replaced on the next write.
func OpenFile(path string) (*FileKV, error) {
	f := &FileKV{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		logger.Warn("Discarding corrupt state file", "path", path, "err", err)
		f.values = make(map[string]string)
	}
	return f, nil
}

// Path returns the backing file path
func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f.persist()
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	return f.persist()
}

func (f *FileKV) Keys(prefix string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return keys(f.values, prefix)
}

// persist writes through a temp file so a crash never leaves half a file
func (f *FileKV) persist() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func keys(values map[string]string, prefix string) []string {
	out := make([]string, 0)
	for k := range values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
