package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	_, ok := kv.Get("participant_id")
	assert.False(t, ok)

	require.NoError(t, kv.Set("participant_id", "6f1c2a4e-8b3d-4f5a-9c7e-1d2b3a4c5d6e"))
	require.NoError(t, kv.Set("draft:p1:background_survey", `{"q1_age":"25-34"}`))
	require.NoError(t, kv.Set("draft:p1:result_log", `{}`))
	require.NoError(t, kv.Set("draft:p2:result_log", `{}`))

	v, ok := kv.Get("participant_id")
	assert.True(t, ok)
	assert.Equal(t, "6f1c2a4e-8b3d-4f5a-9c7e-1d2b3a4c5d6e", v)

	assert.Equal(t, []string{"draft:p1:background_survey", "draft:p1:result_log"}, kv.Keys("draft:p1:"))
	assert.Len(t, kv.Keys(""), 4)

	require.NoError(t, kv.Delete("draft:p1:result_log"))
	require.NoError(t, kv.Delete("missing"))
	assert.Equal(t, []string{"draft:p1:background_survey"}, kv.Keys("draft:p1:"))
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	kv, err := OpenFile(path)
	require.NoError(t, err)
	exerciseKV(t, kv)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, ok := reopened.Get("participant_id")
	assert.True(t, ok)
	assert.Equal(t, "6f1c2a4e-8b3d-4f5a-9c7e-1d2b3a4c5d6e", v)
	assert.Equal(t, kv.Keys(""), reopened.Keys(""))
}

func TestFileKV_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	kv, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileKV_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	kv, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, kv.Keys(""))

	require.NoError(t, kv.Set("k", "v"))
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, _ := reopened.Get("k")
	assert.Equal(t, "v", v)
}
