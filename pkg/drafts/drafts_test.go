package drafts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/searchstudy/internal/testutil/apiserver"
	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/client"
	"github.com/zfogg/searchstudy/pkg/pages"
	"github.com/zfogg/searchstudy/pkg/storage"
)

type switchable struct {
	mu sync.Mutex
	id string
}

func (s *switchable) GetOrCreateParticipantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *switchable) set(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

type countingBackend struct {
	Backend
	mu    sync.Mutex
	saves int
	fail  bool
}

func (c *countingBackend) Save(ctx context.Context, pid string, page pages.PageID, data []byte) error {
	c.mu.Lock()
	c.saves++
	fail := c.fail
	c.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return c.Backend.Save(ctx, pid, page, data)
}

func (c *countingBackend) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func sampleSurvey() *pages.BackgroundSurvey {
	return &pages.BackgroundSurvey{
		Q1Age:             "25-34",
		Q5SearchFrequency: 4,
		Q7Devices:         []string{"mobile", "laptop"},
	}
}

func newLocalStore(pid string) (*Store, *switchable, *storage.MemoryKV) {
	kv := storage.NewMemoryKV()
	who := &switchable{id: pid}
	return NewStore(NewLocalBackend(kv), who), who, kv
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _, kv := newLocalStore("p-a")

	assert.Nil(t, store.LoadDraft(ctx, pages.BackgroundSurveyPage))
	assert.False(t, store.HasDraft(ctx, pages.BackgroundSurveyPage))

	store.SaveDraft(ctx, sampleSurvey())
	_, ok := kv.Get(Key("p-a", pages.BackgroundSurveyPage))
	assert.True(t, ok)

	got := store.LoadDraft(ctx, pages.BackgroundSurveyPage)
	require.NotNil(t, got)
	assert.Equal(t, sampleSurvey(), got)
	assert.True(t, store.HasDraft(ctx, pages.BackgroundSurveyPage))

	store.ClearDraft(ctx, pages.BackgroundSurveyPage)
	assert.Nil(t, store.LoadDraft(ctx, pages.BackgroundSurveyPage))
	assert.Nil(t, store.snapshot(pages.BackgroundSurveyPage))
}

func TestStore_IsolatedPerParticipant(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newLocalStore("p-a")

	store.SaveDraft(ctx, sampleSurvey())
	require.NotNil(t, store.snapshot(pages.BackgroundSurveyPage))

	who.set("p-b")
	assert.Nil(t, store.snapshot(pages.BackgroundSurveyPage))
	assert.Nil(t, store.LoadDraft(ctx, pages.BackgroundSurveyPage))

	store.SaveDraft(ctx, &pages.BackgroundSurvey{Q1Age: "55+"})
	got := store.LoadDraft(ctx, pages.BackgroundSurveyPage).(*pages.BackgroundSurvey)
	assert.Equal(t, "55+", got.Q1Age)

	who.set("p-a")
	got = store.LoadDraft(ctx, pages.BackgroundSurveyPage).(*pages.BackgroundSurvey)
	assert.Equal(t, "25-34", got.Q1Age)
}

func TestStore_ClearAllScopedToParticipant(t *testing.T) {
	ctx := context.Background()
	store, who, kv := newLocalStore("p-a")

	store.SaveDraft(ctx, sampleSurvey())
	store.SaveDraft(ctx, &pages.ResultLog{Q11BestOption: "bundle"})
	who.set("p-b")
	store.SaveDraft(ctx, &pages.ResultLog{Q11BestOption: "other"})

	who.set("p-a")
	store.ClearAll(ctx)
	assert.Empty(t, kv.Keys("draft:p-a:"))
	assert.Len(t, kv.Keys("draft:p-b:"), 1)
}

func TestStore_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{Backend: NewLocalBackend(storage.NewMemoryKV()), fail: true}
	store := NewStore(backend, &switchable{id: "p-a"})

	assert.NotPanics(t, func() { store.SaveDraft(ctx, sampleSurvey()) })
	assert.Nil(t, store.LoadDraft(ctx, pages.BackgroundSurveyPage))
	assert.Equal(t, 1, backend.count())
}

func TestStore_UnreadableDraftIsIgnored(t *testing.T) {
	ctx := context.Background()
	store, _, kv := newLocalStore("p-a")
	require.NoError(t, kv.Set(Key("p-a", pages.BackgroundSurveyPage), `{"q5_search_frequency":"lots"}`))
	assert.Nil(t, store.LoadDraft(ctx, pages.BackgroundSurveyPage))
}

func newCountingStore() (*Store, *countingBackend) {
	backend := &countingBackend{Backend: NewLocalBackend(storage.NewMemoryKV())}
	return NewStore(backend, &switchable{id: "p-a"}), backend
}

func TestAutosaver_TickDiffsAgainstLastCommit(t *testing.T) {
	ctx := context.Background()
	store, backend := newCountingStore()
	a := NewAutosaver(ctx, store, time.Hour)
	defer a.Stop()

	assert.False(t, a.Tick(ctx), "nothing pending")

	a.Update(&pages.BackgroundSurvey{})
	assert.False(t, a.Tick(ctx), "blank form")

	a.Update(sampleSurvey())
	assert.True(t, a.Tick(ctx))
	assert.False(t, a.Tick(ctx), "unchanged snapshot")

	changed := sampleSurvey()
	changed.Q1Age = "35-44"
	a.Update(changed)
	assert.True(t, a.Tick(ctx))
	assert.Equal(t, 2, backend.count())
}

func TestAutosaver_PrimeSkipsHydratedValue(t *testing.T) {
	ctx := context.Background()
	store, backend := newCountingStore()
	a := NewAutosaver(ctx, store, time.Hour)
	defer a.Stop()

	a.Prime(sampleSurvey())
	a.Update(sampleSurvey())
	assert.False(t, a.Tick(ctx))
	assert.Zero(t, backend.count())
}

func TestAutosaver_Debounces(t *testing.T) {
	ctx := context.Background()
	store, backend := newCountingStore()
	a := NewAutosaver(ctx, store, 20*time.Millisecond)
	defer a.Stop()

	for _, age := range []string{"1", "18", "18-24"} {
		a.Update(&pages.BackgroundSurvey{Q1Age: age})
	}

	require.Eventually(t, func() bool { return backend.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, backend.count())

	got := store.LoadDraft(ctx, pages.BackgroundSurveyPage).(*pages.BackgroundSurvey)
	assert.Equal(t, "18-24", got.Q1Age)
}

func TestAutosaver_FlushAndStop(t *testing.T) {
	ctx := context.Background()
	store, backend := newCountingStore()
	a := NewAutosaver(ctx, store, 30*time.Millisecond)

	a.Update(sampleSurvey())
	assert.True(t, a.Flush(ctx))
	assert.Equal(t, 1, backend.count())

	a.Update(&pages.BackgroundSurvey{Q1Age: "55+"})
	a.Stop()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, backend.count())

	a.Update(&pages.BackgroundSurvey{Q1Age: "45-54"})
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, backend.count(), "updates after Stop are ignored")
}

func TestAutosaver_FailedSaveIsNotCommitted(t *testing.T) {
	ctx := context.Background()
	store, backend := newCountingStore()
	a := NewAutosaver(ctx, store, time.Hour)
	defer a.Stop()

	backend.fail = true
	a.Update(sampleSurvey())
	assert.False(t, a.Tick(ctx))

	backend.fail = false
	assert.True(t, a.Tick(ctx))
}

func TestAutosaver_SwitchingParticipantResaves(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{Backend: NewLocalBackend(storage.NewMemoryKV())}
	who := &switchable{id: "p-a"}
	store := NewStore(backend, who)
	a := NewAutosaver(ctx, store, time.Hour)
	defer a.Stop()

	a.Update(sampleSurvey())
	require.True(t, a.Tick(ctx))

	who.set("p-b")
	a.Update(sampleSurvey())
	assert.True(t, a.Tick(ctx), "same answers, new participant")
	assert.True(t, store.HasDraft(ctx, pages.BackgroundSurveyPage))
	assert.Equal(t, 2, backend.count())

	who.set("p-a")
	a.Prime(sampleSurvey())
	a.Update(sampleSurvey())
	assert.False(t, a.Tick(ctx))
}

func TestRemoteBackend(t *testing.T) {
	ctx := context.Background()
	srv := apiserver.Start(t, apiserver.Options{})
	backend := NewRemoteBackend(api.New(client.New(srv.URL, 5*time.Second)))

	who := &switchable{id: uuid.NewString()}
	store := NewStore(backend, who)

	store.SaveDraft(ctx, sampleSurvey())
	assert.Equal(t, sampleSurvey(), store.LoadDraft(ctx, pages.BackgroundSurveyPage))

	who.set(uuid.NewString())
	assert.Nil(t, store.LoadDraft(ctx, pages.BackgroundSurveyPage))

	store.SaveDraft(ctx, &pages.SearchTask{Notes: "carrier deals look better"})
	store.ClearAll(ctx)
	assert.False(t, store.HasDraft(ctx, pages.SearchTaskPage))
}
