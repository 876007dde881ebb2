package cmd

import (
	"fmt"

	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/client"
	"github.com/zfogg/searchstudy/pkg/config"
	"github.com/zfogg/searchstudy/pkg/drafts"
	"github.com/zfogg/searchstudy/pkg/identity"
	"github.com/zfogg/searchstudy/pkg/session"
	"github.com/zfogg/searchstudy/pkg/storage"
	"github.com/zfogg/searchstudy/pkg/tracking"
)

// lastQueryKey remembers the most recent query so click and hover can
// default to it
const lastQueryKey = "last_query_id"

// app holds the participant-side services for one invocation
type app struct {
	kv       storage.KV
	api      *api.Client
	ids      *identity.Provider
	drafts   *drafts.Store
	sessions *session.Coordinator
	tracker  *tracking.Tracker
}

func newApp() (*app, error) {
	kv, err := storage.OpenFile(config.GetStatePath())
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	return wire(kv, api.New(client.FromConfig()), config.GetString("drafts.backend"))
}

func wire(kv storage.KV, c *api.Client, draftBackend string) (*app, error) {
	ids := identity.NewProvider(kv)

	var backend drafts.Backend
	switch draftBackend {
	case "", "local":
		backend = drafts.NewLocalBackend(kv)
	case "remote":
		backend = drafts.NewRemoteBackend(c)
	default:
		return nil, fmt.Errorf("unknown drafts.backend %q (want local or remote)", draftBackend)
	}

	store := drafts.NewStore(backend, ids)
	coord := session.NewCoordinator(c, ids, kv, store)
	return &app{
		kv:       kv,
		api:      c,
		ids:      ids,
		drafts:   store,
		sessions: coord,
		tracker:  tracking.NewTracker(c, coord),
	}, nil
}

func (a *app) lastQuery() string {
	id, _ := a.kv.Get(lastQueryKey)
	return id
}
