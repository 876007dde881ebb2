package drafts

import (
	"context"

	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/pages"
	"github.com/zfogg/searchstudy/pkg/storage"
)

// Backend persists serialized drafts per participant and page. Load returns
// nil data when there is no draft.
type Backend interface {
	Load(ctx context.Context, participantID string, page pages.PageID) ([]byte, error)
	Save(ctx context.Context, participantID string, page pages.PageID, data []byte) error
	Clear(ctx context.Context, participantID string, page pages.PageID) error
	ClearAll(ctx context.Context, participantID string) error
}

// LocalBackend keeps drafts in client storage
type LocalBackend struct {
	kv storage.KV
}

// NewLocalBackend returns a backend over kv
func NewLocalBackend(kv storage.KV) *LocalBackend {
	return &LocalBackend{kv: kv}
}

// Key returns the storage key for a participant's page draft
func Key(participantID string, page pages.PageID) string {
	return "draft:" + participantID + ":" + string(page)
}

func (b *LocalBackend) Load(_ context.Context, participantID string, page pages.PageID) ([]byte, error) {
	v, ok := b.kv.Get(Key(participantID, page))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (b *LocalBackend) Save(_ context.Context, participantID string, page pages.PageID, data []byte) error {
	return b.kv.Set(Key(participantID, page), string(data))
}

func (b *LocalBackend) Clear(_ context.Context, participantID string, page pages.PageID) error {
	return b.kv.Delete(Key(participantID, page))
}

func (b *LocalBackend) ClearAll(_ context.Context, participantID string) error {
	prefix := "draft:" + participantID + ":"
	for _, k := range b.kv.Keys(prefix) {
		if err := b.kv.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// RemoteBackend keeps drafts on the server as saved responses
type RemoteBackend struct {
	api *api.Client
}

// NewRemoteBackend returns a backend over the save/load/clear-responses
// endpoints
func NewRemoteBackend(client *api.Client) *RemoteBackend {
	return &RemoteBackend{api: client}
}

func (b *RemoteBackend) Load(ctx context.Context, participantID string, page pages.PageID) ([]byte, error) {
	out, err := b.api.LoadResponses(ctx, participantID, page)
	if err != nil {
		return nil, err
	}
	return out.ResponseData, nil
}

func (b *RemoteBackend) Save(ctx context.Context, participantID string, page pages.PageID, data []byte) error {
	_, err := b.api.SaveResponses(ctx, participantID, page, data, "")
	return err
}

func (b *RemoteBackend) Clear(ctx context.Context, participantID string, page pages.PageID) error {
	_, err := b.api.ClearResponses(ctx, participantID, page)
	return err
}

func (b *RemoteBackend) ClearAll(ctx context.Context, participantID string) error {
	for _, page := range pages.IDs() {
		if err := b.Clear(ctx, participantID, page); err != nil {
			return err
		}
	}
	return nil
}
