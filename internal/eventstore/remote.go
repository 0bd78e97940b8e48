package eventstore

import (
	"context"
	"net/http"

	"github.com/iliyamo/minimal-calendar/internal/client"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

// TokenSource yields the current access token of the session.
type TokenSource func() string

// RemoteStore delegates every call to calendar-server; the server
// scopes rows to the user behind the access token.
type RemoteStore struct {
	api   *client.Client
	token TokenSource
}

// NewRemoteStore binds the API client to a session's token.
func NewRemoteStore(api *client.Client, token TokenSource) *RemoteStore {
	return &RemoteStore{api: api, token: token}
}

func (s *RemoteStore) List(ctx context.Context) ([]model.Event, error) {
	return s.api.ListEvents(ctx, s.token())
}

func (s *RemoteStore) Add(ctx context.Context, ev model.NewEvent) (model.Event, error) {
	return s.api.CreateEvent(ctx, s.token(), ev)
}

func (s *RemoteStore) Remove(ctx context.Context, id string) error {
	err := s.api.DeleteEvent(ctx, s.token(), id)
	if client.StatusOf(err) == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
