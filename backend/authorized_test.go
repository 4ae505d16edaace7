package backend_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/hits-task/taskbot/backend"
	"github.com/stretchr/testify/require"
)

type stubTokenSource struct {
	token      string
	loggedOut  atomic.Bool
	tokenCalls atomic.Int64
}

func (s *stubTokenSource) ValidAccessToken(ctx context.Context, telegramID int64) (string, bool) {
	s.tokenCalls.Add(1)
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

func (s *stubTokenSource) Logout(telegramID int64) {
	s.loggedOut.Store(true)
}

func TestAuthorizedFailsFastWithoutCredential(t *testing.T) {
	var hit atomic.Bool
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
	}))

	tokens := &stubTokenSource{}
	authed := backend.NewAuthorized(client, tokens)

	_, err := authed.ManagerEvents(context.Background(), 42)
	require.ErrorIs(t, err, backend.ErrAuthRequired)
	require.False(t, hit.Load(), "request must not be attempted without a credential")
}

func TestAuthorizedLogsOutOnRejection(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	tokens := &stubTokenSource{token: "stale"}
	authed := backend.NewAuthorized(client, tokens)

	err := authed.CreateEvent(context.Background(), 42, backend.EventDraft{Name: "x"})
	require.ErrorIs(t, err, backend.ErrAuthRejected)
	require.True(t, tokens.loggedOut.Load(), "rejected credential must trigger logout")
}

func TestAuthorizedPassesPayloadThrough(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer good", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"e1","name":"Demo day","date":"2030-01-01T10:00:00Z","location":"Aud 1"}]`))
	}))

	tokens := &stubTokenSource{token: "good"}
	authed := backend.NewAuthorized(client, tokens)

	events, err := authed.ManagerEvents(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Demo day", events[0].Name)
	require.False(t, tokens.loggedOut.Load())
}
