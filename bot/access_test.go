package bot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/credentials"
	"github.com/hits-task/taskbot/session"
)

// methodMux routes on "METHOD /path" patterns like Go 1.22's ServeMux,
// which the local Go 1.21 toolchain does not support.
type methodMux struct{ handlers map[string]http.HandlerFunc }

func newMethodMux() *methodMux { return &methodMux{handlers: map[string]http.HandlerFunc{}} }

func (m *methodMux) HandleFunc(pattern string, h http.HandlerFunc) { m.handlers[pattern] = h }

func (m *methodMux) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if h, ok := m.handlers[r.Method+" "+r.URL.Path]; ok {
		h(rw, r)
		return
	}
	http.NotFound(rw, r)
}

func accessToken(t *testing.T, role string) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	return enc(map[string]any{"alg": "HS256"}) + "." + enc(map[string]any{
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}) + ".sig"
}

func newTestBot(t *testing.T, handler http.Handler) (*Bot, credentials.Repo) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credentials.NewFileRepo(filepath.Join(t.TempDir(), "tokens.json"), zerolog.Nop())
	client := backend.NewClient(srv.URL, zerolog.Nop())
	sessions := session.NewManager(store, client, zerolog.Nop())
	return &Bot{
		client:   client,
		gateway:  backend.NewAuthorized(client, sessions),
		sessions: sessions,
		log:      zerolog.Nop(),
	}, store
}

func TestUserRoleFromToken(t *testing.T) {
	b, store := newTestBot(t, http.NewServeMux())
	require.NoError(t, store.Put(42, accessToken(t, "MANAGER"), "refresh"))

	require.Equal(t, "MANAGER", b.userRole(context.Background(), 42))
}

func TestUserRoleFromProfileWhenLoggedOut(t *testing.T) {
	mux := newMethodMux()
	mux.HandleFunc("GET /users/telegram/42", func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(backend.User{ID: "u-1", Role: "STUDENT", IsApproved: true})
	})

	b, _ := newTestBot(t, mux)
	require.Equal(t, "STUDENT", b.userRole(context.Background(), 42))
}

func TestUserRoleUnregistered(t *testing.T) {
	mux := newMethodMux()
	mux.HandleFunc("GET /users/telegram/42", func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, `{"message":"not found"}`, http.StatusNotFound)
	})

	b, _ := newTestBot(t, mux)
	require.Equal(t, roleUnregistered, b.userRole(context.Background(), 42))
}

func TestUserRoleUnknownOnTransportFailure(t *testing.T) {
	b, _ := newTestBot(t, http.NewServeMux())
	// shut the backend down before asking
	srv := httptest.NewServer(http.NewServeMux())
	srv.Close()
	b.client = backend.NewClient(srv.URL, zerolog.Nop())

	require.Equal(t, roleUnknown, b.userRole(context.Background(), 42))
}

func TestUserRoleTearsDownStaleSession(t *testing.T) {
	mux := newMethodMux()
	mux.HandleFunc("GET /users/telegram/42", func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, `{"message":"not found"}`, http.StatusNotFound)
	})

	b, store := newTestBot(t, mux)
	// valid token that carries no role claim forces the profile lookup
	require.NoError(t, store.Put(42, accessToken(t, ""), "refresh"))

	require.Equal(t, roleUnregistered, b.userRole(context.Background(), 42))
	_, stillThere := store.Get(42)
	require.False(t, stillThere, "stale session must be torn down")
}

func TestGatewayMessage(t *testing.T) {
	b := &Bot{log: zerolog.Nop()}

	require.Contains(t, b.gatewayMessage("Login", backend.ErrAuthRequired), "/login")
	require.Contains(t, b.gatewayMessage("Login", backend.ErrAuthRejected), "expired")
	require.Contains(t,
		b.gatewayMessage("Approval", &backend.DomainError{Status: 409, Message: "already approved"}),
		"already approved")
	require.Contains(t,
		b.gatewayMessage("Approval", &backend.TransportError{Op: "approve", Err: context.DeadlineExceeded}),
		"try again later")
}

func TestDisplayDate(t *testing.T) {
	require.Equal(t, "25/12/2024 14:30", displayDate("2024-12-25T14:30:00Z"))
	require.Equal(t, "-", displayDate(""))
	require.Equal(t, "garbage", displayDate("garbage"))
}
