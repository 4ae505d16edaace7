package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hits-task/taskbot/backend"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, zerolog.Nop())
}

func TestUserByTelegramID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/users/telegram/42", r.URL.Path)
			json.NewEncoder(w).Encode(backend.User{ID: "u1", Role: "STUDENT", IsApproved: true})
		}))
		user, err := client.UserByTelegramID(context.Background(), 42)
		require.NoError(t, err)
		require.NotNil(t, user)
		require.Equal(t, "STUDENT", user.Role)
		require.True(t, user.IsApproved)
	})

	t.Run("non-200 means absent", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		user, err := client.UserByTelegramID(context.Background(), 42)
		require.NoError(t, err)
		require.Nil(t, user)
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		client := backend.NewClient("http://127.0.0.1:1", zerolog.Nop())
		_, err := client.UserByTelegramID(context.Background(), 42)
		require.Error(t, err)
		require.True(t, backend.IsTransportError(err))
	})
}

func TestDomainErrorClassification(t *testing.T) {
	t.Run("structured message passed through", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "group is required"})
		}))
		err := client.Register(context.Background(), backend.RegistrationRequest{})
		de, ok := backend.AsDomainError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, de.Status)
		require.Equal(t, "group is required", de.Message)
	})

	t.Run("raw body becomes a snippet", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("<html>backend exploded</html>"))
		}))
		err := client.Register(context.Background(), backend.RegistrationRequest{})
		de, ok := backend.AsDomainError(err)
		require.True(t, ok)
		require.Contains(t, de.Message, "backend exploded")
	})

	t.Run("snippet truncates on a rune boundary", func(t *testing.T) {
		long := strings.Repeat("ошибка", 40) // 240 runes, 480 bytes
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(long))
		}))
		err := client.Register(context.Background(), backend.RegistrationRequest{})
		de, ok := backend.AsDomainError(err)
		require.True(t, ok)
		require.Len(t, []rune(de.Message), 100)
		require.True(t, utf8.ValidString(de.Message))
		require.Equal(t, string([]rune(long)[:100]), de.Message)
	})

	t.Run("401 is auth rejection not a domain error", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		err := client.CreateEvent(context.Background(), "stale-token", backend.EventDraft{})
		require.ErrorIs(t, err, backend.ErrAuthRejected)
	})

	t.Run("malformed success body is a transport error", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{truncated"))
		}))
		_, err := client.Companies(context.Background())
		require.True(t, backend.IsTransportError(err))
	})
}

func TestAuthenticatedRequestCarriesBearer(t *testing.T) {
	var gotAuth string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	}))

	_, err := client.ManagerEvents(context.Background(), "my-token")
	require.NoError(t, err)
	require.Equal(t, "Bearer my-token", gotAuth)
}

func TestRefresh(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "my-refresh", body["refreshToken"])
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh-access"})
	}))

	access, err := client.Refresh(context.Background(), "my-refresh")
	require.NoError(t, err)
	require.Equal(t, "fresh-access", access)
}

func TestDeclineUserBody(t *testing.T) {
	t.Run("with reason", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "incomplete application", body["reason"])
		}))
		require.NoError(t, client.DeclineUser(context.Background(), "tok", "u9", "incomplete application"))
	})

	t.Run("without reason sends no body", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := make([]byte, 1)
			n, _ := r.Body.Read(body)
			require.Zero(t, n)
		}))
		require.NoError(t, client.DeclineUser(context.Background(), "tok", "u9", ""))
	})
}

func TestHealthUsesShortTimeout(t *testing.T) {
	slow := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-slow:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(slow); srv.Close() })

	short := backend.NewClient(srv.URL, zerolog.Nop(), backend.WithTimeouts(time.Minute, 50*time.Millisecond))
	start := time.Now()
	err := short.Health(context.Background())
	require.True(t, backend.IsTransportError(err))
	require.Less(t, time.Since(start), 5*time.Second)
}
