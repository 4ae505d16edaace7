package token_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/hits-task/taskbot/token"
	"github.com/stretchr/testify/require"
)

// testToken builds an unsigned three-segment token with the given payload.
func testToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := map[string]any{"alg": "HS256", "typ": "JWT"}
	return enc(header) + "." + enc(payload) + ".c2lnbmF0dXJl"
}

func withFixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = prev })
}

func TestDecodePayload(t *testing.T) {
	t.Run("well formed token", func(t *testing.T) {
		raw := testToken(t, map[string]any{"sub": "42", "role": "STUDENT"})
		claims, ok := token.DecodePayload(raw)
		require.True(t, ok)
		require.Equal(t, "42", claims["sub"])
		require.Equal(t, "STUDENT", claims["role"])
	})

	t.Run("wrong segment count", func(t *testing.T) {
		_, ok := token.DecodePayload("only.two")
		require.False(t, ok)
	})

	t.Run("invalid base64 payload", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
		_, ok := token.DecodePayload(header + ".!!not-base64!!.sig")
		require.False(t, ok)
	})

	t.Run("payload is not JSON", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte("not json"))
		_, ok := token.DecodePayload(header + "." + payload + ".sig")
		require.False(t, ok)
	})

	t.Run("empty string", func(t *testing.T) {
		_, ok := token.DecodePayload("")
		require.False(t, ok)
	})
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	withFixedNow(t, now)

	t.Run("plenty of validity left", func(t *testing.T) {
		raw := testToken(t, map[string]any{"exp": now.Add(10 * time.Minute).Unix()})
		require.False(t, token.IsExpired(raw))
	})

	t.Run("expired", func(t *testing.T) {
		raw := testToken(t, map[string]any{"exp": now.Add(-time.Minute).Unix()})
		require.True(t, token.IsExpired(raw))
	})

	t.Run("inside the skew window counts as expired", func(t *testing.T) {
		raw := testToken(t, map[string]any{"exp": now.Add(30 * time.Second).Unix()})
		require.True(t, token.IsExpired(raw))
	})

	t.Run("just outside the skew window", func(t *testing.T) {
		raw := testToken(t, map[string]any{"exp": now.Add(61 * time.Second).Unix()})
		require.False(t, token.IsExpired(raw))
	})

	t.Run("exactly at the skew boundary counts as expired", func(t *testing.T) {
		raw := testToken(t, map[string]any{"exp": now.Add(token.ExpirySkew).Unix()})
		require.True(t, token.IsExpired(raw))
	})

	t.Run("missing exp claim", func(t *testing.T) {
		raw := testToken(t, map[string]any{"sub": "42"})
		require.True(t, token.IsExpired(raw))
	})

	t.Run("malformed token", func(t *testing.T) {
		require.True(t, token.IsExpired("garbage"))
	})
}

func TestExtractIdentity(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full claim set", func(t *testing.T) {
		raw := testToken(t, map[string]any{
			"sub":        "user-1",
			"email":      "ivanov@example.com",
			"role":       "MANAGER",
			"telegramId": 987654321,
			"iat":        now.Unix(),
			"exp":        now.Add(time.Hour).Unix(),
		})
		id, ok := token.ExtractIdentity(raw)
		require.True(t, ok)
		require.Equal(t, "user-1", id.Subject)
		require.Equal(t, "ivanov@example.com", id.Email)
		require.Equal(t, "MANAGER", id.Role)
		require.Equal(t, int64(987654321), id.TelegramID)
		require.Equal(t, now.Unix(), id.IssuedAt.Unix())
		require.Equal(t, now.Add(time.Hour).Unix(), id.ExpiresAt.Unix())
	})

	t.Run("partial claims leave zero values", func(t *testing.T) {
		raw := testToken(t, map[string]any{"sub": "user-2"})
		id, ok := token.ExtractIdentity(raw)
		require.True(t, ok)
		require.Equal(t, "user-2", id.Subject)
		require.Empty(t, id.Role)
		require.Zero(t, id.TelegramID)
		require.True(t, id.ExpiresAt.IsZero())
	})

	t.Run("malformed token", func(t *testing.T) {
		_, ok := token.ExtractIdentity("nope")
		require.False(t, ok)
	})
}
