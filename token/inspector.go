// Package token decodes the claims embedded in backend-issued bearer
// credentials. The bot never verifies signatures: it holds no verification
// keys, and the backend remains the authority on token validity. Decoding
// is used only to read identity claims and to decide, ahead of the
// backend, whether a token is worth sending at all.
package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ExpirySkew is the safety margin subtracted from a token's expiry before
// treating it as expired, so a token is proactively refreshed slightly
// before the backend would reject it.
const ExpirySkew = 60 * time.Second

// Identity holds the claims the bot reads from an access token.
type Identity struct {
	Subject    string
	Email      string
	Role       string
	TelegramID int64
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// DecodePayload extracts the claim set from a three-segment bearer token
// without verifying its signature. It fails closed: a wrong segment count,
// a base64 error, or a JSON error all yield ok=false, never a panic or an
// error the caller has to handle.
func DecodePayload(raw string) (jwtlib.MapClaims, bool) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, false
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// IsExpired reports whether raw is unusable for an authenticated call.
// Malformed tokens and tokens without a numeric exp claim count as
// expired, as does any token with less than ExpirySkew of validity left.
func IsExpired(raw string) bool {
	claims, ok := DecodePayload(raw)
	if !ok {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !exp.Time.Add(-ExpirySkew).After(NowTimeFunc())
}

// ExtractIdentity pulls the identity claims out of an access token.
// Returns ok=false for any token DecodePayload rejects.
func ExtractIdentity(raw string) (*Identity, bool) {
	claims, ok := DecodePayload(raw)
	if !ok {
		return nil, false
	}

	id := &Identity{}
	id.Subject, _ = claims["sub"].(string)
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	if tg, ok := claims["telegramId"].(float64); ok {
		id.TelegramID = int64(tg)
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, true
}
