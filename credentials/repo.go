// Package credentials stores per-user access/refresh credential pairs.
// Absence of a record means the user is logged out.
package credentials

import "time"

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Record is the stored credential pair for one Telegram user.
type Record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	StoredAt     string `json:"stored_at"`
}

// Repo defines credential storage. Implementations must be safe for
// concurrent use across distinct user ids; same-user calls are already
// serialized by the conversation layer.
type Repo interface {
	// Put creates or overwrites the record for telegramID.
	Put(telegramID int64, access, refresh string) error

	// Get retrieves the record for telegramID. ok=false means logged out.
	Get(telegramID int64) (*Record, bool)

	// Delete removes the record. Deleting an absent record is a no-op.
	Delete(telegramID int64) error
}
