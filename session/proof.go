package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hits-task/taskbot/backend"
)

// BuildLoginProof constructs the Telegram login-widget payload the
// backend verifies. The check string is the sorted, newline-joined list
// of present fields; the proof is an HMAC-SHA256 over it keyed with
// SHA256(botToken), hex encoded. This must match the backend's
// verification byte for byte; last_name and username are only included
// when non-empty.
func BuildLoginProof(telegramID int64, firstName, lastName, username, botToken string, now time.Time) backend.LoginProof {
	authDate := now.Unix()

	pairs := []string{
		fmt.Sprintf("auth_date=%d", authDate),
		"first_name=" + firstName,
		fmt.Sprintf("id=%d", telegramID),
	}
	if lastName != "" {
		pairs = append(pairs, "last_name="+lastName)
	}
	if username != "" {
		pairs = append(pairs, "username="+username)
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))

	return backend.LoginProof{
		ID:        telegramID,
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
		AuthDate:  authDate,
		Hash:      hex.EncodeToString(mac.Sum(nil)),
	}
}
