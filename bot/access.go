package bot

import (
	"context"

	"github.com/hits-task/taskbot/backend"
)

// Pseudo-roles for users the backend does not know, or could not be
// asked about.
const (
	roleUnregistered = "UNREGISTERED"
	roleUnknown      = "UNREGISTERED_UNKNOWN"
)

// userRole resolves a user's role: from the decoded token when a live
// session exists, otherwise from a profile lookup. A valid token whose
// profile has vanished means the account was removed behind our back;
// the stale session is torn down.
func (b *Bot) userRole(ctx context.Context, userID int64) string {
	loggedIn := false
	if identity, ok := b.sessions.Identity(ctx, userID); ok {
		loggedIn = true
		if identity.Role != "" {
			return identity.Role
		}
	}

	user, err := b.client.UserByTelegramID(ctx, userID)
	if err != nil {
		b.log.Error().Err(err).Int64("telegram_id", userID).Msg("role lookup failed")
		return roleUnknown
	}
	if user == nil {
		if loggedIn {
			b.log.Warn().Int64("telegram_id", userID).Msg("session exists for unregistered user, logging out")
			b.sessions.Logout(userID)
		}
		return roleUnregistered
	}
	return user.Role
}

// requireManager gates manager commands: role check first, approval
// check second. Returns false after replying when access is denied.
func (b *Bot) requireManager(ctx context.Context, chatID, userID int64) bool {
	switch role := b.userRole(ctx, userID); role {
	case backend.RoleManager, backend.RoleAdmin:
	case roleUnknown:
		b.reply(chatID, "❌ Could not verify your account right now. Please try again later.")
		return false
	default:
		b.reply(chatID, "❌ This command is only available for managers.")
		return false
	}
	if !b.isApproved(ctx, userID) {
		b.reply(chatID, "❌ Your account is not approved yet.")
		return false
	}
	return true
}

// requireStudent gates student commands the same way.
func (b *Bot) requireStudent(ctx context.Context, chatID, userID int64) bool {
	switch role := b.userRole(ctx, userID); role {
	case backend.RoleStudent:
	case roleUnknown:
		b.reply(chatID, "❌ Could not verify your account right now. Please try again later.")
		return false
	default:
		b.reply(chatID, "❌ This command is only available for students.")
		return false
	}
	if !b.isApproved(ctx, userID) {
		b.reply(chatID, "❌ Your account is not approved yet.")
		return false
	}
	return true
}

func (b *Bot) isApproved(ctx context.Context, userID int64) bool {
	user, err := b.client.UserByTelegramID(ctx, userID)
	if err != nil || user == nil {
		return false
	}
	return user.IsApproved
}
