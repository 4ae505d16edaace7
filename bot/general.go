package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/session"
)

func (b *Bot) cmdStart(chatID int64) {
	b.reply(chatID,
		"👋 Welcome! I help you manage events and registrations.\n\n"+
			"New here? Start with /register.\n"+
			"Already registered? Use /login.\n\n"+
			"Use /help to see everything I can do.")
}

func (b *Bot) cmdHelp(chatID int64) {
	b.reply(chatID,
		"Available commands:\n\n"+
			"/start - Welcome message\n"+
			"/help - Show this help message\n"+
			"/register - Register a new account\n"+
			"/status - Check your approval status\n"+
			"/login - Log in to your account\n"+
			"/logout - Log out\n"+
			"/profile - Show your profile\n"+
			"/backend_health - Check service availability\n"+
			"/cancel - Cancel the current form\n\n"+
			"Managers: /manager_help\n"+
			"Students: /student_help")
}

func (b *Bot) cmdStatus(ctx context.Context, chatID, userID int64) {
	user, err := b.client.UserByTelegramID(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Status check", err))
		return
	}
	if user == nil {
		b.reply(chatID, "You are not registered yet. Use /register to create an account.")
		return
	}
	if user.IsApproved {
		b.reply(chatID, "✅ Your account is approved. You can /login.")
	} else {
		b.reply(chatID, "⏳ Your account is waiting for admin approval.")
	}
}

func (b *Bot) cmdBackendHealth(ctx context.Context, chatID int64) {
	if err := b.client.Health(ctx); err != nil {
		b.log.Warn().Err(err).Msg("health check failed")
		b.reply(chatID, "🔴 The service is unavailable right now.")
		return
	}
	b.reply(chatID, "🟢 The service is up.")
}

func (b *Bot) cmdRegister(ctx context.Context, chatID int64, from *tgbotapi.User) {
	res, err := b.flows.StartRegistration(ctx, from.ID, from.UserName)
	if err != nil {
		b.log.Error().Err(err).Int64("telegram_id", from.ID).Msg("registration start failed")
		b.reply(chatID, "❌ Something went wrong. Please try again later.")
		return
	}
	b.sendResult(chatID, res)
}

func (b *Bot) cmdLogin(ctx context.Context, chatID int64, from *tgbotapi.User) {
	userID := from.ID
	if b.sessions.IsLoggedIn(ctx, userID) {
		b.reply(chatID, "You are already logged in. Use /profile to see your account.")
		return
	}

	user, err := b.client.UserByTelegramID(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Login", err))
		return
	}
	if user == nil {
		b.reply(chatID, "You are not registered yet. Use /register first.")
		return
	}
	if !user.IsApproved {
		b.reply(chatID, "⏳ Your account is not approved yet. Check back later with /status.")
		return
	}

	proof := session.BuildLoginProof(userID, from.FirstName, from.LastName, from.UserName, b.botToken, nowFunc())
	if _, err := b.sessions.Login(ctx, proof); err != nil {
		b.reply(chatID, b.gatewayMessage("Login", err))
		return
	}
	b.reply(chatID, "✅ Logged in! Use /help to see what you can do.")
}

func (b *Bot) cmdLogout(chatID, userID int64) {
	b.sessions.Logout(userID)
	b.reply(chatID, "Logged out. Use /login to sign in again.")
}

func (b *Bot) cmdProfile(ctx context.Context, chatID, userID int64) {
	user, err := b.client.UserByTelegramID(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Profile", err))
		return
	}
	if user == nil {
		b.reply(chatID, "You are not registered yet. Use /register to create an account.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s %s", user.Surname, user.Name)
	if user.Patronymic != "" {
		fmt.Fprintf(&sb, " %s", user.Patronymic)
	}
	fmt.Fprintf(&sb, "\nRole: %s", user.Role)
	if user.Group != "" {
		fmt.Fprintf(&sb, "\nGroup: %s", user.Group)
	}
	if user.Role == backend.RoleManager && user.CompanyID != "" {
		fmt.Fprintf(&sb, "\nCompany: %s", user.CompanyID)
	}
	if user.IsApproved {
		sb.WriteString("\nStatus: approved ✅")
	} else {
		sb.WriteString("\nStatus: pending approval ⏳")
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) cmdCancel(chatID, userID int64) {
	if b.engine.Cancel(userID) {
		b.reply(chatID, "Cancelled. Nothing was saved.")
	} else {
		b.reply(chatID, "Nothing to cancel.")
	}
}
