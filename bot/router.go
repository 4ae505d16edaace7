package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
)

// Callback data prefixes owned by the router. Anything else is fed to the
// conversation engine (pager pages, company picks, role buttons).
const (
	approvePrefix       = "approve_"
	declinePrefix       = "decline_"
	unregisterPrefix    = "unregister_"
	registerPrefix      = "register_"
	deleteEventPrefix   = "delete_event_"
	confirmDeletePrefix = "confirm_delete_"
	cancelDeleteData    = "cancel_delete"
	participantsPrefix  = "participants_"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	res, err := b.engine.Advance(ctx, msg.From.ID, msg.Text)
	switch {
	case errors.Is(err, conversation.ErrNoSession):
		b.reply(msg.Chat.ID, "I'm not sure what you mean. Use /help to see the available commands.")
	case err != nil:
		b.log.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("workflow step failed")
		b.reply(msg.Chat.ID, "❌ Something went wrong. Please start over.")
	default:
		b.sendResult(msg.Chat.ID, res)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	command := msg.Command()
	b.log.Debug().Int64("telegram_id", userID).Str("command", command).Msg("command received")

	switch command {
	case "start":
		b.cmdStart(chatID)
	case "help":
		b.cmdHelp(chatID)
	case "status":
		b.cmdStatus(ctx, chatID, userID)
	case "backend_health":
		b.cmdBackendHealth(ctx, chatID)
	case "register":
		b.cmdRegister(ctx, chatID, msg.From)
	case "login":
		b.cmdLogin(ctx, chatID, msg.From)
	case "logout":
		b.cmdLogout(chatID, userID)
	case "profile":
		b.cmdProfile(ctx, chatID, userID)
	case "cancel":
		b.cmdCancel(chatID, userID)

	case "manager_help":
		b.cmdManagerHelp(ctx, chatID, userID)
	case "create_event":
		b.cmdCreateEvent(ctx, chatID, userID)
	case "edit_event":
		b.cmdEditEvent(ctx, chatID, userID)
	case "delete_event":
		b.cmdDeleteEvent(ctx, chatID, userID)
	case "event_participants":
		b.cmdEventParticipants(ctx, chatID, userID)
	case "pending_users":
		b.cmdPendingUsers(ctx, chatID, userID)

	case "student_help":
		b.cmdStudentHelp(ctx, chatID, userID)
	case "my_events":
		b.cmdMyEvents(ctx, chatID, userID)
	case "available_events":
		b.cmdAvailableEvents(ctx, chatID, userID)
	case "register_event":
		b.cmdRegisterEvent(ctx, chatID, userID)
	case "unregister_event":
		b.cmdUnregisterEvent(ctx, chatID, userID)

	default:
		b.reply(chatID, "Unknown command. Use /help to see the available commands.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("callback ack failed")
	}
	if cq.Message == nil || cq.From == nil {
		return
	}
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	data := cq.Data

	switch {
	case strings.HasPrefix(data, approvePrefix):
		b.callbackApprove(ctx, chatID, userID, strings.TrimPrefix(data, approvePrefix))
	case strings.HasPrefix(data, declinePrefix):
		b.callbackDecline(chatID, userID, strings.TrimPrefix(data, declinePrefix))
	case strings.HasPrefix(data, unregisterPrefix):
		b.callbackUnregister(ctx, chatID, userID, strings.TrimPrefix(data, unregisterPrefix))
	case strings.HasPrefix(data, registerPrefix):
		b.callbackRegister(ctx, chatID, userID, strings.TrimPrefix(data, registerPrefix))
	case strings.HasPrefix(data, confirmDeletePrefix):
		b.callbackConfirmDelete(ctx, chatID, userID, strings.TrimPrefix(data, confirmDeletePrefix))
	case strings.HasPrefix(data, deleteEventPrefix):
		b.callbackAskDelete(chatID, strings.TrimPrefix(data, deleteEventPrefix))
	case data == cancelDeleteData:
		b.reply(chatID, "Deletion cancelled.")
	case strings.HasPrefix(data, participantsPrefix):
		b.callbackParticipants(ctx, chatID, userID, strings.TrimPrefix(data, participantsPrefix))
	default:
		// workflow-owned button: role picks, company picks, pager pages,
		// edit-event selection, field selection
		res, err := b.engine.Advance(ctx, userID, data)
		switch {
		case errors.Is(err, conversation.ErrNoSession):
			b.reply(chatID, "This form has expired. Please start it again.")
		case err != nil:
			b.log.Error().Err(err).Int64("telegram_id", userID).Str("data", data).Msg("callback step failed")
			b.reply(chatID, "❌ Something went wrong. Please start over.")
		default:
			b.sendResult(chatID, res)
		}
	}
}

// gatewayMessage converts a gateway error into the user-visible text for
// command-level (non-workflow) calls.
func (b *Bot) gatewayMessage(what string, err error) string {
	switch {
	case errors.Is(err, backend.ErrAuthRequired):
		return "You need to log in first. Use /login."
	case errors.Is(err, backend.ErrAuthRejected):
		return "Your session has expired. Please log in again with /login."
	default:
		if de, ok := backend.AsDomainError(err); ok && de.Message != "" {
			return fmt.Sprintf("❌ %s failed: %s", what, de.Message)
		}
		b.log.Error().Err(err).Str("operation", what).Msg("gateway call failed")
		return fmt.Sprintf("❌ %s failed. Please try again later.", what)
	}
}
