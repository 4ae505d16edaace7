package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
)

func (b *Bot) cmdStudentHelp(ctx context.Context, chatID, userID int64) {
	if !b.requireStudent(ctx, chatID, userID) {
		return
	}
	b.reply(chatID,
		"🎓 Student commands:\n\n"+
			"/student_help - Show this help message\n"+
			"/available_events - Browse events open for registration\n"+
			"/my_events - View events you are registered for\n"+
			"/register_event - Register for an event\n"+
			"/unregister_event - Cancel an event registration")
}

// cmdMyEvents serves both roles: a manager sees the company's events, a
// student the ones they registered for.
func (b *Bot) cmdMyEvents(ctx context.Context, chatID, userID int64) {
	switch b.userRole(ctx, userID) {
	case backend.RoleManager, backend.RoleAdmin:
		if b.requireManager(ctx, chatID, userID) {
			b.managerEventList(ctx, chatID, userID)
		}
	case backend.RoleStudent:
		if b.requireStudent(ctx, chatID, userID) {
			b.studentEventList(ctx, chatID, userID)
		}
	case roleUnknown:
		b.reply(chatID, "❌ Could not verify your account right now. Please try again later.")
	default:
		b.reply(chatID, "You are not registered yet. Use /register to create an account.")
	}
}

func (b *Bot) studentEventList(ctx context.Context, chatID, userID int64) {
	events, err := b.gateway.StudentEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "You are not registered for any events. Browse /available_events.")
		return
	}
	var sb strings.Builder
	sb.WriteString("📅 Your events:\n")
	for _, ev := range events {
		fmt.Fprintf(&sb, "\n• %s — %s, %s", ev.Name, displayDate(ev.Date), ev.Location)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) cmdAvailableEvents(ctx context.Context, chatID, userID int64) {
	if !b.requireStudent(ctx, chatID, userID) {
		return
	}
	events, err := b.gateway.AvailableEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "No events are open for registration right now.")
		return
	}
	var sb strings.Builder
	sb.WriteString("🗓 Open for registration:\n")
	for _, ev := range events {
		fmt.Fprintf(&sb, "\n• %s — %s, %s", ev.Name, displayDate(ev.Date), ev.Location)
		if ev.RegistrationDeadline != "" {
			fmt.Fprintf(&sb, " (register by %s)", displayDate(ev.RegistrationDeadline))
		}
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) cmdRegisterEvent(ctx context.Context, chatID, userID int64) {
	if !b.requireStudent(ctx, chatID, userID) {
		return
	}
	events, err := b.gateway.AvailableEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "No events are open for registration right now.")
		return
	}
	res := conversation.Result{Reply: "Which event do you want to register for?"}
	for _, ev := range events {
		res.Options = append(res.Options, conversation.Option{Label: ev.Name, Value: registerPrefix + ev.ID})
	}
	b.sendResult(chatID, res)
}

func (b *Bot) cmdUnregisterEvent(ctx context.Context, chatID, userID int64) {
	if !b.requireStudent(ctx, chatID, userID) {
		return
	}
	events, err := b.gateway.StudentEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "You are not registered for any events.")
		return
	}
	res := conversation.Result{Reply: "Which registration do you want to cancel?"}
	for _, ev := range events {
		res.Options = append(res.Options, conversation.Option{Label: ev.Name, Value: unregisterPrefix + ev.ID})
	}
	b.sendResult(chatID, res)
}

func (b *Bot) callbackRegister(ctx context.Context, chatID, userID int64, eventID string) {
	if err := b.gateway.RegisterForEvent(ctx, userID, eventID); err != nil {
		b.reply(chatID, b.gatewayMessage("Event registration", err))
		return
	}
	b.reply(chatID, "✅ You are registered! See your events with /my_events.")
}

func (b *Bot) callbackUnregister(ctx context.Context, chatID, userID int64, eventID string) {
	if err := b.gateway.UnregisterFromEvent(ctx, userID, eventID); err != nil {
		b.reply(chatID, b.gatewayMessage("Unregistration", err))
		return
	}
	b.reply(chatID, "✅ Your registration was cancelled.")
}
