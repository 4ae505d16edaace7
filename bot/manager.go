package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/hits-task/taskbot/conversation"
)

func (b *Bot) cmdManagerHelp(ctx context.Context, chatID, userID int64) {
	if !b.requireManager(ctx, chatID, userID) {
		return
	}
	b.reply(chatID,
		"👔 Manager commands:\n\n"+
			"/manager_help - Show this help message\n"+
			"/my_events - View your company's events\n"+
			"/create_event - Create a new event\n"+
			"/edit_event - Edit an existing event\n"+
			"/delete_event - Delete an event\n"+
			"/event_participants - View event participants\n"+
			"/pending_users - Review pending registrations")
}

func (b *Bot) cmdCreateEvent(ctx context.Context, chatID, userID int64) {
	if !b.requireManager(ctx, chatID, userID) {
		return
	}
	res, err := b.flows.StartEventCreation(userID)
	if err != nil {
		b.log.Error().Err(err).Int64("telegram_id", userID).Msg("event creation start failed")
		b.reply(chatID, "❌ Something went wrong. Please try again later.")
		return
	}
	b.sendResult(chatID, res)
}

func (b *Bot) cmdEditEvent(ctx context.Context, chatID, userID int64) {
	if !b.requireManager(ctx, chatID, userID) {
		return
	}
	res, err := b.flows.StartEventEditing(ctx, userID)
	if err != nil {
		b.log.Error().Err(err).Int64("telegram_id", userID).Msg("event editing start failed")
		b.reply(chatID, "❌ Something went wrong. Please try again later.")
		return
	}
	b.sendResult(chatID, res)
}

func (b *Bot) cmdDeleteEvent(ctx context.Context, chatID, userID int64) {
	if !b.requireManager(ctx, chatID, userID) {
		return
	}
	events, err := b.gateway.ManagerEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "You have no events to delete.")
		return
	}
	res := conversation.Result{Reply: "Which event do you want to delete?"}
	for _, ev := range events {
		res.Options = append(res.Options, conversation.Option{Label: ev.Name, Value: deleteEventPrefix + ev.ID})
	}
	b.sendResult(chatID, res)
}

func (b *Bot) cmdEventParticipants(ctx context.Context, chatID, userID int64) {
	if !b.requireManager(ctx, chatID, userID) {
		return
	}
	events, err := b.gateway.ManagerEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "You have no events yet.")
		return
	}
	res := conversation.Result{Reply: "Pick an event to see its participants:"}
	for _, ev := range events {
		res.Options = append(res.Options, conversation.Option{Label: ev.Name, Value: participantsPrefix + ev.ID})
	}
	b.sendResult(chatID, res)
}

func (b *Bot) cmdPendingUsers(ctx context.Context, chatID, userID int64) {
	if !b.requireManager(ctx, chatID, userID) {
		return
	}
	pending, err := b.gateway.PendingUsers(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Pending users", err))
		return
	}
	if len(pending) == 0 {
		b.reply(chatID, "No pending registrations. 🎉")
		return
	}
	for _, user := range pending {
		label := strings.TrimSpace(fmt.Sprintf("%s %s (%s)", user.Surname, user.Name, user.Role))
		b.sendResult(chatID, conversation.Result{
			Reply: label,
			Options: []conversation.Option{
				{Label: "✅ Approve", Value: approvePrefix + user.ID},
				{Label: "❌ Decline", Value: declinePrefix + user.ID},
			},
		})
	}
}

func (b *Bot) managerEventList(ctx context.Context, chatID, userID int64) {
	events, err := b.gateway.ManagerEvents(ctx, userID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Event listing", err))
		return
	}
	if len(events) == 0 {
		b.reply(chatID, "Your company has no events yet. Create one with /create_event.")
		return
	}
	var sb strings.Builder
	sb.WriteString("📅 Your company's events:\n")
	for _, ev := range events {
		fmt.Fprintf(&sb, "\n• %s — %s, %s", ev.Name, displayDate(ev.Date), ev.Location)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) callbackApprove(ctx context.Context, chatID, userID int64, targetID string) {
	if err := b.gateway.ApproveUser(ctx, userID, targetID); err != nil {
		b.reply(chatID, b.gatewayMessage("Approval", err))
		return
	}
	b.reply(chatID, "✅ User approved.")
}

func (b *Bot) callbackDecline(chatID, userID int64, targetID string) {
	res, err := b.flows.StartDecline(userID, targetID)
	if err != nil {
		b.log.Error().Err(err).Int64("telegram_id", userID).Msg("decline start failed")
		b.reply(chatID, "❌ Something went wrong. Please try again later.")
		return
	}
	b.sendResult(chatID, res)
}

func (b *Bot) callbackAskDelete(chatID int64, eventID string) {
	b.sendResult(chatID, conversation.Result{
		Reply: "Delete this event? This cannot be undone.",
		Options: []conversation.Option{
			{Label: "Yes, delete it", Value: confirmDeletePrefix + eventID},
			{Label: "Keep it", Value: cancelDeleteData},
		},
	})
}

func (b *Bot) callbackConfirmDelete(ctx context.Context, chatID, userID int64, eventID string) {
	if err := b.gateway.DeleteEvent(ctx, userID, eventID); err != nil {
		b.reply(chatID, b.gatewayMessage("Event deletion", err))
		return
	}
	b.reply(chatID, "🗑 Event deleted.")
}

func (b *Bot) callbackParticipants(ctx context.Context, chatID, userID int64, eventID string) {
	participants, err := b.gateway.EventParticipants(ctx, userID, eventID)
	if err != nil {
		b.reply(chatID, b.gatewayMessage("Participant listing", err))
		return
	}
	if len(participants) == 0 {
		b.reply(chatID, "Nobody has registered for this event yet.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Participants (%d):\n", len(participants))
	for _, p := range participants {
		fmt.Fprintf(&sb, "\n• %s %s", p.Surname, p.Name)
		if p.Group != "" {
			fmt.Fprintf(&sb, " (%s)", p.Group)
		}
	}
	b.reply(chatID, sb.String())
}
