// Package bot adapts Telegram updates to the conversation engine and the
// backend gateway: command routing, callback routing, role gating, and
// reply rendering. One goroutine handles each inbound update; per-user
// ordering is enforced downstream by the engine.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
	"github.com/hits-task/taskbot/session"
	"github.com/hits-task/taskbot/workflows"
)

// nowFunc supplies auth_date for login proofs; replaceable in tests.
var nowFunc = time.Now

// Bot is the Telegram front end.
type Bot struct {
	api      *tgbotapi.BotAPI
	client   *backend.Client
	gateway  *backend.Authorized
	sessions *session.Manager
	engine   *conversation.Engine
	flows    *workflows.Workflows

	botToken string
	log      zerolog.Logger
}

// New connects to Telegram and wires the front end together. botToken is
// kept for login-proof construction.
func New(
	botToken string,
	client *backend.Client,
	gateway *backend.Authorized,
	sessions *session.Manager,
	engine *conversation.Engine,
	flows *workflows.Workflows,
	logger zerolog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return &Bot{
		api:      api,
		client:   client,
		gateway:  gateway,
		sessions: sessions,
		engine:   engine,
		flows:    flows,
		botToken: botToken,
		log:      logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Username reports the bot account name Telegram assigned.
func (b *Bot) Username() string { return b.api.Self.UserName }

// Run long-polls for updates until ctx is cancelled. Each update is
// handled on its own goroutine with panic isolation.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Info().Str("username", b.Username()).Msg("listening for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Any("panic", r).Int("update_id", update.UpdateID).Msg("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendResult(chatID, conversation.Result{Reply: text})
}

// sendResult renders a workflow result: the reply text plus an inline
// keyboard built from the options, one button per row.
func (b *Bot) sendResult(chatID int64, res conversation.Result) {
	if res.Reply == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, res.Reply)
	if len(res.Options) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(res.Options))
		for _, opt := range res.Options {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Value),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// displayDate converts a wire date to the format users type.
func displayDate(wire string) string {
	if wire == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, wire)
	if err != nil {
		return wire
	}
	return t.Format(workflows.DateLayout)
}
