package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/bot"
	"github.com/hits-task/taskbot/conversation"
	"github.com/hits-task/taskbot/credentials"
	"github.com/hits-task/taskbot/internal/config"
	"github.com/hits-task/taskbot/session"
	"github.com/hits-task/taskbot/workflows"
)

func main() {
	for {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running bot: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	logger := newLogger(cfg)
	displayAppname("taskbot")

	store := credentials.NewFileRepo(cfg.TokenStorePath, logger)
	client := backend.NewClient(cfg.APIBaseURL, logger,
		backend.WithTimeouts(cfg.RequestTimeout, cfg.HealthTimeout))
	sessions := session.NewManager(store, client, logger)
	gateway := backend.NewAuthorized(client, sessions)
	engine := conversation.New(logger)

	flows, err := workflows.New(client, gateway, engine, cfg.CompanyPageSize, logger)
	if err != nil {
		return fmt.Errorf("workflows.New: %w", err)
	}

	b, err := bot.New(cfg.BotToken, client, gateway, sessions, engine, flows, logger)
	if err != nil {
		return fmt.Errorf("bot.New: %w", err)
	}
	logger.Info().Str("username", b.Username()).Str("backend", cfg.APIBaseURL).Msg("bot starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot.Run: %w", err)
	}
	logger.Info().Msg("bot stopped")
	return nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
