// Package workflows declares the concrete conversation graphs the bot
// runs: account registration, event creation, event editing, and the
// decline-with-reason form. Each workflow collects validated fields into
// the session draft and commits through the backend gateway in its final
// step; commit failures surface the backend's message and discard the
// draft.
package workflows

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
)

// Workflows wires the step graphs to the gateway and registers them on
// the engine.
type Workflows struct {
	api      *backend.Client
	authed   *backend.Authorized
	engine   *conversation.Engine
	pageSize int
	log      zerolog.Logger
}

// New registers all workflow definitions. pageSize bounds the company
// pager; values below 1 fall back to 5.
func New(api *backend.Client, authed *backend.Authorized, engine *conversation.Engine, pageSize int, logger zerolog.Logger) (*Workflows, error) {
	if pageSize < 1 {
		pageSize = 5
	}
	w := &Workflows{
		api:      api,
		authed:   authed,
		engine:   engine,
		pageSize: pageSize,
		log:      logger.With().Str("component", "workflows").Logger(),
	}
	for _, def := range []*conversation.Definition{
		w.registrationDefinition(),
		w.createEventDefinition(),
		w.editEventDefinition(),
		w.declineDefinition(),
	} {
		if err := engine.Register(def); err != nil {
			return nil, fmt.Errorf("register workflow %q: %w", def.Kind, err)
		}
	}
	return w, nil
}

// failureResult converts a gateway error into a terminal user-visible
// result. Transport detail is logged, never shown.
func (w *Workflows) failureResult(what string, err error) conversation.Result {
	res := conversation.Result{Done: true}
	switch {
	case errors.Is(err, backend.ErrAuthRequired):
		res.Reply = "You need to log in first. Use /login."
	case errors.Is(err, backend.ErrAuthRejected):
		res.Reply = "Your session has expired. Please log in again with /login."
	default:
		if de, ok := backend.AsDomainError(err); ok && de.Message != "" {
			res.Reply = fmt.Sprintf("❌ %s failed: %s", what, de.Message)
		} else {
			w.log.Error().Err(err).Str("operation", what).Msg("workflow commit failed")
			res.Reply = fmt.Sprintf("❌ %s failed. Please try again later.", what)
		}
	}
	return res
}
