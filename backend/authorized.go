package backend

import (
	"context"
	"errors"
)

// TokenSource supplies a currently-valid bearer credential for a user and
// tears the session down when the backend rejects one. Implemented by the
// session manager.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, telegramID int64) (string, bool)
	Logout(telegramID int64)
}

// Authorized wraps Client's authenticated endpoints with the credential
// policy: fail fast with ErrAuthRequired when no valid credential exists
// (the call is never attempted with an empty bearer), and log the user
// out before surfacing ErrAuthRejected.
type Authorized struct {
	client *Client
	tokens TokenSource
}

// NewAuthorized wires a gateway client to a credential source.
func NewAuthorized(client *Client, tokens TokenSource) *Authorized {
	return &Authorized{client: client, tokens: tokens}
}

func (a *Authorized) call(ctx context.Context, telegramID int64, fn func(bearer string) error) error {
	bearer, ok := a.tokens.ValidAccessToken(ctx, telegramID)
	if !ok {
		return ErrAuthRequired
	}
	err := fn(bearer)
	if errors.Is(err, ErrAuthRejected) {
		a.tokens.Logout(telegramID)
	}
	return err
}

func (a *Authorized) ManagerEvents(ctx context.Context, telegramID int64) ([]Event, error) {
	var events []Event
	err := a.call(ctx, telegramID, func(bearer string) error {
		var callErr error
		events, callErr = a.client.ManagerEvents(ctx, bearer)
		return callErr
	})
	return events, err
}

func (a *Authorized) ManagerEvent(ctx context.Context, telegramID int64, eventID string) (*Event, error) {
	var event *Event
	err := a.call(ctx, telegramID, func(bearer string) error {
		var callErr error
		event, callErr = a.client.ManagerEvent(ctx, bearer, eventID)
		return callErr
	})
	return event, err
}

func (a *Authorized) CreateEvent(ctx context.Context, telegramID int64, draft EventDraft) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.CreateEvent(ctx, bearer, draft)
	})
}

func (a *Authorized) EditEvent(ctx context.Context, telegramID int64, eventID string, draft EventDraft) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.EditEvent(ctx, bearer, eventID, draft)
	})
}

func (a *Authorized) DeleteEvent(ctx context.Context, telegramID int64, eventID string) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.DeleteEvent(ctx, bearer, eventID)
	})
}

func (a *Authorized) EventParticipants(ctx context.Context, telegramID int64, eventID string) ([]Participant, error) {
	var participants []Participant
	err := a.call(ctx, telegramID, func(bearer string) error {
		var callErr error
		participants, callErr = a.client.EventParticipants(ctx, bearer, eventID)
		return callErr
	})
	return participants, err
}

func (a *Authorized) PendingUsers(ctx context.Context, telegramID int64) ([]User, error) {
	var users []User
	err := a.call(ctx, telegramID, func(bearer string) error {
		var callErr error
		users, callErr = a.client.PendingUsers(ctx, bearer)
		return callErr
	})
	return users, err
}

func (a *Authorized) ApproveUser(ctx context.Context, telegramID int64, userID string) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.ApproveUser(ctx, bearer, userID)
	})
}

func (a *Authorized) DeclineUser(ctx context.Context, telegramID int64, userID, reason string) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.DeclineUser(ctx, bearer, userID, reason)
	})
}

func (a *Authorized) AvailableEvents(ctx context.Context, telegramID int64) ([]Event, error) {
	var events []Event
	err := a.call(ctx, telegramID, func(bearer string) error {
		var callErr error
		events, callErr = a.client.AvailableEvents(ctx, bearer)
		return callErr
	})
	return events, err
}

func (a *Authorized) StudentEvents(ctx context.Context, telegramID int64) ([]Event, error) {
	var events []Event
	err := a.call(ctx, telegramID, func(bearer string) error {
		var callErr error
		events, callErr = a.client.StudentEvents(ctx, bearer)
		return callErr
	})
	return events, err
}

func (a *Authorized) RegisterForEvent(ctx context.Context, telegramID int64, eventID string) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.RegisterForEvent(ctx, bearer, eventID)
	})
}

func (a *Authorized) UnregisterFromEvent(ctx context.Context, telegramID int64, eventID string) error {
	return a.call(ctx, telegramID, func(bearer string) error {
		return a.client.UnregisterFromEvent(ctx, bearer, eventID)
	})
}
