// Package backend is the typed gateway to the remote task-management API.
// Every call classifies its outcome into exactly one of: success (payload
// or empty), ErrAuthRequired, ErrAuthRejected, DomainError, or
// TransportError. Raw transport failures never cross this boundary.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second
	healthTimeout  = 5 * time.Second

	// errorBodySnippet caps how much of a non-JSON error body ends up in
	// a DomainError message.
	errorBodySnippet = 100
)

// Client issues typed requests against the backend API. Authenticated
// endpoints take the bearer credential explicitly; the Authorized facade
// wires them to the session layer.
type Client struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	log           zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeouts overrides the per-request and health-check timeouts.
func WithTimeouts(request, health time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.timeout = request
		}
		if health > 0 {
			c.healthTimeout = health
		}
	}
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{},
		timeout:       defaultTimeout,
		healthTimeout: healthTimeout,
		log:           logger.With().Str("component", "backend").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserByTelegramID looks up the profile for a Telegram user id. A non-200
// response means the user has no backend record; only transport failures
// are errors.
func (c *Client) UserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/telegram/%d", telegramID), "", nil, &user, c.timeout)
	if err != nil {
		if _, ok := AsDomainError(err); ok {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Register submits a registration draft. A DomainError carries the
// backend's rejection message.
func (c *Client) Register(ctx context.Context, req RegistrationRequest) error {
	c.log.Info().Int64("telegram_id", req.TelegramChatID).Str("role", req.Role).Msg("submitting registration")
	return c.do(ctx, http.MethodPost, "/auth/register-telegram", "", req, nil, c.timeout)
}

// Login exchanges a Telegram login-widget proof for a credential pair.
func (c *Client) Login(ctx context.Context, proof LoginProof) (*LoginResult, error) {
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/telegram-login", "", proof, &result, c.timeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh mints a new access credential from a refresh credential.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	req := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", req, &resp, c.timeout); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Companies fetches the full company listing.
func (c *Client) Companies(ctx context.Context) ([]Company, error) {
	var companies []Company
	if err := c.do(ctx, http.MethodGet, "/company/all", "", nil, &companies, c.timeout); err != nil {
		return nil, err
	}
	return companies, nil
}

// Health probes the backend with a short timeout.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil, c.healthTimeout)
}

// --- authenticated endpoints; bearer must be non-empty ---

func (c *Client) ManagerEvents(ctx context.Context, bearer string) ([]Event, error) {
	var events []Event
	if err := c.do(ctx, http.MethodGet, "/manager/event", bearer, nil, &events, c.timeout); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) ManagerEvent(ctx context.Context, bearer, eventID string) (*Event, error) {
	var event Event
	if err := c.do(ctx, http.MethodGet, "/manager/event/"+eventID, bearer, nil, &event, c.timeout); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) CreateEvent(ctx context.Context, bearer string, draft EventDraft) error {
	return c.do(ctx, http.MethodPost, "/manager/event", bearer, draft, nil, c.timeout)
}

// EditEvent replaces the full event record.
func (c *Client) EditEvent(ctx context.Context, bearer, eventID string, draft EventDraft) error {
	return c.do(ctx, http.MethodPut, "/manager/event/"+eventID, bearer, draft, nil, c.timeout)
}

func (c *Client) DeleteEvent(ctx context.Context, bearer, eventID string) error {
	return c.do(ctx, http.MethodDelete, "/manager/event/"+eventID, bearer, nil, nil, c.timeout)
}

func (c *Client) EventParticipants(ctx context.Context, bearer, eventID string) ([]Participant, error) {
	var participants []Participant
	if err := c.do(ctx, http.MethodGet, "/manager/event/"+eventID+"/participants", bearer, nil, &participants, c.timeout); err != nil {
		return nil, err
	}
	return participants, nil
}

func (c *Client) PendingUsers(ctx context.Context, bearer string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/manager/users/pending", bearer, nil, &users, c.timeout); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ApproveUser(ctx context.Context, bearer, userID string) error {
	return c.do(ctx, http.MethodPost, "/manager/approve-user/"+userID, bearer, nil, nil, c.timeout)
}

// DeclineUser declines a pending user, optionally with a reason.
func (c *Client) DeclineUser(ctx context.Context, bearer, userID, reason string) error {
	var body any
	if reason != "" {
		body = struct {
			Reason string `json:"reason"`
		}{Reason: reason}
	}
	return c.do(ctx, http.MethodPost, "/manager/decline-user/"+userID, bearer, body, nil, c.timeout)
}

func (c *Client) AvailableEvents(ctx context.Context, bearer string) ([]Event, error) {
	var events []Event
	if err := c.do(ctx, http.MethodGet, "/student/event", bearer, nil, &events, c.timeout); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) StudentEvents(ctx context.Context, bearer string) ([]Event, error) {
	var events []Event
	if err := c.do(ctx, http.MethodGet, "/student/event/my", bearer, nil, &events, c.timeout); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) RegisterForEvent(ctx context.Context, bearer, eventID string) error {
	return c.do(ctx, http.MethodPost, "/student/event/"+eventID+"/register", bearer, nil, nil, c.timeout)
}

func (c *Client) UnregisterFromEvent(ctx context.Context, bearer, eventID string) error {
	return c.do(ctx, http.MethodDelete, "/student/event/"+eventID+"/register", bearer, nil, nil, c.timeout)
}

// do issues one request and classifies the outcome. out may be nil for
// calls whose body is irrelevant.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any, timeout time.Duration) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("op", op).Msg("backend request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.drain(resp.Body)
		c.log.Warn().Str("op", op).Msg("backend rejected credential")
		return ErrAuthRejected
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.domainError(op, resp)
	}

	if out == nil {
		c.drain(resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Error().Err(err).Str("op", op).Int("status", resp.StatusCode).Msg("malformed backend response")
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// domainError extracts the backend's structured message when the error
// body is JSON, otherwise a snippet of the raw body.
func (c *Client) domainError(op string, resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		raw = nil
	}

	message := ""
	var structured struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &structured) == nil && structured.Message != "" {
		message = structured.Message
	} else if trimmed := strings.TrimSpace(string(raw)); trimmed != "" {
		if runes := []rune(trimmed); len(runes) > errorBodySnippet {
			trimmed = string(runes[:errorBodySnippet])
		}
		message = trimmed
	}

	c.log.Error().Str("op", op).Int("status", resp.StatusCode).Str("message", message).Msg("backend reported failure")
	return &DomainError{Status: resp.StatusCode, Message: message}
}

func (c *Client) drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, body)
}
