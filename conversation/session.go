package conversation

import "time"

// Kind names a workflow family.
type Kind string

const (
	KindRegistration  Kind = "registration"
	KindCreateEvent   Kind = "create-event"
	KindEditEvent     Kind = "edit-event"
	KindDeclineReason Kind = "decline-reason"
)

// StepID names one step inside a workflow's graph.
type StepID string

// Session is one user's in-progress workflow: the current step plus the
// draft payload accumulated so far. Sessions live in memory until commit,
// cancel, or process restart.
type Session struct {
	ID     string
	UserID int64
	Kind   Kind
	Step   StepID

	// Data accumulates validated draft fields, keyed by field name.
	Data map[string]string

	// Refs holds ids the workflow operates on (event being edited,
	// user being declined) as opposed to collected fields.
	Refs map[string]string

	CreatedAt   time.Time
	LastTouched time.Time
}
