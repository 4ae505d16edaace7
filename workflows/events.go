package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
)

const (
	stepEventName        conversation.StepID = "event-name"
	stepEventDescription conversation.StepID = "event-description"
	stepEventDate        conversation.StepID = "event-date"
	stepEventDeadline    conversation.StepID = "event-deadline"
	stepEventLocation    conversation.StepID = "event-location"

	stepEditSelect conversation.StepID = "edit-select"
	stepEditField  conversation.StepID = "edit-field"
	stepEditValue  conversation.StepID = "edit-value"
)

// EditEventPrefix tags callback buttons that pick the event to edit.
const EditEventPrefix = "edit_event_"

const (
	maxNameLen        = 255
	maxDescriptionLen = 3000
	maxReasonLen      = 255
)

// StartEventCreation opens the create-event workflow.
func (w *Workflows) StartEventCreation(userID int64) (conversation.Result, error) {
	if _, err := w.engine.Start(userID, conversation.KindCreateEvent, nil, nil); err != nil {
		return conversation.Result{}, err
	}
	return conversation.Result{Reply: "Let's create a new event! 🎉\n\nPlease enter the event name:"}, nil
}

func (w *Workflows) createEventDefinition() *conversation.Definition {
	return &conversation.Definition{
		Kind:    conversation.KindCreateEvent,
		Initial: stepEventName,
		Steps: map[conversation.StepID]conversation.Handler{
			stepEventName:        w.collectEventName,
			stepEventDescription: w.collectEventDescription,
			stepEventDate:        w.collectEventDate,
			stepEventDeadline:    w.collectEventDeadline,
			stepEventLocation:    w.collectEventLocation,
		},
	}
}

func (w *Workflows) collectEventName(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	name := strings.TrimSpace(input)
	if msg := checkEventName(name); msg != "" {
		return conversation.Result{Reply: msg}, nil
	}
	sess.Data["name"] = name
	return conversation.Result{
		Reply: "Enter a description (or type 'skip' to leave it empty):",
		Next:  stepEventDescription,
	}, nil
}

func (w *Workflows) collectEventDescription(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	description := strings.TrimSpace(input)
	if !strings.EqualFold(description, "skip") {
		if msg := checkEventDescription(description); msg != "" {
			return conversation.Result{Reply: msg}, nil
		}
		sess.Data["description"] = description
	}
	return conversation.Result{
		Reply: "Enter the event date (DD/MM/YYYY HH:MM):",
		Next:  stepEventDate,
	}, nil
}

func (w *Workflows) collectEventDate(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	date, err := ValidateFutureDate(strings.TrimSpace(input))
	if err != nil {
		return conversation.Result{Reply: err.Error()}, nil
	}
	sess.Data["date"] = toWire(date)
	return conversation.Result{
		Reply: "Enter the registration deadline (DD/MM/YYYY HH:MM), or type 'skip':",
		Next:  stepEventDeadline,
	}, nil
}

func (w *Workflows) collectEventDeadline(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	value := strings.TrimSpace(input)
	if !strings.EqualFold(value, "skip") {
		eventDate, err := fromWire(sess.Data["date"])
		if err != nil {
			return conversation.Result{}, err
		}
		deadline, err := ValidateDeadline(value, eventDate)
		if err != nil {
			return conversation.Result{Reply: err.Error()}, nil
		}
		sess.Data["deadline"] = toWire(deadline)
	}
	return conversation.Result{Reply: "Enter the event location:", Next: stepEventLocation}, nil
}

func (w *Workflows) collectEventLocation(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	location := strings.TrimSpace(input)
	if location == "" {
		return conversation.Result{Reply: "Location may not be empty. Please enter the event location:"}, nil
	}
	sess.Data["location"] = location

	draft := draftFromSession(sess)
	if err := w.authed.CreateEvent(ctx, sess.UserID, draft); err != nil {
		return w.failureResult("Event creation", err), nil
	}
	w.log.Info().Int64("telegram_id", sess.UserID).Str("event", draft.Name).Msg("event created")
	return conversation.Result{Reply: "✅ Event created!", Done: true}, nil
}

// StartEventEditing lists the manager's events and opens the edit
// workflow. With nothing to edit the workflow never starts.
func (w *Workflows) StartEventEditing(ctx context.Context, userID int64) (conversation.Result, error) {
	events, err := w.authed.ManagerEvents(ctx, userID)
	if err != nil {
		return w.failureResult("Event editing", err), nil
	}
	if len(events) == 0 {
		return conversation.Result{Reply: "You have no events to edit.", Done: true}, nil
	}

	if _, err := w.engine.Start(userID, conversation.KindEditEvent, nil, nil); err != nil {
		return conversation.Result{}, err
	}
	opts := make([]conversation.Option, 0, len(events))
	for _, ev := range events {
		opts = append(opts, conversation.Option{Label: ev.Name, Value: EditEventPrefix + ev.ID})
	}
	return conversation.Result{Reply: "Which event do you want to edit?", Options: opts}, nil
}

func (w *Workflows) editEventDefinition() *conversation.Definition {
	return &conversation.Definition{
		Kind:    conversation.KindEditEvent,
		Initial: stepEditSelect,
		Steps: map[conversation.StepID]conversation.Handler{
			stepEditSelect: w.selectEventToEdit,
			stepEditField:  w.selectFieldToEdit,
			stepEditValue:  w.collectEditedValue,
		},
	}
}

// selectEventToEdit resolves the chosen event and snapshots its current
// record into the draft, so the commit can send the full updated record.
func (w *Workflows) selectEventToEdit(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), EditEventPrefix))
	if id == "" {
		return conversation.Result{Reply: "Please pick an event from the list:"}, nil
	}

	event, err := w.authed.ManagerEvent(ctx, sess.UserID, id)
	if err != nil {
		return w.failureResult("Event editing", err), nil
	}
	if event == nil {
		return conversation.Result{Reply: "❌ Could not find that event. Start over with /edit_event.", Done: true}, nil
	}

	sess.Refs["event_id"] = event.ID
	sess.Data["name"] = event.Name
	sess.Data["description"] = event.Description
	sess.Data["date"] = event.Date
	sess.Data["deadline"] = event.RegistrationDeadline
	sess.Data["location"] = event.Location

	return conversation.Result{
		Reply:   fmt.Sprintf("Editing %q. What do you want to change?", event.Name),
		Options: editFieldOptions(),
		Next:    stepEditField,
	}, nil
}

func editFieldOptions() []conversation.Option {
	return []conversation.Option{
		{Label: "Name", Value: "name"},
		{Label: "Description", Value: "description"},
		{Label: "Date", Value: "date"},
		{Label: "Deadline", Value: "deadline"},
		{Label: "Location", Value: "location"},
		{Label: "Cancel", Value: "cancel"},
	}
}

func (w *Workflows) selectFieldToEdit(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	field := strings.ToLower(strings.TrimSpace(input))
	switch field {
	case "cancel":
		return conversation.Result{Reply: "Edit cancelled.", Done: true}, nil
	case "name", "description", "date", "deadline", "location":
		sess.Refs["field"] = field
		return conversation.Result{Reply: editValuePrompt(field), Next: stepEditValue}, nil
	default:
		return conversation.Result{
			Reply:   "Please choose a field to edit:",
			Options: editFieldOptions(),
		}, nil
	}
}

func editValuePrompt(field string) string {
	switch field {
	case "date":
		return "Enter the new date (DD/MM/YYYY HH:MM):"
	case "deadline":
		return "Enter the new registration deadline (DD/MM/YYYY HH:MM), or type 'skip' to remove it:"
	case "description":
		return "Enter the new description (or type 'skip' to clear it):"
	default:
		return fmt.Sprintf("Enter the new %s:", field)
	}
}

func (w *Workflows) collectEditedValue(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	value := strings.TrimSpace(input)

	switch sess.Refs["field"] {
	case "name":
		if msg := checkEventName(value); msg != "" {
			return conversation.Result{Reply: msg}, nil
		}
		sess.Data["name"] = value
	case "description":
		if strings.EqualFold(value, "skip") {
			sess.Data["description"] = ""
		} else {
			if msg := checkEventDescription(value); msg != "" {
				return conversation.Result{Reply: msg}, nil
			}
			sess.Data["description"] = value
		}
	case "date":
		date, err := ValidateFutureDate(value)
		if err != nil {
			return conversation.Result{Reply: err.Error()}, nil
		}
		// the full record is committed, so the stored deadline must still
		// hold against the new date
		if wire := sess.Data["deadline"]; wire != "" {
			deadline, err := fromWire(wire)
			if err != nil {
				return conversation.Result{}, err
			}
			if deadline.After(date) {
				return conversation.Result{Reply: fmt.Sprintf(
					"The registration deadline (%s) would be after the new date. Pick a later date, or edit the deadline first:",
					deadline.Format(DateLayout))}, nil
			}
		}
		sess.Data["date"] = toWire(date)
	case "deadline":
		if strings.EqualFold(value, "skip") {
			sess.Data["deadline"] = ""
			break
		}
		eventDate, err := fromWire(sess.Data["date"])
		if err != nil {
			return conversation.Result{}, err
		}
		deadline, err := ValidateDeadline(value, eventDate)
		if err != nil {
			return conversation.Result{Reply: err.Error()}, nil
		}
		sess.Data["deadline"] = toWire(deadline)
	case "location":
		if value == "" {
			return conversation.Result{Reply: "Location may not be empty. Please enter the new location:"}, nil
		}
		sess.Data["location"] = value
	default:
		return conversation.Result{}, fmt.Errorf("unknown edit field %q", sess.Refs["field"])
	}

	draft := draftFromSession(sess)
	if err := w.authed.EditEvent(ctx, sess.UserID, sess.Refs["event_id"], draft); err != nil {
		return w.failureResult("Event update", err), nil
	}
	w.log.Info().Int64("telegram_id", sess.UserID).Str("event_id", sess.Refs["event_id"]).Str("field", sess.Refs["field"]).Msg("event updated")
	return conversation.Result{Reply: "✅ Event updated!", Done: true}, nil
}

func draftFromSession(sess *conversation.Session) backend.EventDraft {
	return backend.EventDraft{
		Name:                 sess.Data["name"],
		Description:          sess.Data["description"],
		Date:                 sess.Data["date"],
		RegistrationDeadline: sess.Data["deadline"],
		Location:             sess.Data["location"],
	}
}

func checkEventName(name string) string {
	switch {
	case name == "":
		return "Name may not be empty. Please enter the event name:"
	case len([]rune(name)) > maxNameLen:
		return fmt.Sprintf("The name is too long (max %d characters). Please enter a shorter one:", maxNameLen)
	}
	return ""
}

func checkEventDescription(description string) string {
	if len([]rune(description)) > maxDescriptionLen {
		return fmt.Sprintf("The description is too long (max %d characters). Please enter a shorter one:", maxDescriptionLen)
	}
	return ""
}
