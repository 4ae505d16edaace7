package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/hits-task/taskbot/conversation"
)

const stepDeclineReason conversation.StepID = "decline-reason"

// StartDecline opens the decline-with-reason form for one pending user.
func (w *Workflows) StartDecline(userID int64, targetUserID string) (conversation.Result, error) {
	if _, err := w.engine.Start(userID, conversation.KindDeclineReason, nil, map[string]string{
		"target_user_id": targetUserID,
	}); err != nil {
		return conversation.Result{}, err
	}
	return conversation.Result{
		Reply: "Enter a reason for declining (or type 'skip' to decline without one):",
	}, nil
}

func (w *Workflows) declineDefinition() *conversation.Definition {
	return &conversation.Definition{
		Kind:    conversation.KindDeclineReason,
		Initial: stepDeclineReason,
		Steps: map[conversation.StepID]conversation.Handler{
			stepDeclineReason: w.collectDeclineReason,
		},
	}
}

func (w *Workflows) collectDeclineReason(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	reason := strings.TrimSpace(input)
	if strings.EqualFold(reason, "skip") {
		reason = ""
	}
	if len([]rune(reason)) > maxReasonLen {
		return conversation.Result{
			Reply: fmt.Sprintf("The reason is too long (max %d characters). Please enter a shorter one:", maxReasonLen),
		}, nil
	}

	target := sess.Refs["target_user_id"]
	if err := w.authed.DeclineUser(ctx, sess.UserID, target, reason); err != nil {
		return w.failureResult("Decline", err), nil
	}
	w.log.Info().Int64("telegram_id", sess.UserID).Str("declined_user_id", target).Msg("pending user declined")
	return conversation.Result{Reply: "✅ User declined.", Done: true}, nil
}
