package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hits-task/taskbot/conversation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const kindTest conversation.Kind = "test-flow"

// twoStepFlow collects "first" then "second" and finishes.
func twoStepFlow() *conversation.Definition {
	return &conversation.Definition{
		Kind:    kindTest,
		Initial: "first",
		Steps: map[conversation.StepID]conversation.Handler{
			"first": func(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
				if input == "" {
					return conversation.Result{Reply: "first may not be empty"}, nil
				}
				sess.Data["first"] = input
				return conversation.Result{Reply: "now second", Next: "second"}, nil
			},
			"second": func(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
				if input == "boom" {
					return conversation.Result{}, errors.New("handler defect")
				}
				sess.Data["second"] = input
				return conversation.Result{Reply: "done", Done: true}, nil
			},
		},
	}
}

func newEngine(t *testing.T) *conversation.Engine {
	t.Helper()
	e := conversation.New(zerolog.Nop())
	require.NoError(t, e.Register(twoStepFlow()))
	return e
}

func TestAdvanceWithoutSession(t *testing.T) {
	e := newEngine(t)
	_, err := e.Advance(context.Background(), 42, "hello")
	require.ErrorIs(t, err, conversation.ErrNoSession)
}

func TestHappyPath(t *testing.T) {
	e := newEngine(t)

	sess, err := e.Start(42, kindTest, map[string]string{"seeded": "yes"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, conversation.StepID("first"), sess.Step)

	res, err := e.Advance(context.Background(), 42, "alpha")
	require.NoError(t, err)
	require.Equal(t, "now second", res.Reply)
	require.False(t, res.Done)

	res, err = e.Advance(context.Background(), 42, "beta")
	require.NoError(t, err)
	require.True(t, res.Done)
	require.Equal(t, "alpha", sess.Data["first"])
	require.Equal(t, "beta", sess.Data["second"])
	require.Equal(t, "yes", sess.Data["seeded"])

	// terminal outcome destroys the session
	_, ok := e.Active(42)
	require.False(t, ok)
}

func TestRejectedInputStaysOnStep(t *testing.T) {
	e := newEngine(t)
	_, err := e.Start(42, kindTest, nil, nil)
	require.NoError(t, err)

	res, err := e.Advance(context.Background(), 42, "")
	require.NoError(t, err)
	require.Equal(t, "first may not be empty", res.Reply)

	sess, ok := e.Active(42)
	require.True(t, ok)
	require.Equal(t, conversation.StepID("first"), sess.Step)
}

func TestStartDiscardsExistingSession(t *testing.T) {
	e := newEngine(t)

	first, err := e.Start(42, kindTest, nil, nil)
	require.NoError(t, err)
	_, err = e.Advance(context.Background(), 42, "alpha")
	require.NoError(t, err)

	second, err := e.Start(42, kindTest, nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, conversation.StepID("first"), second.Step)
	require.Empty(t, second.Data)
}

func TestHandlerErrorDestroysSession(t *testing.T) {
	e := newEngine(t)
	_, err := e.Start(42, kindTest, nil, nil)
	require.NoError(t, err)
	_, err = e.Advance(context.Background(), 42, "alpha")
	require.NoError(t, err)

	_, err = e.Advance(context.Background(), 42, "boom")
	require.Error(t, err)

	_, ok := e.Active(42)
	require.False(t, ok, "failed step must not leave a dangling draft")
}

func TestCancel(t *testing.T) {
	e := newEngine(t)
	_, err := e.Start(42, kindTest, nil, nil)
	require.NoError(t, err)

	require.True(t, e.Cancel(42))
	require.False(t, e.Cancel(42), "second cancel has nothing to do")

	_, err = e.Advance(context.Background(), 42, "alpha")
	require.ErrorIs(t, err, conversation.ErrNoSession)
}

func TestRegisterValidation(t *testing.T) {
	e := conversation.New(zerolog.Nop())
	require.NoError(t, e.Register(twoStepFlow()))
	require.Error(t, e.Register(twoStepFlow()), "duplicate kind")
	require.Error(t, e.Register(&conversation.Definition{Kind: "x", Initial: "missing"}))
}

func TestDistinctUsersAreIndependent(t *testing.T) {
	e := newEngine(t)

	_, err := e.Start(1, kindTest, nil, nil)
	require.NoError(t, err)
	_, err = e.Start(2, kindTest, nil, nil)
	require.NoError(t, err)

	_, err = e.Advance(context.Background(), 1, "from-one")
	require.NoError(t, err)

	sessOne, _ := e.Active(1)
	sessTwo, _ := e.Active(2)
	require.Equal(t, conversation.StepID("second"), sessOne.Step)
	require.Equal(t, conversation.StepID("first"), sessTwo.Step)
}

func TestSameUserStepsSerialized(t *testing.T) {
	e := conversation.New(zerolog.Nop())

	var inStep int32
	var mu sync.Mutex
	overlapped := false

	require.NoError(t, e.Register(&conversation.Definition{
		Kind:    "slow",
		Initial: "only",
		Steps: map[conversation.StepID]conversation.Handler{
			"only": func(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
				mu.Lock()
				inStep++
				if inStep > 1 {
					overlapped = true
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				inStep--
				mu.Unlock()
				return conversation.Result{Reply: "ok"}, nil
			},
		},
	}))

	_, err := e.Start(42, "slow", nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Advance(context.Background(), 42, "x")
		}()
	}
	wg.Wait()

	require.False(t, overlapped, "two steps of the same user's workflow ran concurrently")
}

func TestSweepIdle(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := now
	e := conversation.New(zerolog.Nop(), conversation.WithNowTime(func() time.Time { return current }))
	require.NoError(t, e.Register(twoStepFlow()))

	_, err := e.Start(1, kindTest, nil, nil)
	require.NoError(t, err)

	current = now.Add(2 * time.Hour)
	_, err = e.Start(2, kindTest, nil, nil)
	require.NoError(t, err)

	removed := e.SweepIdle(time.Hour)
	require.Equal(t, 1, removed)

	_, ok := e.Active(1)
	require.False(t, ok)
	_, ok = e.Active(2)
	require.True(t, ok)
}
