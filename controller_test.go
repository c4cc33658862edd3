package scry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/scry"
	"github.com/fwojciec/scry/mock"
)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	ids := []string{"optimistic-1", "optimistic-2", "optimistic-3"}
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[n%len(ids)]
		n++
		return id
	}
}

func TestControllerOptimisticIDReconciledByServer(t *testing.T) {
	t.Parallel()

	var observed []string
	var mu sync.Mutex
	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			return mock.Events(
				scry.SessionEvent{SessionID: "server-1"},
				scry.TokenEvent{Content: "hi"},
			), nil
		},
	}

	c := scry.NewController(agent,
		scry.WithSessionIDs(sequentialIDs()),
		scry.WithControllerHooks(scry.Hooks{OnSessionID: func(id string) {
			mu.Lock()
			observed = append(observed, id)
			mu.Unlock()
		}}))

	assert.Empty(t, c.SessionID())

	answer, err := c.Submit(context.Background(), scry.Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "server-1", answer.SessionID)
	assert.Equal(t, "server-1", c.SessionID())

	mu.Lock()
	assert.Equal(t, []string{"server-1"}, observed)
	mu.Unlock()
}

func TestControllerSecondSubmitContinuesSession(t *testing.T) {
	t.Parallel()

	var askedSessionIDs []string
	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			askedSessionIDs = append(askedSessionIDs, req.SessionID)
			return mock.Events(
				scry.SessionEvent{SessionID: "server-1"},
				scry.TokenEvent{Content: "ok"},
			), nil
		},
	}

	c := scry.NewController(agent, scry.WithSessionIDs(sequentialIDs()))

	_, err := c.Submit(context.Background(), scry.Request{Question: "first"})
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), scry.Request{Question: "second"})
	require.NoError(t, err)

	require.Len(t, askedSessionIDs, 2)
	assert.Empty(t, askedSessionIDs[0], "first request asks the server to create the session")
	assert.Equal(t, "server-1", askedSessionIDs[1])
}

func TestControllerResearchCompletionDecrementsUsage(t *testing.T) {
	t.Parallel()

	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			return mock.Events(scry.TokenEvent{Content: "report"}), nil
		},
	}

	c := scry.NewController(agent)
	c.Usage().Set(3)

	_, err := c.Submit(context.Background(), scry.Request{Question: "deep dive", ForceIntent: scry.IntentResearch})
	require.NoError(t, err)

	remaining, known := c.Usage().Remaining()
	assert.True(t, known)
	assert.Equal(t, 2, remaining)
}

func TestControllerFailedResearchDoesNotDecrementUsage(t *testing.T) {
	t.Parallel()

	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			return nil, errors.New("boom")
		},
	}

	c := scry.NewController(agent)
	c.Usage().Set(3)

	_, err := c.Submit(context.Background(), scry.Request{Question: "deep dive", ForceIntent: scry.IntentResearch})
	require.Error(t, err)

	remaining, _ := c.Usage().Remaining()
	assert.Equal(t, 3, remaining)
}

func TestControllerGenericErrorArmsRetry(t *testing.T) {
	t.Parallel()

	attempts := 0
	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("transient failure")
			}
			assert.Equal(t, "same question", req.Question)
			return mock.Events(scry.TokenEvent{Content: "second time lucky"}), nil
		},
	}

	c := scry.NewController(agent)

	_, err := c.Submit(context.Background(), scry.Request{Question: "same question"})
	require.Error(t, err)

	answer, err := c.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", answer.Content)
	assert.Equal(t, 2, attempts)

	// A successful exchange disarms the retry path.
	_, err = c.Retry(context.Background())
	assert.True(t, errors.Is(err, scry.ErrNothingToRetry))
}

func TestControllerQuotaErrorDoesNotArmRetry(t *testing.T) {
	t.Parallel()

	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			return nil, &scry.RateLimitError{Period: "day", Limit: 5}
		},
	}

	c := scry.NewController(agent)

	_, err := c.Submit(context.Background(), scry.Request{Question: "q"})
	require.Error(t, err)

	rl := c.RateLimit()
	require.NotNil(t, rl)
	assert.Equal(t, "day", rl.Period)

	_, err = c.Retry(context.Background())
	assert.True(t, errors.Is(err, scry.ErrNothingToRetry))
}

func TestControllerAbortRestoresDraft(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var once sync.Once
	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			return &mock.Stream{NextFn: func() (scry.Event, error) {
				once.Do(func() { close(started) })
				<-ctx.Done()
				return nil, ctx.Err()
			}}, nil
		},
	}

	c := scry.NewController(agent)

	type result struct {
		answer *scry.Answer
		err    error
	}
	done := make(chan result, 1)
	go func() {
		a, err := c.Submit(context.Background(), scry.Request{
			Question: "restore me",
			Entities: []scry.EntityRef{{Term: "Uniswap", Slug: "uniswap"}},
		})
		done <- result{a, err}
	}()

	<-started
	require.NoError(t, c.Stop())

	res := <-done
	assert.True(t, errors.Is(res.err, scry.ErrAborted))
	assert.Nil(t, res.answer)

	draft := c.Draft()
	require.NotNil(t, draft)
	assert.Equal(t, "restore me", draft.Question)
	require.Len(t, draft.Entities, 1)
	assert.Equal(t, "uniswap", draft.Entities[0].Slug)

	// An abort is not retryable through the generic path.
	_, err := c.Retry(context.Background())
	assert.True(t, errors.Is(err, scry.ErrNothingToRetry))
}

func TestControllerReconnectCompletedSession(t *testing.T) {
	t.Parallel()

	agent := &mock.Agent{
		RestoreFn: func(ctx context.Context, sessionID string) (scry.RestoreState, error) {
			assert.Equal(t, "s-9", sessionID)
			return scry.RestoreState{
				Status: scry.StatusCompleted,
				Result: &scry.Answer{SessionID: "s-9", Content: "finished elsewhere"},
			}, nil
		},
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			t.Fatal("completed sessions must not reopen the stream")
			return nil, nil
		},
	}

	c := scry.NewController(agent)
	answer, err := c.Reconnect(context.Background(), "s-9")
	require.NoError(t, err)
	assert.Equal(t, "finished elsewhere", answer.Content)
	assert.Equal(t, "s-9", c.SessionID())
}

func TestControllerReconnectStreamingSession(t *testing.T) {
	t.Parallel()

	agent := &mock.Agent{
		RestoreFn: func(ctx context.Context, sessionID string) (scry.RestoreState, error) {
			return scry.RestoreState{Status: scry.StatusStreaming, Content: "Hello"}, nil
		},
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			assert.True(t, req.Resume)
			assert.Equal(t, "s-9", req.SessionID)
			return mock.Events(scry.TokenEvent{Content: " world"}), nil
		},
	}

	c := scry.NewController(agent)
	answer, err := c.Reconnect(context.Background(), "s-9")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", answer.Content)
}

func TestControllerStopWithoutSession(t *testing.T) {
	t.Parallel()

	c := scry.NewController(&mock.Agent{})
	assert.True(t, errors.Is(c.Stop(), scry.ErrNoActiveSession))
}

func TestControllerResetClearsState(t *testing.T) {
	t.Parallel()

	agent := &mock.Agent{
		AskFn: func(ctx context.Context, req scry.Request) (scry.EventStream, error) {
			return nil, errors.New("boom")
		},
	}

	c := scry.NewController(agent, scry.WithSessionIDs(sequentialIDs()))
	_, err := c.Submit(context.Background(), scry.Request{Question: "q"})
	require.Error(t, err)
	require.NotEmpty(t, c.SessionID())

	c.Reset()

	assert.Empty(t, c.SessionID())
	assert.Nil(t, c.Draft())
	assert.Nil(t, c.RateLimit())
	_, err = c.Retry(context.Background())
	assert.True(t, errors.Is(err, scry.ErrNothingToRetry))
	assert.Equal(t, scry.PhaseIdle, c.Phase())
}
