package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/rehearse/internal/llm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(ttl)
	store.now = clock.Now
	return store, clock
}

func TestServiceConversationFlow(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	completer := llm.NewScripted("Hello, tell me about yourself.", "Why Go?")
	svc := NewService(completer, store, nil)

	id, opening, err := svc.Start(context.Background(), "Backend engineer, Go and Postgres")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, "Hello, tell me about yourself.", opening)
	require.Contains(t, completer.Requests[0].System, "Backend engineer, Go and Postgres")

	reply, err := svc.Send(context.Background(), id, "  I build services. ")
	require.NoError(t, err)
	require.Equal(t, "Why Go?", reply)

	second := completer.Requests[1]
	require.Len(t, second.Turns, 3)
	require.Equal(t, llm.RoleAssistant, second.Turns[1].Role)
	require.Equal(t, "I build services.", second.Turns[2].Text)

	turns, err := store.Turns(id)
	require.NoError(t, err)
	require.Len(t, turns, 4)

	require.NoError(t, svc.End(id))
	_, err = svc.Send(context.Background(), id, "hello?")
	require.ErrorIs(t, err, ErrUnknownSession)
	require.ErrorIs(t, svc.End(id), ErrUnknownSession)
}

func TestServiceRejectsBlankInput(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	svc := NewService(llm.NewScripted(), store, nil)

	_, _, err := svc.Start(context.Background(), "   ")
	require.ErrorContains(t, err, "job description is required")
	require.Equal(t, 0, store.Len())

	_, err = svc.Send(context.Background(), "missing", " ")
	require.ErrorContains(t, err, "message is required")
}

func TestSendFailureKeepsHistory(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	completer := llm.NewScripted("opening")
	svc := NewService(completer, store, nil)

	id, _, err := svc.Start(context.Background(), "SRE")
	require.NoError(t, err)

	completer.FailNext(errors.New("rate limited"))
	_, err = svc.Send(context.Background(), id, "answer")
	require.ErrorContains(t, err, "rate limited")

	turns, err := store.Turns(id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestStartFailureCreatesNothing(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	completer := llm.NewScripted().FailNext(errors.New("down"))
	svc := NewService(completer, store, nil)

	_, _, err := svc.Start(context.Background(), "SRE")
	require.ErrorContains(t, err, "start chat")
	require.Equal(t, 0, store.Len())
}

func TestStoreExpiresIdleEntries(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	store.put("a", &conversation{system: "s"})
	store.put("b", &conversation{system: "s"})

	clock.Advance(45 * time.Second)
	_, err := store.Turns("b")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = store.Turns("a")
	require.ErrorIs(t, err, ErrExpired)
	require.Equal(t, 1, store.Len())

	_, err = store.Turns("a")
	require.ErrorIs(t, err, ErrUnknownSession)

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, store.Sweep())
	require.Equal(t, 0, store.Len())
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	store.put("a", &conversation{})
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestNewStoreDefaultsTTL(t *testing.T) {
	require.Equal(t, DefaultTTL, NewStore(0).ttl)
}
