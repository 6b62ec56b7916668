package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) OnEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestStreamDeliversInOrder(t *testing.T) {
	t.Parallel()

	s := NewStream()
	a, b := &collector{}, &collector{}
	s.Subscribe(a)
	s.Subscribe(b)

	em := NewEmitter(s, "run-1", StagePlanner)
	for i := 0; i < 50; i++ {
		em.Emit(KindStateChanged, map[string]any{"i": i})
	}
	s.Close()

	for _, c := range []*collector{a, b} {
		got := c.snapshot()
		require.Len(t, got, 50)
		for i, e := range got {
			assert.Equal(t, uint64(i+1), e.Seq)
			assert.Equal(t, i, e.Payload["i"])
			assert.Equal(t, "run-1", e.RunID)
			assert.Equal(t, StagePlanner, e.Stage)
			assert.False(t, e.Timestamp.IsZero())
		}
	}
	assert.Equal(t, uint64(0), s.Dropped())
}

func TestStreamDropsOldestWhenSubscriberIsStalled(t *testing.T) {
	t.Parallel()

	s := NewStream(WithBufferSize(4))
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var mu sync.Mutex
	var seen []uint64
	s.Subscribe(HandlerFunc(func(e Event) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		seen = append(seen, e.Seq)
		mu.Unlock()
	}))

	s.Publish(Event{Kind: KindRunStarted})
	<-entered

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Publish(Event{Kind: KindStateChanged})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}

	close(release)
	s.Close()

	assert.Equal(t, uint64(6), s.Dropped())
	mu.Lock()
	defer mu.Unlock()
	// first event was in flight, then only the newest four of the ten survived
	assert.Equal(t, []uint64{1, 8, 9, 10, 11}, seen)
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	t.Parallel()

	s := NewStream()
	c := &collector{}
	sub := s.Subscribe(c)
	s.Publish(Event{Kind: KindRunStarted})
	sub.Close()
	s.Publish(Event{Kind: KindRunCompleted})
	s.Close()

	got := c.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, KindRunStarted, got[0].Kind)
}

func TestPanickingSubscriberDoesNotStopStream(t *testing.T) {
	t.Parallel()

	s := NewStream()
	c := &collector{}
	s.Subscribe(HandlerFunc(func(e Event) {
		if e.Kind == KindRunStarted {
			panic("boom")
		}
	}))
	s.Subscribe(c)

	s.Publish(Event{Kind: KindRunStarted})
	s.Publish(Event{Kind: KindRunCompleted})
	s.Close()

	assert.Len(t, c.snapshot(), 2)
}

func TestZeroEmitterIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NopEmitter().Emit(KindRunStarted, nil)
	})
}

func TestToolEventAggregator(t *testing.T) {
	agg := NewToolEventAggregator()
	agg.OnEvent(Event{Stage: StagePlanner, Kind: KindToolInvoked, Payload: map[string]any{
		PayloadCallID: "c1", PayloadTool: "list_directory", PayloadArguments: `{"path":"docs"}`,
	}})
	agg.OnEvent(Event{Stage: StagePlanner, Kind: KindToolResult, Payload: map[string]any{
		PayloadCallID: "c1", PayloadStatus: "success",
	}})
	agg.OnEvent(Event{Stage: StageExecutor, Kind: KindToolResult, Payload: map[string]any{
		PayloadCallID: "c1", PayloadTool: "write_file", PayloadStatus: "failure", PayloadError: "disk full", PayloadPartial: true,
	}})
	agg.OnEvent(Event{Kind: KindRunStarted})

	entries := agg.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Invoked)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, "write_file", entries[1].Name)
	assert.True(t, entries[1].Partial)

	lines := agg.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[planner] list_directory")
	assert.Contains(t, lines[1], "disk full")
}
