package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraceEvent(t *testing.T) {
	event := NewTraceEvent("session-1", TypeSessionStart, time.Now())

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "session-1", event.SessionID)
	assert.Equal(t, TypeSessionStart, event.Type)
	assert.NotNil(t, event.Data)
}

func TestBus_PublishDeliversInOrder(t *testing.T) {
	bus := NewBus(nil, nil)

	var mu sync.Mutex
	var seen []string
	bus.On(TypeStageStart, func(e TraceEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.ID)
	})

	first := NewTraceEvent("s1", TypeStageStart, time.Now())
	second := NewTraceEvent("s1", TypeStageStart, time.Now())
	bus.Publish(first)
	bus.Publish(second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, []string{first.ID, second.ID}, seen)
}

func TestBus_HandlerPanicIsolated(t *testing.T) {
	bus := NewBus(nil, nil)

	var secondCalled bool
	bus.On(TypeError, func(e TraceEvent) {
		panic("boom")
	})
	bus.On(TypeError, func(e TraceEvent) {
		secondCalled = true
	})

	assert.NotPanics(t, func() {
		bus.Publish(NewTraceEvent("s1", TypeError, time.Now()))
	})
	assert.True(t, secondCalled)
}

func TestBus_OffRemovesHandlers(t *testing.T) {
	bus := NewBus(nil, nil)
	called := false
	bus.On(TypeNarration, func(e TraceEvent) { called = true })
	bus.Off(TypeNarration)

	bus.Publish(NewTraceEvent("s1", TypeNarration, time.Now()))
	assert.False(t, called)
}

func TestBus_TracesOrderedAndAppendOnly(t *testing.T) {
	bus := NewBus(nil, nil)

	t0 := time.Now()
	bus.Publish(NewTraceEvent("s1", TypeSessionStart, t0))
	bus.Publish(NewTraceEvent("s1", TypeStageStart, t0.Add(time.Millisecond)))
	bus.Publish(NewTraceEvent("s2", TypeSessionStart, t0)) // different session

	traces := bus.Traces("s1")
	require.Len(t, traces, 2)
	assert.True(t, traces[0].Timestamp.Before(traces[1].Timestamp) || traces[0].Timestamp.Equal(traces[1].Timestamp))
	assert.Equal(t, TypeSessionStart, traces[0].Type)
	assert.Equal(t, TypeStageStart, traces[1].Type)
}
