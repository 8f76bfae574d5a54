// Package events implements the in-process typed pub/sub bus (spec C7):
// an ordered, append-only trace stream per session, with handler
// isolation and synchronous delivery.
//
// Grounded on the teacher's event bus (internal/events/bus_test.go):
// NewEvent/WithTraceID/WithMetadata builders, a BusConfig with buffer
// size and subscriber caps, and Prometheus-backed bus metrics
// (teacher root go.mod: github.com/prometheus/client_golang). Unlike
// the teacher's channel-based Subscribe (one shared channel per event
// type), this bus calls handlers synchronously within Publish so that
// per-session ordering and "handler must not affect other handlers"
// (spec.md §4.7) hold without an extra goroutine race to reason about.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Type is one of the TraceEvent type strings enumerated in spec.md §3.
type Type string

const (
	TypeSessionStart        Type = "session-start"
	TypeSessionEnd          Type = "session-end"
	TypeStageStart          Type = "stage-start"
	TypeStageEnd            Type = "stage-end"
	TypeMemberRequest       Type = "member-request"
	TypeMemberResponse      Type = "member-response"
	TypeVoteCast            Type = "vote-cast"
	TypeVotingComplete      Type = "voting-complete"
	TypeCorrectionTriggered Type = "correction-triggered"
	TypeBackupActivated     Type = "backup-activated"
	TypeMemoryCompressed    Type = "memory-compressed"
	TypeIterationStart      Type = "iteration-start"
	TypeIterationEnd        Type = "iteration-end"
	TypeError               Type = "error"
	TypeNarration           Type = "narration"
	TypePlanReady           Type = "plan-ready"
)

// TraceEvent is a single immutable record in a session's audit trail.
type TraceEvent struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"sessionId"`
	Type       Type           `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	Stage      string         `json:"stage,omitempty"`
	MemberID   string         `json:"memberId,omitempty"`
	MemberName string         `json:"memberName,omitempty"`
	DurationMs int64          `json:"durationMs,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Handler receives a TraceEvent. A panicking handler is recovered and
// logged; it never propagates to the emitter or to sibling handlers.
type Handler func(TraceEvent)

// Store is the append-only persistence seam (spec C8-adjacent but
// distinct: traces, not sessions). An in-memory implementation is
// provided; any backend serializing writes per session id qualifies.
type Store interface {
	Append(sessionID string, event TraceEvent)
	List(sessionID string) []TraceEvent
}

// memoryStore is the default in-memory trace store. One lock per
// session id avoids a single global mutex serializing unrelated
// sessions (spec.md §5 shared-resource policy).
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionLog
}

type sessionLog struct {
	mu     sync.Mutex
	events []TraceEvent
}

// NewMemoryStore creates the default in-memory trace store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]*sessionLog)}
}

func (s *memoryStore) logFor(sessionID string) *sessionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessions[sessionID]
	if !ok {
		l = &sessionLog{}
		s.sessions[sessionID] = l
	}
	return l
}

func (s *memoryStore) Append(sessionID string, event TraceEvent) {
	l := s.logFor(sessionID)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (s *memoryStore) List(sessionID string) []TraceEvent {
	l := s.logFor(sessionID)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TraceEvent, len(l.events))
	copy(out, l.events)
	return out
}

var busMetrics = struct {
	once      sync.Once
	published *prometheus.CounterVec
	handlerErrs *prometheus.CounterVec
}{}

func metrics() (*prometheus.CounterVec, *prometheus.CounterVec) {
	busMetrics.once.Do(func() {
		busMetrics.published = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "council_events_published_total",
			Help: "Total trace events published, by type.",
		}, []string{"type"})
		busMetrics.handlerErrs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "council_event_handler_panics_total",
			Help: "Total handler panics recovered by the event bus, by type.",
		}, []string{"type"})
		_ = prometheus.Register(busMetrics.published)
		_ = prometheus.Register(busMetrics.handlerErrs)
	})
	return busMetrics.published, busMetrics.handlerErrs
}

// Bus is the in-process typed pub/sub bus. Delivery is synchronous
// within Publish; handlers for one event type are called in
// registration order. Events published from one goroutine are delivered
// in publish order. In a parallel stage the pipeline publishes member
// events from several goroutines at once; those are delivered in the
// order their Publish calls run, and handlers may then be called
// concurrently.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	store    Store
	log      *logrus.Entry
}

// NewBus creates a bus backed by the given trace store (NewMemoryStore
// if nil) and logger (logrus.StandardLogger if nil).
func NewBus(store Store, log *logrus.Logger) *Bus {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{
		handlers: make(map[Type][]Handler),
		store:    store,
		log:      log.WithField("component", "events.Bus"),
	}
}

// On registers a handler for an event type.
func (b *Bus) On(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Off removes all handlers registered for an event type. The teacher's
// bus exposes a symmetric on/off pair (spec.md §4.7); since Go func
// values aren't comparable, Off clears the whole slot rather than
// matching a specific handler.
func (b *Bus) Off(t Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, t)
}

// NewTraceEvent builds a TraceEvent with a fresh ID and the given
// timestamp (callers supply the timestamp so pipeline-level monotonic
// ordering is explicit rather than relying on wall-clock resolution).
func NewTraceEvent(sessionID string, t Type, ts time.Time) TraceEvent {
	return TraceEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      t,
		Timestamp: ts,
		Data:      map[string]any{},
	}
}

// Publish delivers an event to every registered handler synchronously,
// then appends it to the trace store. A panicking handler is recovered
// and logged; it does not stop delivery to other handlers.
func (b *Bus) Publish(event TraceEvent) {
	published, handlerErrs := metrics()
	published.WithLabelValues(string(event.Type)).Inc()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(h, event, handlerErrs)
	}

	b.store.Append(event.SessionID, event)
}

func (b *Bus) invoke(h Handler, event TraceEvent, handlerErrs *prometheus.CounterVec) {
	defer func() {
		if r := recover(); r != nil {
			handlerErrs.WithLabelValues(string(event.Type)).Inc()
			b.log.WithFields(logrus.Fields{
				"session_id": event.SessionID,
				"event_type": event.Type,
				"panic":      r,
			}).Error("event handler panicked")
		}
	}()
	h(event)
}

// Traces returns the full, ordered trace log for a session.
func (b *Bus) Traces(sessionID string) []TraceEvent {
	return b.store.List(sessionID)
}
