package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vasic-digital/council/internal/events"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var streamedTypes = []events.Type{
	events.TypeSessionStart, events.TypeSessionEnd,
	events.TypeStageStart, events.TypeStageEnd,
	events.TypeMemberRequest, events.TypeMemberResponse,
	events.TypeVoteCast, events.TypeVotingComplete,
	events.TypeIterationStart, events.TypeIterationEnd,
	events.TypeError,
}

// streamHub fans out every trace event published on a Bus to whichever
// wsClients are currently watching that event's session. It registers
// exactly one Bus handler per event type, for the hub's lifetime,
// rather than one per connection — Bus has no per-handler Off (Bus.Off
// clears every handler of a type), so per-connection registration would
// leak a handler per dropped client.
type streamHub struct {
	mu      sync.Mutex
	clients map[string][]*wsClient
}

func newStreamHub(bus *events.Bus) *streamHub {
	h := &streamHub{clients: make(map[string][]*wsClient)}
	for _, t := range streamedTypes {
		bus.On(t, h.dispatch)
	}
	return h
}

func (h *streamHub) dispatch(ev events.TraceEvent) {
	h.mu.Lock()
	watchers := append([]*wsClient(nil), h.clients[ev.SessionID]...)
	h.mu.Unlock()
	for _, c := range watchers {
		c.forward(ev)
	}
}

func (h *streamHub) subscribe(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.sessionID] = append(h.clients[c.sessionID], c)
}

func (h *streamHub) unsubscribe(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := h.clients[c.sessionID]
	for i, p := range peers {
		if p == c {
			h.clients[c.sessionID] = append(peers[:i], peers[i+1:]...)
			break
		}
	}
	if len(h.clients[c.sessionID]) == 0 {
		delete(h.clients, c.sessionID)
	}
}

// handleStream upgrades to a WebSocket and forwards the path's
// session's TraceEvents of the streamedTypes as they are published,
// until the session ends or a write to the client fails. Events that
// arrive while the client's send buffer is full are dropped.
func (s *Server) handleStream(c *gin.Context) {
	sessionID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("councilserver: websocket upgrade failed")
		return
	}
	defer conn.Close()

	client := &wsClient{conn: conn, sessionID: sessionID, send: make(chan events.TraceEvent, 64)}
	s.hub.subscribe(client)
	defer s.hub.unsubscribe(client)

	client.writePump()
}

// wsClient streams one session's trace events to one WebSocket
// connection, grounded on the pump-goroutine-plus-buffered-channel
// shape the reference implementations use for their chat streams.
type wsClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan events.TraceEvent
	mu        sync.Mutex
	closed    bool
}

func (w *wsClient) forward(ev events.TraceEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.send <- ev:
	default:
	}
}

func (w *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		w.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Type == events.TypeSessionEnd {
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
