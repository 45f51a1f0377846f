package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"NewsShell/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	streamBacklog  = 64
	maxClientFrame = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback by default.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents streams hub events as JSON text frames. The optional topic
// query parameter narrows the stream; a slow client loses events rather than
// holding up the hub.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, errNoEvents)
		return
	}
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = events.TopicAll
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}

	out := make(chan events.Event, streamBacklog)
	unsubscribe := s.events.Subscribe(topic, func(e events.Event) {
		select {
		case out <- e:
		default:
		}
	})

	closed := make(chan struct{})
	go s.readPump(conn, closed)
	s.writePump(conn, out, closed)
	unsubscribe()
}

// readPump discards client frames and notices disconnects.
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, out <-chan events.Event, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-closed:
			return
		case e := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
