package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"

	"github.com/alexkamer/Pit-Wall-Pro/internal/session"
	"github.com/alexkamer/Pit-Wall-Pro/pkg/streaming"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and bridges it to a session: one
// goroutine drains the subscriber channel onto the socket, the handler
// goroutine reads control envelopes and queues them.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	frames, cancel := sess.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go s.writeLoop(conn, frames, done)

	s.readLoop(conn, sess)

	conn.Close()
	<-done
}

// writeLoop is the only goroutine writing to the connection.
func (s *Server) writeLoop(conn *websocket.Conn, frames <-chan []byte, done chan struct{}) {
	defer close(done)
	for frame := range frames {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Debug("WebSocket write failed", "error", err)
			conn.Close()
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
}

func (s *Server) readLoop(conn *websocket.Conn, sess *session.Session) {
	conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("WebSocket read failed", "sessionId", sess.ID, "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Debug("Discarding malformed control message", "sessionId", sess.ID, "error", err)
			continue
		}

		switch env.Type {
		case streaming.TypePlay, streaming.TypePause:
			sess.Enqueue(session.Command{Op: env.Type})
		case streaming.TypeSeek:
			var ctrl streaming.ControlPayload
			if err := json.Unmarshal(env.Payload, &ctrl); err != nil {
				s.logger.Debug("Discarding malformed seek payload", "sessionId", sess.ID, "error", err)
				continue
			}
			sess.Enqueue(session.Command{Op: env.Type, Value: ctrl.Time})
		case streaming.TypeSetSpeed:
			var ctrl streaming.ControlPayload
			if err := json.Unmarshal(env.Payload, &ctrl); err != nil {
				s.logger.Debug("Discarding malformed speed payload", "sessionId", sess.ID, "error", err)
				continue
			}
			sess.Enqueue(session.Command{Op: env.Type, Value: ctrl.Speed})
		default:
			s.logger.Debug("Ignoring unknown control type", "sessionId", sess.ID, "type", env.Type)
		}
	}
}
