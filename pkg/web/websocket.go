package web

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/session"
)

// Frame types on the session websocket.
const (
	FrameReply = "reply"
	FrameError = "error"
	FrameEnded = "ended"
)

// Frame is one JSON message sent on the session websocket.
type Frame struct {
	Type   string          `json:"type"`
	Result *session.Result `json:"result,omitempty"`
	Error  *ErrorResponse  `json:"error,omitempty"`
}

// Command is a JSON text frame sent by the client. The only command is
// "end".
type Command struct {
	Type string `json:"type"`
}

// handleSessionWS is the live audio channel for one session. Each binary
// frame is one utterance and gets exactly one reply or error frame.
func (s *Server) handleSessionWS(conn *websocket.Conn) {
	defer conn.Close()

	user, _ := conn.Locals(userKey).(string)
	id := conn.Params("id")
	logger := s.logger.With("session_id", id)

	info, err := s.deps.Sessions.Info(id)
	if err == nil && info.UserID != user {
		err = session.ErrSessionNotFound
	}
	if err != nil {
		writeError(conn, logger, err)
		return
	}

	conn.SetReadLimit(int64(s.config.BodyLimit))
	logger.Debug("audio channel opened")
	defer logger.Debug("audio channel closed")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			result, err := s.deps.Sessions.ProcessUtterance(s.ctx, id, data)
			if err != nil {
				if writeError(conn, logger, err) != nil || session.Kind(err) == session.KindSessionClosed {
					return
				}
				continue
			}
			if send(conn, logger, Frame{Type: FrameReply, Result: result}) != nil {
				return
			}

		case websocket.TextMessage:
			var cmd Command
			if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type != "end" {
				continue
			}
			if err := s.deps.Sessions.End(s.ctx, id); err != nil {
				writeError(conn, logger, err)
				return
			}
			send(conn, logger, Frame{Type: FrameEnded})
			return
		}
	}
}

type frameWriter interface {
	WriteJSON(v interface{}) error
}

// send writes one frame. Write failures mean the peer is gone; they are
// logged and returned so the caller can stop.
func send(conn frameWriter, logger *slog.Logger, f Frame) error {
	if err := conn.WriteJSON(f); err != nil {
		logger.Debug("websocket write failed", "frame", f.Type, "error", err)
		return err
	}
	return nil
}

func writeError(conn frameWriter, logger *slog.Logger, err error) error {
	_, resp := describe(err)
	return send(conn, logger, Frame{Type: FrameError, Error: &resp})
}

// handleEventsWS streams the caller's session lifecycle events
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	user, _ := conn.Locals(userKey).(string)
	client, err := hub.NewClient(s.deps.Events, conn, user)
	if err != nil {
		conn.Close()
		return
	}
	client.Run() // Blocks until disconnect
}
