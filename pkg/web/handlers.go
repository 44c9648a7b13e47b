package web

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/session"
)

// StartResponse is returned by POST /start-session.
type StartResponse struct {
	SessionID string         `json:"session_id"`
	Language  string         `json:"language"`
	Greeting  string         `json:"greeting"`
	Meeting   meeting.Handle `json:"meeting"`
}

// VoiceMessageRequest is the body of POST /voice-message. Audio is base64.
type VoiceMessageRequest struct {
	SessionID string `json:"session_id"`
	Audio     string `json:"audio"`
}

// EndSessionRequest is the body of POST /end-session.
type EndSessionRequest struct {
	SessionID string `json:"session_id"`
}

// AnswerRequest carries a participant's SDP answer.
type AnswerRequest struct {
	SDP string `json:"sdp"`
}

// LanguagesResponse is returned by GET /supported-languages.
type LanguagesResponse struct {
	Languages []language.Info `json:"languages"`
	Default   string          `json:"default"`
	Platform  string          `json:"meeting_platform"`
}

// MessagesResponse is returned by GET /sessions/:id/messages.
type MessagesResponse struct {
	SessionID string              `json:"session_id"`
	Messages  []conversation.Turn `json:"messages"`
}

// handleHealth reports liveness and a coarse view of the arena
func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":   "ok",
		"sessions": s.deps.Sessions.Stats().Sessions,
	}
	if s.deps.Events != nil {
		resp["event_clients"] = s.deps.Events.ClientCount()
	}
	return c.JSON(resp)
}

// handleSupportedLanguages lists the languages and meeting platform
func (s *Server) handleSupportedLanguages(c *fiber.Ctx) error {
	return c.JSON(LanguagesResponse{
		Languages: s.deps.Languages.Supported(),
		Default:   s.deps.Languages.Default(),
		Platform:  s.deps.Calls.Platform(),
	})
}

// handleStartSession opens a session for the caller
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	started, err := s.deps.Sessions.Start(c.UserContext(), callerID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(StartResponse{
		SessionID: started.SessionID,
		Language:  started.Language,
		Greeting:  started.Greeting,
		Meeting:   started.Call,
	})
}

// handleVoiceMessage runs one utterance through the pipeline. The audio is
// either a JSON body with base64 audio or a raw audio body with the session
// in the query string.
func (s *Server) handleVoiceMessage(c *fiber.Ctx) error {
	var req VoiceMessageRequest
	var audio []byte
	if isRawAudio(c.Get(fiber.HeaderContentType)) {
		req.SessionID = c.Query("session_id")
		audio = append([]byte(nil), c.Body()...)
	} else {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "audio must be base64")
		}
		audio = decoded
	}
	if req.SessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id is required")
	}
	if _, err := s.owned(c, req.SessionID); err != nil {
		return err
	}

	start := time.Now()
	result, err := s.deps.Sessions.ProcessUtterance(c.UserContext(), req.SessionID, audio)
	if err != nil {
		return err
	}
	s.logger.Debug("voice message", "session_id", req.SessionID, "bytes", len(audio), "ms", since(start))
	return c.JSON(result)
}

// handleEndSession ends the caller's session. Ending twice succeeds.
func (s *Server) handleEndSession(c *fiber.Ctx) error {
	var req EndSessionRequest
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id is required")
	}
	if _, err := s.owned(c, req.SessionID); err != nil {
		return err
	}
	if err := s.deps.Sessions.End(c.UserContext(), req.SessionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleActiveSession returns the caller's open session
func (s *Server) handleActiveSession(c *fiber.Ctx) error {
	info, ok := s.deps.Sessions.ActiveSession(callerID(c))
	if !ok {
		return session.ErrSessionNotFound
	}
	return c.JSON(info)
}

// handleSessionInfo returns one session
func (s *Server) handleSessionInfo(c *fiber.Ctx) error {
	info, err := s.owned(c, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

// handleSessionMessages returns the session's bounded history
func (s *Server) handleSessionMessages(c *fiber.Ctx) error {
	info, err := s.owned(c, c.Params("id"))
	if err != nil {
		return err
	}
	turns, err := s.deps.Sessions.History(info.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(MessagesResponse{SessionID: info.SessionID, Messages: turns})
}

// handleAnswer completes a WebRTC call with the participant's SDP answer
func (s *Server) handleAnswer(c *fiber.Ctx) error {
	info, err := s.owned(c, c.Params("id"))
	if err != nil {
		return err
	}
	if !info.State.Open() || info.Call.IsZero() {
		return session.ErrSessionClosed
	}
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil || req.SDP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "sdp is required")
	}
	if err := s.deps.Calls.Answer(c.UserContext(), info.Call, req.SDP); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleStats returns session counts and average stage latencies
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats := s.deps.Sessions.Stats()
	return c.JSON(fiber.Map{
		"sessions": stats.Sessions,
		"cycles":   stats.Cycles,
		"average":  stats.Average,
		"latency":  stats.Average.FormatLatency(),
	})
}

// owned returns the session if the caller owns it. Sessions of other users
// are reported as not found.
func (s *Server) owned(c *fiber.Ctx, sessionID string) (session.Info, error) {
	info, err := s.deps.Sessions.Info(sessionID)
	if err != nil {
		return session.Info{}, err
	}
	if info.UserID != callerID(c) {
		return session.Info{}, session.ErrSessionNotFound
	}
	return info, nil
}

func isRawAudio(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, fiber.MIMEOctetStream)
}
