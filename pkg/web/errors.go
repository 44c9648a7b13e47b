package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/session"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// KindBadRequest marks malformed requests and unusable audio.
const KindBadRequest = "BadRequest"

const repeatMessage = "Sorry, I couldn't hear that clearly. Could you please repeat?"

var statusByKind = map[string]int{
	session.KindSessionAlreadyActive:  fiber.StatusConflict,
	session.KindCapabilityDenied:      fiber.StatusForbidden,
	session.KindSessionNotFound:       fiber.StatusNotFound,
	session.KindSessionClosed:         fiber.StatusGone,
	session.KindTranscriptionFailed:   fiber.StatusBadGateway,
	session.KindGenerationUnavailable: fiber.StatusBadGateway,
	session.KindSynthesisFailed:       fiber.StatusBadGateway,
	session.KindMeetingCreateFailed:   fiber.StatusBadGateway,
	session.KindTranscriptionTimeout:  fiber.StatusGatewayTimeout,
	session.KindGenerationTimeout:     fiber.StatusGatewayTimeout,
	session.KindSynthesisTimeout:      fiber.StatusGatewayTimeout,
	session.KindCanceled:              fiber.StatusRequestTimeout,
	session.KindInternal:              fiber.StatusInternalServerError,
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`

	// Retry tells the client the same request may succeed if repeated,
	// typically after the user speaks again.
	Retry bool `json:"retry,omitempty"`
}

// describe maps an error to its status code and response body.
func describe(err error) (int, ErrorResponse) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, ErrorResponse{Error: fe.Message, Kind: kindForStatus(fe.Code)}
	case errors.Is(err, voice.ErrEmptyAudio), errors.Is(err, voice.ErrAudioTooLarge):
		return fiber.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: KindBadRequest, Retry: true}
	case errors.Is(err, meeting.ErrAnswerUnsupported):
		return fiber.StatusNotImplemented, ErrorResponse{Error: err.Error(), Kind: KindBadRequest}
	case errors.Is(err, meeting.ErrCallNotFound):
		return fiber.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: session.KindSessionNotFound}
	}

	kind := session.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	resp := ErrorResponse{Error: err.Error(), Kind: kind}
	switch kind {
	case session.KindTranscriptionFailed, session.KindTranscriptionTimeout:
		resp.Error = repeatMessage
		resp.Retry = true
	case session.KindInternal:
		resp.Error = "internal error"
	}
	return status, resp
}

func kindForStatus(code int) string {
	switch code {
	case fiber.StatusUnauthorized:
		return "Unauthenticated"
	case fiber.StatusNotFound:
		return session.KindSessionNotFound
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUpgradeRequired:
		return KindBadRequest
	}
	return session.KindInternal
}

// handleError is the fiber error handler for every route.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, resp := describe(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "kind", resp.Kind)
	}
	return c.Status(status).JSON(resp)
}
