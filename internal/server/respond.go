package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/book-expert/piper-web/internal/core"
	"github.com/book-expert/piper-web/internal/stt"
)

// errBadRequest tags orchestrator-level request faults (malformed bodies,
// unknown formats) that never reach the core pipeline.
var errBadRequest = errors.New("bad request")

// errorResponse is the failure envelope every endpoint shares.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(payload)
	if encodeErr != nil {
		s.log.Error("Failed to encode response: %v", encodeErr)
	}
}

// respondFailure maps a tagged failure value from the core onto an HTTP
// status and the shared failure envelope.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	s.respondJSON(w, statusFor(err), errorResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrInvalidSpeed),
		errors.Is(err, stt.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrVoiceNotFound),
		errors.Is(err, core.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEngineMissing),
		errors.Is(err, core.ErrSTTUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrEngineTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
