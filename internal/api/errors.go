package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/store"
)

// debateErrorStatus maps engine errors to an HTTP status and a message safe
// to show callers. Backend detail never reaches the client.
func debateErrorStatus(err error) (int, string) {
	var backendErr *debate.BackendError
	var transportErr *debate.TransportError

	switch {
	case errors.Is(err, debate.ErrValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), debate.ErrValidation.Error()+": ")
	case errors.Is(err, debate.ErrSessionNotBound):
		return http.StatusBadRequest, "debate has not been started"
	case errors.Is(err, debate.ErrNotFound):
		return http.StatusNotFound, "debate session not found"
	case errors.Is(err, debate.ErrBusy):
		return http.StatusConflict, "a reply is still streaming, wait for it to finish"
	case errors.As(err, &backendErr):
		status := backendErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, fmt.Sprintf("AI service error (status %d)", status)
	case errors.As(err, &transportErr):
		return http.StatusInternalServerError, "failed to communicate with the AI service"
	case errors.Is(err, store.ErrSaveFailed):
		return http.StatusInternalServerError, "failed to save debate session"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeDebateError(w http.ResponseWriter, err error) {
	status, msg := debateErrorStatus(err)
	Error(w, status, msg)
}
