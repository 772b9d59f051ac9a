package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/logging"
)

// errUnauthorized covers missing or unverifiable bearer tokens.
var errUnauthorized = errors.New("unauthorized")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("write response")
	}
}

// writeError maps err to a status code and writes {"error": msg}.
// Server errors are logged and their details kept out of the body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = http.StatusText(status)
		if errors.Is(err, domain.ErrMalformedAI) {
			msg = domain.ErrMalformedAI.Error()
		}
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrClassNotFound), errors.Is(err, domain.ErrBattleNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoundConflict),
		errors.Is(err, domain.ErrBattleCompleted),
		errors.Is(err, domain.ErrNotParticipant),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
