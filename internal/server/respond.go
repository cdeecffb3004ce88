package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "ranchops/pkg/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

type internalErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// writeError maps an error to its HTTP status. Internal diagnostic detail
// stays in the server logs; callers only see the caller-safe message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.ErrCodeInternalError, "an unexpected error occurred", err)
	}

	switch appErr.Code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeBadRequest:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: appErr.Message})
	case apperrors.ErrCodeUnauthorized:
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: appErr.Message})
	case apperrors.ErrCodeForbidden:
		writeJSON(w, http.StatusForbidden, errorBody{Error: appErr.Message})
	case apperrors.ErrCodeNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{Error: appErr.Message})
	default:
		log.Printf("[HTTP] Internal error: %v", appErr)
		writeJSON(w, http.StatusInternalServerError, internalErrorBody{
			Error:   "internal server error",
			Message: appErr.Message,
		})
	}
}
