package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"contacts-api/internal/model"
	"contacts-api/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps error kinds to statuses in one place so handlers stay
// thin. Services return *apierror.APIError for flows with specific
// user-facing details; sentinel errors cover the rest.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := "Internal server error"

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		detail = apiErr.Message
	case errors.Is(err, model.ErrContactNotFound):
		status = http.StatusNotFound
		detail = "NOT FOUND"
	case errors.Is(err, model.ErrUserNotFound):
		status = http.StatusNotFound
		detail = "User not found"
	case errors.Is(err, model.ErrUserAlreadyExists):
		status = http.StatusConflict
		detail = "Account already exists"
	case errors.Is(err, model.ErrInvalidToken), errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		detail = "Could not validate credentials"
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		detail = "Invalid input"
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}
