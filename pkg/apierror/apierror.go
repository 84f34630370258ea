package apierror

import "fmt"

// APIError is an error that already knows which HTTP status it maps to.
// Handlers pass these through writeError unchanged, so the service layer
// controls the exact user-facing detail string.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, status int) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: status}
}
