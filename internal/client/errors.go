package client

import (
	"errors"
	"fmt"
	"net/http"
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsAuthError reports whether err is a rejected or missing credential.
// Credential refresh is the session layer's problem; feeds and the send
// protocol only need to surface it.
func IsAuthError(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusUnauthorized
}

// IsValidationError reports whether the backend rejected the request
// payload itself, e.g. empty message content.
func IsValidationError(err error) bool {
	apiErr := AsAPIError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity
}
