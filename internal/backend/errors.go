package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnavailable wraps transport-level failures where no server message
// exists; callers surface a generic fallback instead of the raw error.
var ErrUnavailable = errors.New("service unavailable")

// APIError is a remote rejection. Message carries the server's reason
// verbatim so it can be shown to the user unchanged.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// RejectionMessage extracts the server's verbatim message from err, or
// returns the generic fallback for transport and unknown failures.
func RejectionMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "something went wrong, please try again"
}

func readAPIError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		_ = json.Unmarshal(body, &payload)
	}

	message := payload.Error
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}
