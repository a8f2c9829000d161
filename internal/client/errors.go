package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrSessionExpired wraps every error caused by a failed token refresh.
// The user has to log in again.
var ErrSessionExpired = errors.New("session expired")

// RequestError is a non-2xx API response.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a RequestError with the given status.
func IsStatus(err error, status int) bool {
	var rerr *RequestError
	return errors.As(err, &rerr) && rerr.StatusCode == status
}

const maxErrorBody = 64 << 10

// newRequestError builds a RequestError from resp, taking the message from a
// JSON "message" or "error" field, else the raw body, else the status text.
// It consumes but does not close the body.
func newRequestError(resp *http.Response) *RequestError {
	rerr := &RequestError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	switch {
	case json.Unmarshal(body, &parsed) == nil && parsed.Message != "":
		rerr.Message = parsed.Message
	case parsed.Error != "":
		rerr.Message = parsed.Error
	case len(strings.TrimSpace(string(body))) > 0:
		rerr.Message = strings.TrimSpace(string(body))
	default:
		rerr.Message = http.StatusText(resp.StatusCode)
	}
	return rerr
}
