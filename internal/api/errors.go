package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/trailblaze/fieldops/internal/auth"
)

// ConnectionErrorMessage is shown when the backend gave no usable text.
const ConnectionErrorMessage = "Connection error"

// NetworkError is a transport failure: the request never got a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message is the backend's text.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is a ServerError with the given status.
func IsStatus(err error, status int) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Status == status
}

// ValidationError is raised locally when input cannot be sent as given.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func newServerError(status int, body []byte) *ServerError {
	body = bytes.TrimSpace(body)
	msg := string(body)
	if len(body) > 0 && body[0] == '{' {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			switch {
			case payload.Error != "":
				msg = payload.Error
			case payload.Message != "":
				msg = payload.Message
			}
		}
	}
	return &ServerError{Status: status, Message: strings.TrimSpace(msg)}
}

// UserMessage is the text to show for err: the backend's own message when
// there is one, local validation and permission messages as they are, and
// "Connection error" for everything else.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(err, &se) {
		if se.Message != "" {
			return se.Message
		}
		return ConnectionErrorMessage
	}
	var pd *auth.PermissionDenied
	if errors.As(err, &pd) {
		return pd.Error()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, auth.ErrAuthenticationMissing) {
		return auth.ErrAuthenticationMissing.Error()
	}
	return ConnectionErrorMessage
}
