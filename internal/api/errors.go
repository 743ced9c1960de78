package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/saravenpi/haggle/internal/session"
)

var (
	ErrNetwork          = errors.New("network unavailable")
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrValidation       = errors.New("request rejected")
	ErrNotFound         = errors.New("not found")
	ErrSelfConversation = errors.New("cannot message yourself")
	ErrServer           = errors.New("server error")
)

// Error is a non-2xx response. It unwraps to one of the sentinel errors above.
type Error struct {
	Route   session.Route
	Status  int
	Message string
	kind    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s returned status %d", e.Route, e.Status)
}

func (e *Error) Unwrap() error { return e.kind }

func decodeError(route session.Route, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error
		if msg == "" {
			msg = payload.Message
		}
	} else {
		msg = strings.TrimSpace(string(body))
	}

	e := &Error{Route: route, Status: resp.StatusCode, Message: msg}
	switch {
	case route == RouteStartConversation && strings.Contains(strings.ToLower(msg), "yourself"):
		e.kind = ErrSelfConversation
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.kind = ErrUnauthenticated
	case resp.StatusCode == http.StatusNotFound:
		e.kind = ErrNotFound
	case resp.StatusCode >= 500:
		e.kind = ErrServer
	default:
		e.kind = ErrValidation
	}
	return e
}

// Describe turns an operation error into the text shown in the notice banner.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	switch {
	case errors.Is(err, ErrSelfConversation):
		return "You can't start a conversation with yourself."
	case errors.Is(err, ErrUnauthenticated):
		return "You are not signed in. Please sign in and try again."
	case errors.Is(err, ErrNetwork):
		return "Can't reach the marketplace. Check your connection and try again."
	case errors.Is(err, ErrNotFound):
		return "That item no longer exists."
	case errors.Is(err, ErrServer):
		return "The marketplace is having trouble right now. Try again in a moment."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return fmt.Sprintf("Something went wrong: %v", err)
}
