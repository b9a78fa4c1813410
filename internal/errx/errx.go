// Package errx defines the error kinds surfaced by calls to remote services.
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	// KindConfiguration marks a missing required setting. Not retryable.
	KindConfiguration Kind = "configuration"
	// KindTokenFetch marks a failed credential exchange.
	KindTokenFetch Kind = "token_fetch"
	// KindChatRequest marks a failed chat call.
	KindChatRequest Kind = "chat_request"
	// KindTicketRequest marks a failed ticket submission.
	KindTicketRequest Kind = "ticket_request"
	// KindUnknown is returned by KindOf for errors outside this package.
	KindUnknown Kind = "unknown"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrTokenFetch    = &Error{Kind: KindTokenFetch}
	ErrChatRequest   = &Error{Kind: KindChatRequest}
	ErrTicketRequest = &Error{Kind: KindTicketRequest}
)

// Error carries the kind of failure, the remote HTTP status (0 when the request never
// completed) and the remote response body.
type Error struct {
	Kind    Kind
	Status  int
	Body    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: %d", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Status == 0 && t.Message == "" && t.Err == nil
}

// Configuration reports a missing required setting.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// TokenFetch reports a failed identity request.
func TokenFetch(status int, body string, err error) *Error {
	return &Error{Kind: KindTokenFetch, Status: status, Body: body, Message: "failed to get bearer token", Err: err}
}

// ChatRequest reports a failed chat request.
func ChatRequest(status int, body string, err error) *Error {
	return &Error{Kind: KindChatRequest, Status: status, Body: body, Message: "chat API error", Err: err}
}

// TicketRequest reports a failed ticket submission.
func TicketRequest(status int, body string, err error) *Error {
	return &Error{Kind: KindTicketRequest, Status: status, Body: body, Message: "ticket API error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps err to the status a handler should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindTokenFetch, KindChatRequest, KindTicketRequest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
