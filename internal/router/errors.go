package router

import (
	"errors"
	"fmt"
	"html"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

// ErrorKind classifies a failed request for logging and user replies.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidCode
	KindNotFound
	KindStorageUnavailable
	KindForeignChannel
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCode:
		return "invalid_code"
	case KindNotFound:
		return "not_found"
	case KindStorageUnavailable:
		return "storage_unavailable"
	case KindForeignChannel:
		return "foreign_channel"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Operation names carried by Error.Op.
const (
	opLookup    = "lookup"
	opDelete    = "delete"
	opSearch    = "search"
	opForward   = "forward"
	opPermalink = "permalink"
	opIngest    = "ingest"
	opMenu      = "menu"
	opSession   = "session"
)

// Error is a typed request failure. The router turns it into the user reply.
type Error struct {
	Kind ErrorKind
	Op   string
	Code string // the code involved, if any
	Err  error

	// replied is set when the handler already showed the failure to the user.
	replied bool
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, looking through wrapping.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	switch {
	case errors.Is(err, store.ErrUnavailable):
		return KindStorageUnavailable
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	}
	return KindUnknown
}

func storageErr(op string, err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Op: op, Err: err}
}

func transportErr(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// describe renders the user-facing text for err.
func describe(err error) string {
	var re *Error
	if !errors.As(err, &re) {
		if KindOf(err) == KindStorageUnavailable {
			return "⚠️ Storage is temporarily unavailable. Please try again."
		}
		return "⚠️ Sorry, something went wrong. Please try again."
	}

	code := html.EscapeString(re.Code)
	switch re.Kind {
	case KindInvalidCode:
		return "Please send a valid movie code (e.g., MOV123)"
	case KindNotFound:
		if re.Op == opDelete {
			return fmt.Sprintf("Code <code>%s</code> not found in database", code)
		}
		return fmt.Sprintf("Sorry, no video found with code <code>%s</code>", code)
	case KindStorageUnavailable:
		return "⚠️ Storage is temporarily unavailable. Please try again."
	case KindForeignChannel:
		if re.Op == opForward {
			return "This message was not forwarded from the configured channel."
		}
		return "This link is not from the configured channel."
	case KindTransport:
		if re.Err != nil {
			return "Error: " + html.EscapeString(re.Err.Error())
		}
		return "Error: delivery failed"
	}
	return "⚠️ Sorry, something went wrong. Please try again."
}
