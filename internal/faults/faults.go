// Package faults defines the closed failure taxonomy shared by the data
// sources, the HTTP client and the DAO.
//
// Every failure a consumer can observe is classified into exactly one Kind.
// Causes that match no known transport or storage condition become
// KindUnknown with a phase prefix, never an unclassified error.
package faults

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

// Kind identifies one member of the failure taxonomy.
type Kind string

const (
	KindNetworkError       Kind = "network_error"
	KindNetworkTimeout     Kind = "network_timeout"
	KindNetworkUnavailable Kind = "network_unavailable"
	KindBadRequest         Kind = "bad_request"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindValidationError    Kind = "validation_error"
	KindServerError        Kind = "server_error"
	KindServiceUnavailable Kind = "service_unavailable"
	KindJSONParsing        Kind = "json_parsing_error"
	KindMapper             Kind = "mapper_error"
	KindDatabase           Kind = "database_error"
	KindTableNotFound      Kind = "table_not_found"
	KindEntityNotFound     Kind = "entity_not_found"
	KindUnknown            Kind = "unknown"
)

// Error is a classified failure. The message is preserved verbatim from the
// underlying cause wherever classification recognised it, so callers may
// still match on substrings of the original error text.
type Error struct {
	Kind       Kind
	StatusCode int
	msg        string
	cause      error
}

// New creates a classified error with a captured stack trace.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: errors.New(msg)}
}

// Wrap classifies an existing cause, keeping it reachable via Unwrap and
// attaching a stack trace if the cause carries none.
func Wrap(kind Kind, msg string, cause error) *Error {
	if cause != nil && errors.GetReportableStackTrace(cause) == nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, msg: msg, cause: cause}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the failure is worth retrying.
func (e *Error) Retryable() bool { return Retryable(e.Kind, e.StatusCode) }

// AuthError reports whether the failure is an authentication or
// authorization rejection.
func (e *Error) AuthError() bool { return AuthError(e.Kind) }

// ShouldLogout reports whether the failure invalidates the current session.
func (e *Error) ShouldLogout() bool { return e.Kind == KindUnauthorized }

// Retryable classifies a kind/status pair as transient.
func Retryable(kind Kind, statusCode int) bool {
	switch kind {
	case KindNetworkTimeout, KindNetworkUnavailable, KindNetworkError, KindServiceUnavailable:
		return true
	case KindServerError:
		return statusCode == 503
	}
	return false
}

// AuthError reports whether the kind is an auth rejection.
func AuthError(kind Kind) bool {
	return kind == KindUnauthorized || kind == KindForbidden
}

// Mapper tags a data-source mapper failure.
func Mapper(cause error) *Error {
	return Wrap(KindMapper, cause.Error(), cause)
}

// FromStatus classifies an HTTP status code. An empty message defaults to
// "Unknown error" so a Failure always carries human-readable text.
func FromStatus(statusCode int, message string) *Error {
	if message == "" {
		message = "Unknown error"
	}

	var kind Kind
	switch statusCode {
	case 400:
		kind = KindBadRequest
	case 401:
		kind = KindUnauthorized
	case 403:
		kind = KindForbidden
	case 404:
		kind = KindNotFound
	case 422:
		kind = KindValidationError
	case 503:
		kind = KindServiceUnavailable
	default:
		switch {
		case statusCode >= 500:
			kind = KindServerError
		case statusCode >= 400:
			kind = KindBadRequest
		default:
			kind = KindUnknown
		}
	}

	e := New(kind, message)
	e.StatusCode = statusCode
	return e
}

// ClassifyTransport maps a remote-phase failure into the taxonomy.
// Already-classified errors pass through unchanged.
func ClassifyTransport(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if isTimeout(err) {
		return Wrap(KindNetworkTimeout, err.Error(), err)
	}
	if isNetworkUnavailable(err) {
		return Wrap(KindNetworkUnavailable, err.Error(), err)
	}
	if isNetworkError(err) {
		return Wrap(KindNetworkError, err.Error(), err)
	}
	if isJSONError(err) {
		return Wrap(KindJSONParsing, err.Error(), err)
	}

	return Wrap(KindUnknown, "Remote fetch error: "+err.Error(), err)
}

// ClassifyStorage maps a local-phase failure into the taxonomy. Recognised
// storage causes keep their original message verbatim.
func ClassifyStorage(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, sql.ErrNoRows),
		strings.Contains(msg, "record not found"):
		return Wrap(KindEntityNotFound, msg, err)
	case strings.Contains(msg, "no such table"):
		return Wrap(KindTableNotFound, msg, err)
	case isStorageError(msg):
		return Wrap(KindDatabase, msg, err)
	}

	return Wrap(KindUnknown, "Local fetch error: "+msg, err)
}

// ClassifySave maps a save-back failure into the taxonomy. Recognised
// storage causes classify as with ClassifyStorage; anything else becomes
// unknown with the save-phase prefix.
func ClassifySave(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), strings.Contains(msg, "record not found"):
		return Wrap(KindEntityNotFound, msg, err)
	case strings.Contains(msg, "no such table"):
		return Wrap(KindTableNotFound, msg, err)
	case isStorageError(msg):
		return Wrap(KindDatabase, msg, err)
	}

	return Wrap(KindUnknown, "Save call result error: "+msg, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isNetworkUnavailable(err error) bool {
	return errors.IsAny(err, syscall.ENETUNREACH, syscall.ENETDOWN, syscall.EHOSTUNREACH)
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.IsAny(err, syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE)
}

func isJSONError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

// isStorageError recognises generic database failures by the vocabulary the
// sql/sqlite layers use in their messages.
func isStorageError(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, marker := range []string{"sql", "sqlite", "database", "constraint", "locked", "transaction"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
