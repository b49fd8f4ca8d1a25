package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// Kind classifies a failure so callers branch on it instead of message text.
type Kind string

const (
	KindAccessDenied    Kind = "access_denied"
	KindUnauthenticated Kind = "unauthenticated"
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindBusy            Kind = "busy"
	KindStore           Kind = "store"
	KindSnapshotWrite   Kind = "snapshot_write"
	KindInternal        Kind = "internal"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	// Code overrides the kind's default response code.
	Code string
	// Fields holds per-field messages for KindValidation.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindStore {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new Error of the given kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a KindValidation error for a single field.
func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// ValidationFields builds a KindValidation error carrying several field messages.
func ValidationFields(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fields[k])
	}

	return &Error{
		Kind:    KindValidation,
		Message: strings.Join(parts, "; "),
		Fields:  fields,
	}
}

// Store wraps an engine failure, keeping the engine detail for diagnostics.
func Store(message string, err error) *Error {
	return Wrap(KindStore, message, err)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// WithCode returns a copy of e that responds with code instead of the kind's default.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

type response struct {
	status int
	code   string
}

var responses = map[Kind]response{
	KindUnauthenticated: {http.StatusUnauthorized, ErrCodeUnauthorized},
	KindAccessDenied:    {http.StatusForbidden, ErrCodeForbidden},
	KindValidation:      {http.StatusBadRequest, ErrCodeInvalidInput},
	KindNotFound:        {http.StatusNotFound, ErrCodeNotFound},
	KindConflict:        {http.StatusConflict, ErrCodeConflict},
	KindBusy:            {http.StatusConflict, ErrCodeBusy},
	KindStore:           {http.StatusInternalServerError, ErrCodeStoreError},
	KindSnapshotWrite:   {http.StatusInternalServerError, ErrCodeSnapshotWrite},
}

// Respond converts err into the JSON error body and status for its kind.
func Respond(c *gin.Context, err error) {
	var e *Error
	if !stderrors.As(err, &e) {
		InternalError(c, "")
		return
	}
	r, ok := responses[e.Kind]
	if !ok {
		InternalError(c, "")
		return
	}
	code := r.code
	if e.Code != "" {
		code = e.Code
	}

	var details interface{}
	switch {
	case e.Kind == KindValidation && len(e.Fields) > 0:
		details = e.Fields
	case e.Kind == KindStore && e.Err != nil:
		details = e.Err.Error()
	}
	RespondWithError(c, r.status, code, e.Message, details)
}
