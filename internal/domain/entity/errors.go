package entity

import (
	"errors"
	"net/http"
	"strings"
)

type ErrorKind string

const (
	KindMalformedRequest ErrorKind = "MalformedRequest"
	KindMissingFields    ErrorKind = "MissingFields"
	KindInvalidParameter ErrorKind = "InvalidParameter"
	KindSourceNotFound   ErrorKind = "SourceNotFound"
	KindStoreAccess      ErrorKind = "StoreAccessError"
	KindExtraction       ErrorKind = "ExtractionError"
	KindPackaging        ErrorKind = "PackagingError"
	KindUnexpected       ErrorKind = "UnexpectedError"
)

// GenericFailureMessage is the only text a caller sees for a 500-class failure.
const GenericFailureMessage = "an unexpected error occurred, please try again later"

// IsValidation reports whether the kind describes a problem with the request
// itself rather than with the infrastructure processing it.
func (k ErrorKind) IsValidation() bool {
	switch k {
	case KindMalformedRequest, KindMissingFields, KindInvalidParameter, KindSourceNotFound:
		return true
	}
	return false
}

func (k ErrorKind) StatusCode() int {
	if k.IsValidation() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a classified pipeline failure. Message is safe to show to the
// requester for validation kinds; Err carries the operator-facing cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []string
	Err     error
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func MissingFieldsError(fields []string) *Error {
	return &Error{
		Kind:    KindMissingFields,
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnexpected when err was never classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// PublicMessage is the requester-facing text for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind.IsValidation() {
		return e.Message
	}
	return GenericFailureMessage
}
