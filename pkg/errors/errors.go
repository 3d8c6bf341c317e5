package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeStateConflict       Code = "STATE_CONFLICT"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodePaymentNotCompleted Code = "PAYMENT_NOT_COMPLETED"
	CodeInvalidSignature    Code = "INVALID_SIGNATURE"
	CodeGateway             Code = "GATEWAY_ERROR"
	CodeInternal            Code = "INTERNAL_ERROR"
	// CodeDependency is returned when an upstream (database, redis, payment
	// provider) times out or cannot be reached.
	CodeDependency Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized:        {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:           {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:            {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:            {http.StatusConflict, true, "conflict detected", false},
	CodeStateConflict:       {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
	CodeIdempotency:         {http.StatusConflict, false, "idempotency key reused", true},
	CodeRateLimit:           {http.StatusTooManyRequests, false, "rate limit exceeded", false},
	CodePaymentNotCompleted: {http.StatusBadRequest, false, "payment not completed", false},
	CodeInvalidSignature:    {http.StatusBadRequest, false, "invalid signature", false},
	CodeGateway:             {http.StatusBadGateway, true, "payment provider error, please try again", false},
	CodeInternal:            {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:          {http.StatusServiceUnavailable, true, "dependency unavailable", true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, CodeInternal when err is untyped.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
