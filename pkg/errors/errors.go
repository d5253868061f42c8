// Package errors carries the storefront's typed failures. Every error the
// services return to a caller is an *Error whose Code decides the HTTP
// status, retry hint, and whether details may be shown to the bot.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeOutOfStock     Code = "OUT_OF_STOCK"
	CodeEmptyCart      Code = "EMPTY_CART"
	CodeStockConflict  Code = "STOCK_CONFLICT"
	CodeCheckoutFailed Code = "CHECKOUT_FAILED"
	CodeStateConflict  Code = "STATE_CONFLICT"
	CodeIdempotency    Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit      Code = "RATE_LIMITED"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeDependency     Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retry       = true
	noRetry     = false
	showDetails = true
	hideDetails = false
)

func meta(status int, retryable bool, detailsAllowed bool, public string) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: detailsAllowed}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   meta(http.StatusBadRequest, noRetry, showDetails, "validation failed"),
	CodeUnauthorized: meta(http.StatusUnauthorized, noRetry, hideDetails, "authentication required"),
	CodeNotFound:     meta(http.StatusNotFound, noRetry, hideDetails, "resource not found"),

	// Cart and checkout outcomes the bot renders back to the buyer.
	CodeOutOfStock:     meta(http.StatusConflict, noRetry, showDetails, "not enough stock"),
	CodeEmptyCart:      meta(http.StatusUnprocessableEntity, noRetry, hideDetails, "cart is empty"),
	CodeStockConflict:  meta(http.StatusConflict, noRetry, showDetails, "cart no longer matches available stock"),
	CodeCheckoutFailed: meta(http.StatusServiceUnavailable, retry, hideDetails, "checkout failed, nothing was charged"),
	CodeIdempotency:    meta(http.StatusConflict, noRetry, showDetails, "idempotency key reused"),

	CodeStateConflict: meta(http.StatusUnprocessableEntity, noRetry, showDetails, "state transition disallowed"),
	CodeRateLimit:     meta(http.StatusTooManyRequests, retry, hideDetails, "too many requests"),
	CodeInternal:      meta(http.StatusInternalServerError, retry, hideDetails, "internal server error"),
	CodeDependency:    meta(http.StatusServiceUnavailable, retry, showDetails, "dependency unavailable"),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
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

// Wrap attaches cause; a nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
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

// WithDetails sets the caller-facing payload, e.g. stock conflicts.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
