package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies a failure for callers. Anything that is not a *Error is
// treated as KindInternal.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindConflict     ErrorKind = "CONFLICT"
	KindBusinessRule ErrorKind = "BUSINESS_RULE"
	KindInternal     ErrorKind = "INTERNAL"
)

// Stable error codes returned to API callers.
const (
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeForbidden               = "FORBIDDEN"
	CodeCustomerNotFound        = "CUSTOMER_NOT_FOUND"
	CodeLocationNotFound        = "LOCATION_NOT_FOUND"
	CodeProductNotFound         = "PRODUCT_NOT_FOUND"
	CodeQuoteNotFound           = "QUOTE_NOT_FOUND"
	CodeOrderNotFound           = "ORDER_NOT_FOUND"
	CodeInvoiceNotFound         = "INVOICE_NOT_FOUND"
	CodePaymentNotFound         = "PAYMENT_NOT_FOUND"
	CodeQuoteAlreadyConverted   = "QUOTE_ALREADY_CONVERTED"
	CodeQuoteAlreadyInvoiced    = "QUOTE_ALREADY_INVOICED"
	CodeQuoteNotEditable        = "QUOTE_NOT_EDITABLE"
	CodeQuoteExpired            = "QUOTE_EXPIRED"
	CodeQuoteRejected           = "QUOTE_REJECTED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeDuplicateInvoice        = "DUPLICATE_INVOICE"
	CodeInvoiceNotEditable      = "INVOICE_NOT_EDITABLE"
	CodeInvoiceCancelled        = "INVOICE_CANCELLED"
	CodeOrderNotInvoiceable     = "ORDER_NOT_INVOICEABLE"
	CodeOrderHasInvoice         = "ORDER_HAS_INVOICE"
	CodeCreditHold              = "CREDIT_HOLD"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeCustomerMismatch        = "CUSTOMER_MISMATCH"
)

// Detail is a machine-readable entry attached to a rejection, typically one per
// offending line item or request field.
type Detail struct {
	Line      int    `json:"line,omitempty"`
	ProductID int    `json:"productId,omitempty"`
	Field     string `json:"field,omitempty"`
	Requested *int   `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
	Reason    string `json:"reason"`
}

// Error is the typed failure returned by core operations.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details []Detail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails appends details and returns e.
func (e *Error) WithDetails(details ...Detail) *Error {
	e.Details = append(e.Details, details...)
	return e
}

// Wrap records the underlying cause and returns e.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func newError(kind ErrorKind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validationf(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func NotFoundf(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return newError(KindForbidden, CodeForbidden, format, args...)
}

func Conflictf(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func BusinessRulef(code, format string, args ...any) *Error {
	return newError(KindBusinessRule, code, format, args...)
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the ErrorKind of err; unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}

// isUniqueViolation reports whether err is a Postgres unique_violation on the
// named constraint or index. An empty name matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
