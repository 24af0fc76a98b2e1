package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Signature Errors (AUTH_*)
	ErrorCodeAuthSignatureMissing ErrorCode = "AUTH_SIGNATURE_MISSING"
	ErrorCodeAuthSignatureInvalid ErrorCode = "AUTH_SIGNATURE_INVALID"

	// Transaction Errors (TXN_*)
	ErrorCodeTxnNotFound ErrorCode = "TXN_NOT_FOUND"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationAmountTooLow  ErrorCode = "VALIDATION_AMOUNT_TOO_LOW"
	ErrorCodeValidationMalformedBody ErrorCode = "VALIDATION_MALFORMED_BODY"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayError             ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayTimeout           ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayProtocolViolation ErrorCode = "GATEWAY_PROTOCOL_VIOLATION"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeStoreError    ErrorCode = "INTERNAL_STORE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so sentinel values below work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetail returns a copy of the error with a detail field added
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Err: e.Err, Details: details}
}

// Wrap returns a copy of the error carrying cause as its underlying error
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: cause, Details: e.Details}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorMessage returns the client-facing message of a DomainError, or a generic one
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ErrInternalError.Message
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	return GetErrorCode(err) == ErrorCodeTxnNotFound
}

// IsAuthError checks if an error is a webhook signature error
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthSignatureMissing ||
		code == ErrorCodeAuthSignatureInvalid
}

// IsValidationError checks if an error is a caller input error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationMissingField ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationAmountTooLow ||
		code == ErrorCodeValidationMalformedBody
}

// IsGatewayError checks if an error came from the payment provider
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayError ||
		code == ErrorCodeGatewayTimeout ||
		code == ErrorCodeGatewayProtocolViolation
}

var (
	ErrSignatureMissing = NewDomainError(ErrorCodeAuthSignatureMissing, "missing signature")
	ErrSignatureInvalid = NewDomainError(ErrorCodeAuthSignatureInvalid, "invalid signature")

	ErrTxnNotFound = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")

	ErrPhoneRequired     = NewDomainError(ErrorCodeValidationMissingField, "Phone number is required")
	ErrAmountRequired    = NewDomainError(ErrorCodeValidationMissingField, "Amount is required")
	ErrAmountInvalid     = NewDomainError(ErrorCodeValidationAmountInvalid, "Amount must be a valid number")
	ErrAmountTooLow      = NewDomainError(ErrorCodeValidationAmountTooLow, "Amount is below the minimum payment amount")
	ErrMalformedBody     = NewDomainError(ErrorCodeValidationMalformedBody, "Invalid JSON")
	ErrTrackingIDMissing = NewDomainError(ErrorCodeValidationMissingField, "transactionId is required")

	ErrGatewayError       = NewDomainError(ErrorCodeGatewayError, "Payment initiation failed")
	ErrGatewayUnreachable = NewDomainError(ErrorCodeGatewayError, "Could not reach payment gateway")
	ErrGatewayTimedOut    = NewDomainError(ErrorCodeGatewayTimeout, "Payment gateway timed out. Please try again.")
	ErrGatewayProtocol    = NewDomainError(ErrorCodeGatewayProtocolViolation, "Unexpected response from payment gateway")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrStoreError    = NewDomainError(ErrorCodeStoreError, "transaction store error")
)
