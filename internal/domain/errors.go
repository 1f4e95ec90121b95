package domain

import (
	"errors"
	"fmt"
)

// DomainError is a failure with a stable machine-readable code and a
// message that is safe to show to the caller.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func Errorf(code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

const (
	CodeProductUnavailable     = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeStockReservationFailed = "STOCK_RESERVATION_FAILED"
	CodeShippingInfoRequired   = "SHIPPING_INFO_REQUIRED"
	CodeUserResolutionFailed   = "USER_RESOLUTION_FAILED"
	CodeOrderNotCancellable    = "ORDER_NOT_CANCELLABLE"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeConflict               = "CONFLICT"
)

var (
	ErrProductUnavailable     = NewDomainError(CodeProductUnavailable, "Product is not available")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrStockReservationFailed = NewDomainError(CodeStockReservationFailed, "Stock could not be reserved")
	ErrShippingInfoRequired   = NewDomainError(CodeShippingInfoRequired, "Shipping name, address line and phone are required for cash on delivery")
	ErrUserResolutionFailed   = NewDomainError(CodeUserResolutionFailed, "Could not resolve the ordering user")
	ErrOrderNotCancellable    = NewDomainError(CodeOrderNotCancellable, "Order can no longer be cancelled")
	ErrUnauthorized           = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrUnauthenticated        = NewDomainError(CodeUnauthenticated, "Sign in required")
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConflict               = NewDomainError(CodeConflict, "Resource already exists")
)

// Code returns the DomainError code wrapped in err, or "" for foreign errors.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
