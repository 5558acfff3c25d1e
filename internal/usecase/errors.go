package usecase

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrRouteInactive      = errors.New("route is not active")
	ErrNoVehicleAvailable = errors.New("no active vehicle serves this route")
	ErrBookingExpired     = errors.New("booking reservation has expired")
	ErrForbidden          = errors.New("actor may not act on this resource")
	ErrCardInactive       = errors.New("card is not active")
	ErrAlreadyRedeemed    = errors.New("ticket already used")
	ErrRequestInProgress  = errors.New("a request with this idempotency key is still in progress")
)

type ValidationError struct {
	Field   string
	Message string
	// Fields holds per-field messages when a whole request failed validation.
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func routeNotFound(id fmt.Stringer) error   { return &NotFoundError{Resource: "route", ID: id.String()} }
func bookingNotFound(id fmt.Stringer) error { return &NotFoundError{Resource: "booking", ID: id.String()} }
func cardNotFound(id fmt.Stringer) error    { return &NotFoundError{Resource: "card", ID: id.String()} }

// InvalidStateError reports an operation that is illegal in the current lifecycle state.
type InvalidStateError struct {
	Operation string
	Status    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s booking in status %s", e.Operation, e.Status)
}

type CapacityExceededError struct {
	Requested int
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("requested %d seats but only %d remain", e.Requested, e.Remaining)
}

type InsufficientBalanceError struct {
	Balance decimal.Decimal
	Amount  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Balance.StringFixed(2), e.Amount.StringFixed(2))
}

type CredentialReason string

const (
	ReasonExpired      CredentialReason = "expired"
	ReasonBadSignature CredentialReason = "bad_signature"
	ReasonMalformed    CredentialReason = "malformed"
)

type CredentialInvalidError struct {
	Reason CredentialReason
}

func (e *CredentialInvalidError) Error() string {
	return "credential invalid: " + string(e.Reason)
}

// InfrastructureError wraps storage and transport failures so callers can
// tell them apart from business-rule rejections.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func infra(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsBusinessError reports whether err is one of the typed rule violations.
func IsBusinessError(err error) bool {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		state      *InvalidStateError
		capacity   *CapacityExceededError
		balance    *InsufficientBalanceError
		credential *CredentialInvalidError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &state),
		errors.As(err, &capacity), errors.As(err, &balance), errors.As(err, &credential):
		return true
	case errors.Is(err, ErrRouteInactive), errors.Is(err, ErrNoVehicleAvailable), errors.Is(err, ErrBookingExpired),
		errors.Is(err, ErrForbidden), errors.Is(err, ErrCardInactive), errors.Is(err, ErrAlreadyRedeemed),
		errors.Is(err, ErrRequestInProgress):
		return true
	}
	return false
}

// classify passes typed errors through and wraps anything else as an
// infrastructure failure of op.
func classify(op string, err error) error {
	if err == nil || IsBusinessError(err) {
		return err
	}
	var ie *InfrastructureError
	if errors.As(err, &ie) {
		return err
	}
	return infra(op, err)
}
