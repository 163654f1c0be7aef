package models

import (
	"errors"
	"fmt"
)

// Not-found sentinels. The store returns these wrapped with context.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrLineNotFound     = errors.New("order line not found")
	ErrIncidentNotFound = errors.New("incident not found")
	ErrNoCashboxOpen    = errors.New("no open cashbox")

	// ErrOpenIncidents blocks deleting a product, or settling an order's
	// guarantee, while an unresolved incident remains.
	ErrOpenIncidents = errors.New("open incidents pending resolution")
)

// ValidationError is a generic malformed-input rejection for fields without
// a dedicated error type.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// InsufficientStockError is returned when a reservation asks for more units
// than the product has available.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested=%d available=%d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidQuantityError is returned for non-positive quantities, and for a
// cantidad_repuesta exceeding the incident's cantidad_afectada.
type InvalidQuantityError struct {
	Field string
	Value int
	Max   int // 0 when there is no upper bound involved
}

func (e *InvalidQuantityError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("invalid %s: %d exceeds maximum %d", e.Field, e.Value, e.Max)
	}
	return fmt.Sprintf("invalid %s: %d must be a positive integer", e.Field, e.Value)
}

// ExceedsAvailableQuantityError is returned when an incident's affected
// quantity exceeds what is still exposed on its order line.
type ExceedsAvailableQuantityError struct {
	LineID    int64
	Requested int
	Available int
}

func (e *ExceedsAvailableQuantityError) Error() string {
	return fmt.Sprintf("incident quantity %d exceeds remaining exposure %d on line %d",
		e.Requested, e.Available, e.LineID)
}

// NoAvailabilityError is returned when a line's quantity is fully covered by
// open incidents already.
type NoAvailabilityError struct {
	LineID int64
}

func (e *NoAvailabilityError) Error() string {
	return fmt.Sprintf("line %d has no remaining quantity exposed to incidents", e.LineID)
}

// InvalidResolutionError is returned for a resolution outcome the incident's
// type forbids, or for an unknown outcome.
type InvalidResolutionError struct {
	TipoIncidente  string
	ResultadoFinal string
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("resolution %q is not valid for a %q incident",
		e.ResultadoFinal, e.TipoIncidente)
}

// OrderLockedError is returned when an order can no longer be edited.
type OrderLockedError struct {
	OrderID int64
	Reason  string
}

func (e *OrderLockedError) Error() string {
	return fmt.Sprintf("order %d is locked: %s", e.OrderID, e.Reason)
}

// IncidentClosedError is returned when mutating an already resolved incident.
type IncidentClosedError struct {
	IncidentID int64
}

func (e *IncidentClosedError) Error() string {
	return fmt.Sprintf("incident %d is already resolved", e.IncidentID)
}

// IncidentOpenError is returned when deleting an incident that is not yet
// resolved.
type IncidentOpenError struct {
	IncidentID int64
}

func (e *IncidentOpenError) Error() string {
	return fmt.Sprintf("incident %d is still open", e.IncidentID)
}

// CashboxClosedError is returned when an operation requires an open cashbox.
type CashboxClosedError struct {
	Operation string
}

func (e *CashboxClosedError) Error() string {
	return fmt.Sprintf("cashbox is closed: %s requires an open cashbox", e.Operation)
}

// IsConflict reports whether err is a state conflict the API surfaces as 409:
// the request was well formed but the current state rejects it.
func IsConflict(err error) bool {
	var (
		insufficient *InsufficientStockError
		exceeds      *ExceedsAvailableQuantityError
		noAvail      *NoAvailabilityError
		locked       *OrderLockedError
		closed       *IncidentClosedError
		open         *IncidentOpenError
		caja         *CashboxClosedError
	)
	return errors.As(err, &insufficient) ||
		errors.As(err, &exceeds) ||
		errors.As(err, &noAvail) ||
		errors.As(err, &locked) ||
		errors.As(err, &closed) ||
		errors.As(err, &open) ||
		errors.As(err, &caja) ||
		errors.Is(err, ErrOpenIncidents)
}

// IsValidation reports whether err is a malformed-input rejection (HTTP 400).
func IsValidation(err error) bool {
	var (
		qty *InvalidQuantityError
		res *InvalidResolutionError
		val *ValidationError
	)
	return errors.As(err, &qty) || errors.As(err, &res) || errors.As(err, &val)
}

// IsNotFound reports whether err wraps one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrLineNotFound) ||
		errors.Is(err, ErrIncidentNotFound) ||
		errors.Is(err, ErrNoCashboxOpen)
}
