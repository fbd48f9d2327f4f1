package errors

import "fmt"

// ErrNotFound indicates a record does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// ErrUnauthorized indicates a failed authentication check
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrInvalidStateTransition indicates a disallowed order status change
type ErrInvalidStateTransition struct {
	From interface{}
	To   interface{}
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %v -> %v", e.From, e.To)
}

// ErrUnknownSKU indicates a cart line references a SKU absent from the catalog
type ErrUnknownSKU struct {
	SKU string
}

func (e *ErrUnknownSKU) Error() string {
	return fmt.Sprintf("unknown sku: %s", e.SKU)
}

// ErrValidation indicates a malformed or incomplete request payload
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}
