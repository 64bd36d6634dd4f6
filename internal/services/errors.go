// Package services implements the application logic for orders, support
// tickets, and account administration on top of the remote function
// endpoints. This file centralizes the service-level sentinel errors so
// handlers can map predictable cases to HTTP results consistently.
package services

import "errors"

var (
	// ErrOrderNotFound indicates the requested order does not exist remotely.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidQuantity is returned when a fulfillment quantity is not a
	// positive integer.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrReasonRequired is returned when a partial fulfillment is submitted
	// without a reason.
	ErrReasonRequired = errors.New("fulfillment reason is required")

	// ErrEmptySubject is returned when a support ticket has a blank subject.
	ErrEmptySubject = errors.New("ticket subject is empty")

	// ErrEmptyBody is returned when a support ticket has a blank body.
	ErrEmptyBody = errors.New("ticket body is empty")

	// ErrZeroCredit is returned when a credit adjustment of zero is submitted.
	ErrZeroCredit = errors.New("credit adjustment must be non-zero")

	// ErrInvalidStatus is returned for an order status outside the known set.
	ErrInvalidStatus = errors.New("unknown order status")
)
