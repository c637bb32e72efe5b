package order

import "errors"

// Domain failures of CreateOrder. Anything else coming out of the service
// is an infrastructure failure.
var (
	ErrOrderEmpty       = errors.New("order has no items")
	ErrInvalidMenuItems = errors.New("order references invalid or inactive menu items")
	ErrInvalidLine      = errors.New("order line needs a positive menu item id and quantity")
)

// Codes and messages exposed to clients for the domain failures.
const (
	CodeOrderEmpty       = "ORDER_EMPTY"
	CodeInvalidMenuItems = "INVALID_MENU_ITEMS"

	MessageOrderEmpty       = "Order must contain at least one item."
	MessageInvalidMenuItems = "One or more menu items are invalid or inactive."
	MessageInvalidBody      = "Invalid request body."
	MessageCreateFailed     = "Failed to create order."
)
