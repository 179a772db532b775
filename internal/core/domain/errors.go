package domain

import "errors"

// Errors reported by repositories. The service layer translates them into
// its own error taxonomy.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrOrderNumberTaken = errors.New("order number already exists")
	ErrStaleWrite       = errors.New("record changed concurrently")
)
