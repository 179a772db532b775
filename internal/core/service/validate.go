package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/pricing"
)

const (
	maxOrderItems       = 100
	maxInstructionsLen  = 500
	maxNotesLen         = 1000
	maxCustomerFieldLen = 255
	maxPhoneLen         = 50
)

// validate checks and normalizes an order before any I/O happens.
func (s *OrderService) validate(source domain.OrderSource, in *OrderInput) error {
	if len(in.Items) == 0 {
		return invalid("items", "order must contain at least one item")
	}
	if len(in.Items) > maxOrderItems {
		return invalid("items", "order must not contain more than %d items", maxOrderItems)
	}

	if !in.PaymentMethod.Valid() {
		return invalid("paymentMethod", "must be cash or card")
	}

	if in.OrderType == "" {
		in.OrderType = defaultOrderType(source)
	}
	if !in.OrderType.Valid() {
		return invalid("orderType", "must be one of counter, dine-in, takeout, delivery, customer-online")
	}

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	if source == domain.SourcePublic && in.CustomerName == "" {
		return invalid("customerName", "is required")
	}
	for _, f := range []struct {
		field string
		value string
		max   int
	}{
		{"customerName", in.CustomerName, maxCustomerFieldLen},
		{"customerEmail", in.CustomerEmail, maxCustomerFieldLen},
		{"customerPhone", in.CustomerPhone, maxPhoneLen},
	} {
		if len(f.value) > f.max {
			return invalid(f.field, "must be at most %d characters", f.max)
		}
	}
	if in.CustomerEmail != "" {
		// a bare address only; "Name <addr>" parses but is not what gets stored
		addr, err := mail.ParseAddress(in.CustomerEmail)
		if err != nil || addr.Address != in.CustomerEmail {
			return invalid("customerEmail", "is not a valid email address")
		}
	}
	if len(in.Notes) > maxNotesLen {
		return invalid("notes", "must be at most %d characters", maxNotesLen)
	}

	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.ProductRef) == "" {
			return invalid(field+".productRef", "is required")
		}
		if it.Quantity < 1 || it.Quantity > pricing.MaxQuantity {
			return invalid(field+".quantity", "must be between 1 and %d", pricing.MaxQuantity)
		}
		if it.UnitPrice.IsNegative() {
			return invalid(field+".unitPrice", "must not be negative")
		}
		if !pricing.InRange(it.UnitPrice) {
			return invalid(field+".unitPrice", "must be less than %s", pricing.MaxAmount)
		}
		if !pricing.IsWholeCents(it.UnitPrice) {
			return invalid(field+".unitPrice", "must be in whole cents")
		}
		want := pricing.LineTotal(it.UnitPrice, it.Quantity)
		if !pricing.InRange(want) {
			return invalid(field+".totalPrice", "must be less than %s", pricing.MaxAmount)
		}
		if !pricing.Round(it.TotalPrice).Equal(want) {
			return invalid(field+".totalPrice", "must equal unitPrice x quantity (%s)", want.StringFixed(2))
		}
		if len(it.SpecialInstructions) > maxInstructionsLen {
			return invalid(field+".specialInstructions", "must be at most %d characters", maxInstructionsLen)
		}
	}
	return nil
}

// checkClientTotals compares the submitted totals with the recomputed ones to
// the cent.
func checkClientTotals(in OrderInput, server pricing.Totals) error {
	if !pricing.InRange(server.Total) {
		return invalid("total", "must be less than %s", pricing.MaxAmount)
	}
	for _, c := range []struct {
		field          string
		client, server decimal.Decimal
	}{
		{"subtotal", in.Subtotal, server.Subtotal},
		{"tax", in.Tax, server.Tax},
		{"total", in.Total, server.Total},
	} {
		if !pricing.Round(c.client).Equal(c.server) {
			return invalid(c.field, "does not match computed %s %s", c.field, c.server.StringFixed(2))
		}
	}
	return nil
}

func defaultOrderType(source domain.OrderSource) domain.OrderType {
	if source == domain.SourcePublic {
		return domain.OrderTypeCustomerOnline
	}
	return domain.OrderTypeCounter
}
