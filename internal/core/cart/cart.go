// Package cart holds the in-progress selection for one ordering session and
// keeps its totals consistent with its lines after every mutation.
//
// A Cart is owned by a single session and is not safe for concurrent use.
package cart

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/food-truck-pos/internal/core/pricing"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be between 1 and 10000")
	ErrNegativePrice    = errors.New("unit price must not be negative")
	ErrFractionalPrice  = errors.New("unit price must be in whole cents")
	ErrAmountOutOfRange = errors.New("line amount out of range")
	ErrMissingProduct   = errors.New("product reference is required")
)

type Product struct {
	Ref   string
	Name  string
	Price decimal.Decimal
}

type Modifier struct {
	Name       string
	PriceDelta decimal.Decimal
}

// Line is one entry in the cart. UnitPrice is fixed when the line is added.
type Line struct {
	ID                  string
	ProductRef          string
	Name                string
	UnitPrice           decimal.Decimal
	Quantity            int
	LineTotal           decimal.Decimal
	SpecialInstructions string
	Modifiers           []Modifier

	mergeKey string
}

type Snapshot struct {
	Lines    []Line
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Cart struct {
	taxRate decimal.Decimal
	lines   []*Line
	totals  pricing.Totals
}

func New(taxRate decimal.Decimal) *Cart {
	return &Cart{taxRate: taxRate}
}

type addConfig struct {
	quantity     int
	modifiers    []Modifier
	instructions string
}

type AddOption func(*addConfig)

func WithQuantity(n int) AddOption {
	return func(c *addConfig) { c.quantity = n }
}

func WithModifiers(mods ...Modifier) AddOption {
	return func(c *addConfig) { c.modifiers = append(c.modifiers, mods...) }
}

func WithInstructions(text string) AddOption {
	return func(c *addConfig) { c.instructions = text }
}

// AddItem adds a product to the cart. If a line with the same product and the
// same set of modifiers exists, its quantity is increased instead. A merged
// line keeps its instructions unless it had none.
func (c *Cart) AddItem(p Product, opts ...AddOption) error {
	cfg := addConfig{quantity: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.quantity <= 0 || cfg.quantity > pricing.MaxQuantity {
		return ErrInvalidQuantity
	}
	if strings.TrimSpace(p.Ref) == "" {
		return ErrMissingProduct
	}

	unit := p.Price
	for _, m := range cfg.modifiers {
		unit = unit.Add(m.PriceDelta)
	}
	if unit.IsNegative() {
		return ErrNegativePrice
	}
	if !pricing.IsWholeCents(unit) {
		return ErrFractionalPrice
	}

	key := mergeKey(p.Ref, cfg.modifiers)
	if existing := c.findByKey(key); existing != nil {
		quantity := existing.Quantity + cfg.quantity
		if quantity > pricing.MaxQuantity {
			return ErrInvalidQuantity
		}
		total := pricing.LineTotal(existing.UnitPrice, quantity)
		if !pricing.InRange(total) {
			return ErrAmountOutOfRange
		}
		existing.Quantity = quantity
		existing.LineTotal = total
		if existing.SpecialInstructions == "" {
			existing.SpecialInstructions = cfg.instructions
		}
		c.recalculate()
		return nil
	}

	total := pricing.LineTotal(unit, cfg.quantity)
	if !pricing.InRange(total) {
		return ErrAmountOutOfRange
	}

	mods := make([]Modifier, len(cfg.modifiers))
	copy(mods, cfg.modifiers)
	c.lines = append(c.lines, &Line{
		ID:                  uuid.NewString(),
		ProductRef:          p.Ref,
		Name:                p.Name,
		UnitPrice:           unit,
		Quantity:            cfg.quantity,
		LineTotal:           total,
		SpecialInstructions: cfg.instructions,
		Modifiers:           mods,
		mergeKey:            key,
	})
	c.recalculate()
	return nil
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes the
// line. Unknown ids and quantities the line cannot hold are ignored.
func (c *Cart) UpdateQuantity(lineID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(lineID)
		return
	}
	l := c.find(lineID)
	if l == nil || quantity > pricing.MaxQuantity {
		return
	}
	total := pricing.LineTotal(l.UnitPrice, quantity)
	if !pricing.InRange(total) {
		return
	}
	l.Quantity = quantity
	l.LineTotal = total
	c.recalculate()
}

func (c *Cart) RemoveItem(lineID string) {
	for i, l := range c.lines {
		if l.ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.recalculate()
			return
		}
	}
}

func (c *Cart) UpdateInstructions(lineID, text string) {
	if l := c.find(lineID); l != nil {
		l.SpecialInstructions = text
	}
}

func (c *Cart) Clear() {
	c.lines = nil
	c.totals = pricing.Totals{}
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) TaxRate() decimal.Decimal {
	return c.taxRate
}

// Snapshot returns a copy of the current lines and totals. Totals are at full
// precision.
func (c *Cart) Snapshot() Snapshot {
	lines := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		cp := *l
		cp.Modifiers = append([]Modifier(nil), l.Modifiers...)
		lines = append(lines, cp)
	}
	return Snapshot{
		Lines:    lines,
		Subtotal: c.totals.Subtotal,
		Tax:      c.totals.Tax,
		Total:    c.totals.Total,
	}
}

func (c *Cart) recalculate() {
	priced := make([]pricing.Line, 0, len(c.lines))
	for _, l := range c.lines {
		priced = append(priced, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	c.totals = pricing.Calculate(priced, c.taxRate)
}

func (c *Cart) find(lineID string) *Line {
	for _, l := range c.lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

func (c *Cart) findByKey(key string) *Line {
	for _, l := range c.lines {
		if l.mergeKey == key {
			return l
		}
	}
	return nil
}

// mergeKey identifies equivalent lines: same product, same modifiers in any
// order.
func mergeKey(ref string, mods []Modifier) string {
	parts := make([]string, 0, len(mods))
	for _, m := range mods {
		parts = append(parts, strconv.Quote(m.Name)+"="+m.PriceDelta.String())
	}
	sort.Strings(parts)
	return strconv.Quote(ref) + "|" + strings.Join(parts, ",")
}
