package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/service"
)

// CreateOrderRequest is the checkout payload shared by HTTP and gRPC.
// Money fields accept JSON numbers or decimal strings.
type CreateOrderRequest struct {
	RequestID string             `json:"requestId,omitempty"`
	Order     OrderFields        `json:"order"`
	Items     []OrderItemRequest `json:"items"`
}

type OrderFields struct {
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	OrderType     string          `json:"orderType,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

type OrderItemRequest struct {
	ProductRef          string          `json:"productRef"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	TotalPrice          decimal.Decimal `json:"totalPrice"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
}

func (r CreateOrderRequest) toInput() service.OrderInput {
	in := service.OrderInput{
		OrderDetails: service.OrderDetails{
			RequestID:     r.RequestID,
			CustomerName:  r.Order.CustomerName,
			CustomerEmail: r.Order.CustomerEmail,
			CustomerPhone: r.Order.CustomerPhone,
			PaymentMethod: domain.PaymentMethod(r.Order.PaymentMethod),
			OrderType:     domain.OrderType(r.Order.OrderType),
			Notes:         r.Order.Notes,
		},
		Subtotal: r.Order.Subtotal,
		Tax:      r.Order.Tax,
		Total:    r.Order.Total,
		Items:    make([]service.ItemInput, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, service.ItemInput{
			ProductRef:          it.ProductRef,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			TotalPrice:          it.TotalPrice,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return in
}

type GetOrderRequest struct {
	ID string `json:"id"`
}

type UpdateStatusRequest struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

type MenuItemRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type PriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// Money is rendered with exactly two decimals.
type OrderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	Status        string              `json:"status"`
	OrderType     string              `json:"orderType"`
	PaymentMethod string              `json:"paymentMethod"`
	PaymentStatus string              `json:"paymentStatus"`
	Subtotal      string              `json:"subtotal"`
	Tax           string              `json:"tax"`
	Total         string              `json:"total"`
	CustomerName  string              `json:"customerName,omitempty"`
	CustomerEmail string              `json:"customerEmail,omitempty"`
	CustomerPhone string              `json:"customerPhone,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type OrderItemResponse struct {
	ID                  string `json:"id"`
	ProductRef          string `json:"productRef"`
	Quantity            int    `json:"quantity"`
	UnitPrice           string `json:"unitPrice"`
	TotalPrice          string `json:"totalPrice"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

type MenuItemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"isAvailable"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type OrderEnvelope struct {
	Success bool           `json:"success"`
	Order   *OrderResponse `json:"order"`
}

type OrderListEnvelope struct {
	Success bool            `json:"success"`
	Orders  []OrderResponse `json:"orders"`
}

type MenuItemEnvelope struct {
	Success  bool              `json:"success"`
	MenuItem *MenuItemResponse `json:"menuItem"`
}

type MenuListEnvelope struct {
	Success   bool               `json:"success"`
	MenuItems []MenuItemResponse `json:"menuItems"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable"`
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		OrderType:     string(o.OrderType),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Subtotal:      o.Subtotal.StringFixed(2),
		Tax:           o.Tax.StringFixed(2),
		Total:         o.Total.StringFixed(2),
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Notes:         o.Notes,
		Items:         make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:                  it.ID,
			ProductRef:          it.ProductRef,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice.StringFixed(2),
			TotalPrice:          it.TotalPrice.StringFixed(2),
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return resp
}

func toMenuItemResponse(m *domain.MenuItem) *MenuItemResponse {
	return &MenuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price.StringFixed(2),
		IsAvailable: m.IsAvailable,
		UpdatedAt:   m.UpdatedAt,
	}
}
