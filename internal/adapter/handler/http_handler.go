package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/service"
)

type HTTPHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
	maxBodyBytes int64
}

func NewHTTPHandler(orderService *service.OrderService, logger *zap.Logger, maxBodyBytes int64) *HTTPHandler {
	return &HTTPHandler{
		orderService: orderService,
		logger:       logger.Named("http"),
		maxBodyBytes: maxBodyBytes,
	}
}

// CreateOrder places a staff-entered order.
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, domain.SourceStaff)
}

// CreateCustomerOrder places an order from the public ordering page.
func (h *HTTPHandler) CreateCustomerOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, domain.SourcePublic)
}

func (h *HTTPHandler) createOrder(w http.ResponseWriter, r *http.Request, source domain.OrderSource) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), source, req.toInput())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, OrderEnvelope{Success: true, Order: toOrderResponse(order)})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderEnvelope{Success: true, Order: toOrderResponse(order)})
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, &service.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
		limit = n
	}

	orders, err := h.orderService.ListOrders(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := OrderListEnvelope{Success: true, Orders: make([]OrderResponse, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, *toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderEnvelope{Success: true, Order: toOrderResponse(order)})
}

func (h *HTTPHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orderService.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderEnvelope{Success: true, Order: toOrderResponse(order)})
}

func (h *HTTPHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orderService.ListMenuItems(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := MenuListEnvelope{Success: true, MenuItems: make([]MenuItemResponse, 0, len(items))}
	for i := range items {
		resp.MenuItems = append(resp.MenuItems, *toMenuItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.orderService.CreateMenuItem(r.Context(), req.Name, req.Price)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MenuItemEnvelope{Success: true, MenuItem: toMenuItemResponse(item)})
}

func (h *HTTPHandler) UpdateMenuItemPrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.orderService.UpdateMenuItemPrice(r.Context(), chi.URLParam(r, "id"), req.Price)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MenuItemEnvelope{Success: true, MenuItem: toMenuItemResponse(item)})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.orderService.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads exactly one JSON object with no unknown fields. On failure it
// writes the error response and returns false.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("request body must contain a single JSON object")
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Code:    "body_too_large",
				Message: "request body too large",
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "invalid_request",
			Message: "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status, resp := httpError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// httpError maps service errors to a status and a body that never carries
// storage details.
func httpError(err error) (int, ErrorResponse) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: verr.Reason, Field: verr.Field}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Code: "not_found", Message: "referenced order or product does not exist"}
	case errors.Is(err, service.ErrIllegalTransition):
		return http.StatusUnprocessableEntity, ErrorResponse{Code: "illegal_transition", Message: err.Error()}
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, ErrorResponse{Code: "duplicate_request", Message: "request is already being processed"}
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, ErrorResponse{Code: "conflict", Message: "order changed concurrently, please retry", Retryable: true}
	case errors.Is(err, service.ErrTransientStorage):
		return http.StatusServiceUnavailable, ErrorResponse{Code: "unavailable", Message: "storage temporarily unavailable, please retry", Retryable: true}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
