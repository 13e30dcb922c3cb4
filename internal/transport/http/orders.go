package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/brewhouse/cafe-orders/internal/app"
	"github.com/brewhouse/cafe-orders/internal/domain"
)

// OrderPlacer is the minimal interface needed by the orders collection
// endpoint.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (domain.Order, error)
	ListOrders(ctx context.Context, filter app.OrderFilter) ([]domain.Order, error)
}

// OrderUpdater is the minimal interface needed by the single-order
// endpoints.
type OrderUpdater interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	Transition(ctx context.Context, in app.TransitionInput) (app.TransitionResult, error)
	UpdatePayment(ctx context.Context, in app.PaymentInput) (domain.Order, error)
}

// HandleOrders serves POST /orders (placement) and GET /orders (listing).
func HandleOrders(svc OrderPlacer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			placeOrder(svc, w, r)
		case http.MethodGet:
			listOrders(svc, w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func placeOrder(svc OrderPlacer, w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	in := app.PlaceOrderInput{
		UserID:      req.UserID,
		Type:        domain.OrderType(req.OrderType),
		TableNumber: req.TableNumber,
		Customer: domain.CustomerInfo{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, app.RequestedItem{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	order, err := svc.PlaceOrder(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOrderResponse(order))
}

func listOrders(svc OrderPlacer, w http.ResponseWriter, r *http.Request) {
	filter := app.OrderFilter{
		Status: domain.OrderStatus(r.URL.Query().Get("status")),
		UserID: r.URL.Query().Get("user_id"),
	}

	orders, err := svc.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleOrderByID serves GET /orders/{id}, POST /orders/{id}/status, and
// POST /orders/{id}/payment.
func HandleOrderByID(svc OrderUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, action, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			getOrder(svc, w, r, orderID)
		case action == "status" && r.Method == http.MethodPost:
			transitionOrder(svc, w, r, orderID)
		case action == "payment" && r.Method == http.MethodPost:
			updatePayment(svc, w, r, orderID)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseOrderPath(path string) (orderID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "orders" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] != "status" && parts[2] != "payment" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func getOrder(svc OrderUpdater, w http.ResponseWriter, r *http.Request, orderID string) {
	order, err := svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toOrderResponse(order))
}

func transitionOrder(svc OrderUpdater, w http.ResponseWriter, r *http.Request, orderID string) {
	var req transitionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	res, err := svc.Transition(r.Context(), app.TransitionInput{
		OrderID: orderID,
		Target:  domain.OrderStatus(req.Status),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toOrderResponse(res.Order))
}

func updatePayment(svc OrderUpdater, w http.ResponseWriter, r *http.Request, orderID string) {
	var req paymentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	order, err := svc.UpdatePayment(r.Context(), app.PaymentInput{
		OrderID:       orderID,
		Target:        domain.PaymentStatus(req.PaymentStatus),
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toOrderResponse(order))
}

type placeOrderRequest struct {
	UserID      string              `json:"user_id"`
	OrderType   string              `json:"order_type"`
	TableNumber *int                `json:"table_number,omitempty"`
	Customer    customerPayload     `json:"customer"`
	Items       []requestedItemBody `json:"items"`
}

type customerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type requestedItemBody struct {
	MenuItemID          string `json:"menu_item_id"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type paymentRequest struct {
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type orderItemResponse struct {
	ID                  string `json:"id"`
	MenuItemID          string `json:"menu_item_id"`
	Name                string `json:"name"`
	UnitPrice           string `json:"unit_price"`
	Quantity            int    `json:"quantity"`
	Total               string `json:"total"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	OrderType     string              `json:"order_type"`
	TableNumber   *int                `json:"table_number,omitempty"`
	Customer      customerPayload     `json:"customer"`
	Items         []orderItemResponse `json:"items"`
	Subtotal      string              `json:"subtotal"`
	Tax           string              `json:"tax"`
	Total         string              `json:"total"`
	PlacedAt      time.Time           `json:"placed_at"`
	ConfirmedAt   *time.Time          `json:"confirmed_at,omitempty"`
	PreparedAt    *time.Time          `json:"prepared_at,omitempty"`
	ReadyAt       *time.Time          `json:"ready_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:                  item.ID,
			MenuItemID:          item.MenuItemID,
			Name:                item.Name,
			UnitPrice:           item.UnitPrice.StringFixed(2),
			Quantity:            item.Quantity,
			Total:               item.Total.StringFixed(2),
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return orderResponse{
		ID:            order.ID,
		OrderNumber:   order.Number,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		OrderType:     string(order.Type),
		TableNumber:   order.TableNumber,
		Customer: customerPayload{
			Name:  order.Customer.Name,
			Email: order.Customer.Email,
			Phone: order.Customer.Phone,
		},
		Items:       items,
		Subtotal:    order.Subtotal.StringFixed(2),
		Tax:         order.Tax.StringFixed(2),
		Total:       order.Total.StringFixed(2),
		PlacedAt:    order.PlacedAt,
		ConfirmedAt: order.ConfirmedAt,
		PreparedAt:  order.PreparedAt,
		ReadyAt:     order.ReadyAt,
		CompletedAt: order.CompletedAt,
		CancelledAt: order.CancelledAt,
	}
}
