package dto

import (
	service "github.com/Additional-Code/burgerbar/internal/service/order"
	"github.com/Additional-Code/burgerbar/pkg/money"
)

// CreateOrderRequest is the POST /orders body.
type CreateOrderRequest struct {
	CustomerName *string            `json:"customerName"`
	TableNumber  *string            `json:"tableNumber"`
	Items        []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one requested line.
type OrderItemRequest struct {
	MenuItemID int64 `json:"menuItemId"`
	Quantity   int   `json:"quantity"`
}

// ReceiptResponse represents an order receipt as exposed via transport layers.
type ReceiptResponse struct {
	OrderCode    string                `json:"orderCode"`
	CustomerName *string               `json:"customerName"`
	TableNumber  *string               `json:"tableNumber"`
	Total        float64               `json:"total"`
	GST          float64               `json:"gst"`
	Items        []ReceiptLineResponse `json:"items"`
}

// ReceiptLineResponse is one receipt line.
type ReceiptLineResponse struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// ToInput converts the request into engine input.
func (r CreateOrderRequest) ToInput(userID *int64) service.CreateOrderInput {
	in := service.CreateOrderInput{
		CustomerName: r.CustomerName,
		TableNumber:  r.TableNumber,
		UserID:       userID,
		Items:        make([]service.LineInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, service.LineInput{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}
	return in
}

// NewReceiptResponse rounds money to cents for the wire.
func NewReceiptResponse(r *service.Receipt) ReceiptResponse {
	out := ReceiptResponse{
		OrderCode:    r.OrderCode,
		CustomerName: r.CustomerName,
		TableNumber:  r.TableNumber,
		Total:        money.Float(r.Total),
		GST:          money.Float(r.GST),
		Items:        make([]ReceiptLineResponse, 0, len(r.Items)),
	}
	for _, line := range r.Items {
		out.Items = append(out.Items, ReceiptLineResponse{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: money.Float(line.UnitPrice),
			LineTotal: money.Float(line.LineTotal),
		})
	}
	return out
}
