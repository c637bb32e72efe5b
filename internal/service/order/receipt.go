package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/pkg/money"
)

// Receipt is the read model returned for a placed order.
type Receipt struct {
	OrderCode    string          `json:"orderCode"`
	CustomerName *string         `json:"customerName"`
	TableNumber  *string         `json:"tableNumber"`
	UserID       *int64          `json:"userId,omitempty"`
	Total        decimal.Decimal `json:"total"`
	GST          decimal.Decimal `json:"gst"`
	Items        []ReceiptLine   `json:"items"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ReceiptLine is one display line of a receipt.
type ReceiptLine struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// receiptFromOrder rebuilds a receipt from stored snapshots only.
func receiptFromOrder(o *entity.Order) *Receipt {
	r := &Receipt{
		OrderCode:    o.OrderCode,
		CustomerName: o.CustomerName,
		TableNumber:  o.TableNumber,
		UserID:       o.UserID,
		Total:        o.Total,
		GST:          o.GST,
		Items:        make([]ReceiptLine, 0, len(o.Lines)),
		CreatedAt:    o.CreatedAt,
	}
	for _, line := range o.Lines {
		r.Items = append(r.Items, ReceiptLine{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: money.LineTotal(line.UnitPrice, line.Quantity),
		})
	}
	return r
}
