package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/burgerbar/pkg/money"
)

// Order is a placed, priced transaction. It is written once, together with
// its lines, and never updated.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           int64           `bun:",pk,autoincrement"`
	OrderCode    string          `bun:"order_code,notnull,unique"`
	CustomerName *string         `bun:"customer_name"`
	TableNumber  *string         `bun:"table_number"`
	UserID       *int64          `bun:"user_id"`
	Total        decimal.Decimal `bun:"total,type:numeric(10,2),notnull"`
	GST          decimal.Decimal `bun:"gst,type:numeric(10,2),notnull"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`

	Lines []*OrderLine `bun:"rel:has-many,join:id=order_id"`
}

// OrderLine is one priced line of an order. Name and UnitPrice are
// snapshots taken at order time.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines,alias:ol"`

	ID         int64           `bun:",pk,autoincrement"`
	OrderID    int64           `bun:"order_id,notnull"`
	MenuItemID int64           `bun:"menu_item_id,notnull"`
	Position   int             `bun:"position,notnull"`
	Name       string          `bun:"name,notnull"`
	Quantity   int             `bun:"quantity,notnull"`
	UnitPrice  decimal.Decimal `bun:"unit_price,type:numeric(10,2),notnull"`
}

// LineTotal is unit price times quantity, unrounded.
func (l *OrderLine) LineTotal() decimal.Decimal {
	return money.LineTotal(l.UnitPrice, l.Quantity)
}
