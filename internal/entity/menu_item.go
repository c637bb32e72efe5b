package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ItemType is the stored discriminator of a menu item variant.
type ItemType string

const (
	TypeBurger ItemType = "BURGER"
	TypeDrink  ItemType = "DRINK"
)

// DrinkSize is the size carried by drink variants.
type DrinkSize string

const (
	SizeSmall DrinkSize = "SMALL"
	SizeLarge DrinkSize = "LARGE"
)

// ErrInvalidVariant is returned when a type/size pair breaks the
// BURGER-has-no-size / DRINK-has-a-size rule.
var ErrInvalidVariant = errors.New("invalid menu item variant")

// Variant is the sealed set of menu item kinds: Burger or Drink.
type Variant interface {
	Type() ItemType
	isVariant()
}

// Burger never carries a size.
type Burger struct{}

// Type implements Variant.
func (Burger) Type() ItemType { return TypeBurger }
func (Burger) isVariant()     {}

// Drink always carries a valid size.
type Drink struct {
	size DrinkSize
}

// NewDrink returns a drink variant of the given size.
func NewDrink(size DrinkSize) (Drink, error) {
	if !size.Valid() {
		return Drink{}, fmt.Errorf("%w: unknown drink size %q", ErrInvalidVariant, size)
	}
	return Drink{size: size}, nil
}

// Type implements Variant.
func (Drink) Type() ItemType { return TypeDrink }
func (Drink) isVariant()     {}

// Size returns the drink size.
func (d Drink) Size() DrinkSize { return d.size }

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == TypeBurger || t == TypeDrink
}

// Valid reports whether s is a known drink size.
func (s DrinkSize) Valid() bool {
	return s == SizeSmall || s == SizeLarge
}

// ParseVariant builds a Variant from its stored representation.
func ParseVariant(t ItemType, size *DrinkSize) (Variant, error) {
	switch t {
	case TypeBurger:
		if size != nil {
			return nil, fmt.Errorf("%w: burgers cannot have a size", ErrInvalidVariant)
		}
		return Burger{}, nil
	case TypeDrink:
		if size == nil {
			return nil, fmt.Errorf("%w: drinks require a size", ErrInvalidVariant)
		}
		return NewDrink(*size)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidVariant, t)
	}
}

// MenuItem is a sellable product. Items are never physically deleted;
// historical order lines keep pointing at them.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID        int64           `bun:",pk,autoincrement" json:"id"`
	Name      string          `bun:"name,notnull" json:"name"`
	Price     decimal.Decimal `bun:"price,type:numeric(10,2),notnull" json:"price"`
	Type      ItemType        `bun:"type,notnull" json:"type"`
	Size      *DrinkSize      `bun:"size" json:"size"`
	IsActive  bool            `bun:"is_active,notnull" json:"isActive"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero" json:"updatedAt"`
}

// Variant decodes the stored type/size columns.
func (m *MenuItem) Variant() (Variant, error) {
	return ParseVariant(m.Type, m.Size)
}

// SetVariant writes v into the stored columns.
func (m *MenuItem) SetVariant(v Variant) {
	m.Type = v.Type()
	m.Size = nil
	if d, ok := v.(Drink); ok {
		size := d.Size()
		m.Size = &size
	}
}

// DisplayName is the receipt label: drinks get their size appended.
func (m *MenuItem) DisplayName() string {
	if m.Type == TypeDrink && m.Size != nil {
		return fmt.Sprintf("%s (%s)", m.Name, *m.Size)
	}
	return m.Name
}

var _ bun.BeforeAppendModelHook = (*MenuItem)(nil)

// BeforeAppendModel rejects writes that would persist an invalid variant.
func (m *MenuItem) BeforeAppendModel(_ context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		_, err := m.Variant()
		return err
	}
	return nil
}
