package dto

import (
	"encoding/json"
	"time"

	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/pkg/money"
)

// MenuItemResponse is a menu item on the wire.
type MenuItemResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Price     float64           `json:"price"`
	Type      entity.ItemType   `json:"type"`
	Size      *entity.DrinkSize `json:"size"`
	IsActive  bool              `json:"isActive"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

// NewMenuItemResponse converts an entity for output.
func NewMenuItemResponse(item *entity.MenuItem) MenuItemResponse {
	out := MenuItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Price:     money.Float(item.Price),
		Type:      item.Type,
		Size:      item.Size,
		IsActive:  item.IsActive,
		CreatedAt: item.CreatedAt,
	}
	if !item.UpdatedAt.IsZero() {
		updated := item.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

// NewMenuItemList converts a slice of entities.
func NewMenuItemList(items []entity.MenuItem) []MenuItemResponse {
	out := make([]MenuItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewMenuItemResponse(&items[i]))
	}
	return out
}

// CreateMenuItemRequest is the POST /menu body.
type CreateMenuItemRequest struct {
	Name     string            `json:"name"`
	Price    float64           `json:"price"`
	Type     entity.ItemType   `json:"type"`
	Size     *entity.DrinkSize `json:"size"`
	IsActive *bool             `json:"isActive"`
}

// UpdateMenuItemRequest is the PUT /menu/:id body. Every field is optional.
type UpdateMenuItemRequest struct {
	Name     *string          `json:"name"`
	Price    *float64         `json:"price"`
	Type     *entity.ItemType `json:"type"`
	Size     OptionalSize     `json:"size"`
	IsActive *bool            `json:"isActive"`
}

// OptionalSize tells an absent size apart from an explicit null.
type OptionalSize struct {
	Set   bool
	Value *entity.DrinkSize
}

// UnmarshalJSON is only invoked when the key is present, null included.
func (o *OptionalSize) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var size entity.DrinkSize
	if err := json.Unmarshal(data, &size); err != nil {
		return err
	}
	o.Value = &size
	return nil
}
