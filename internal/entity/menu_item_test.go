package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sizePtr(s DrinkSize) *DrinkSize { return &s }

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant(TypeBurger, nil)
	require.NoError(t, err)
	assert.Equal(t, Burger{}, v)

	v, err = ParseVariant(TypeDrink, sizePtr(SizeLarge))
	require.NoError(t, err)
	drink, ok := v.(Drink)
	require.True(t, ok)
	assert.Equal(t, SizeLarge, drink.Size())

	invalid := []struct {
		name string
		typ  ItemType
		size *DrinkSize
	}{
		{"burger with size", TypeBurger, sizePtr(SizeSmall)},
		{"drink without size", TypeDrink, nil},
		{"drink with unknown size", TypeDrink, sizePtr("MEDIUM")},
		{"unknown type", "PIZZA", nil},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseVariant(tc.typ, tc.size)
			assert.ErrorIs(t, err, ErrInvalidVariant)
		})
	}
}

func TestSetVariantRoundTrip(t *testing.T) {
	item := &MenuItem{Name: "Soft drink", Type: TypeBurger}
	drink, err := NewDrink(SizeSmall)
	require.NoError(t, err)

	item.SetVariant(drink)
	assert.Equal(t, TypeDrink, item.Type)
	require.NotNil(t, item.Size)
	assert.Equal(t, SizeSmall, *item.Size)

	item.SetVariant(Burger{})
	assert.Equal(t, TypeBurger, item.Type)
	assert.Nil(t, item.Size)
}

func TestDisplayName(t *testing.T) {
	drink := &MenuItem{Name: "Soft drink", Type: TypeDrink, Size: sizePtr(SizeLarge)}
	assert.Equal(t, "Soft drink (LARGE)", drink.DisplayName())

	burger := &MenuItem{Name: "Cheeseburger", Type: TypeBurger}
	assert.Equal(t, "Cheeseburger", burger.DisplayName())
}
