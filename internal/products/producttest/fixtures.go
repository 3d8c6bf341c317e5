// Package producttest seeds catalog rows for repository and service tests.
package producttest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
)

// Catalog is a seeded product with one optional "Size" group and one
// required "Sauce" group.
type Catalog struct {
	Product models.Product
	Size    models.OptionGroup
	Large   models.Option
	Small   models.Option
	Sauce   models.OptionGroup
	Garlic  models.Option
	Chilli  models.Option
}

// Plain inserts an option-less product.
func Plain(t testing.TB, db *gorm.DB, name, price string) models.Product {
	t.Helper()
	product := models.Product{
		ID:                uuid.New(),
		Name:              name,
		Price:             decimal.RequireFromString(price),
		IsAvailable:       true,
		DeliveryAvailable: true,
		PickupAvailable:   true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// WithOptions inserts a product priced at price with the Size and Sauce groups.
func WithOptions(t testing.TB, db *gorm.DB, price string) Catalog {
	t.Helper()
	c := Catalog{Product: Plain(t, db, "Pizza", price)}
	c.Size = group(t, db, c.Product.ID, "Size", false, 0, 1, 0)
	c.Large = option(t, db, c.Size.ID, "Large", "2.50", 0)
	c.Small = option(t, db, c.Size.ID, "Small", "-1.00", 1)
	c.Sauce = group(t, db, c.Product.ID, "Sauce", true, 1, 2, 1)
	c.Garlic = option(t, db, c.Sauce.ID, "Garlic", "0.50", 0)
	c.Chilli = option(t, db, c.Sauce.ID, "Chilli", "0.00", 1)
	return c
}

func group(t testing.TB, db *gorm.DB, productID uuid.UUID, name string, required bool, min, max, sort int) models.OptionGroup {
	t.Helper()
	g := models.OptionGroup{
		ProductID:     productID,
		Name:          name,
		IsRequired:    required,
		MinSelections: min,
		MaxSelections: max,
		SortOrder:     sort,
	}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("create option group: %v", err)
	}
	return g
}

func option(t testing.TB, db *gorm.DB, groupID uuid.UUID, name, modifier string, sort int) models.Option {
	t.Helper()
	o := models.Option{
		OptionGroupID: groupID,
		Name:          name,
		PriceModifier: decimal.RequireFromString(modifier),
		SortOrder:     sort,
	}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("create option: %v", err)
	}
	return o
}
