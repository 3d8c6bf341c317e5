package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model, in foreign-key order, for AutoMigrate in tests and
// the sqlite dev mode.
func All() []any {
	return []any{
		&Product{},
		&OptionGroup{},
		&Option{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&RestaurantSettings{},
		&OutboxEvent{},
		&OrphanedOrder{},
	}
}

func (p *Product) BeforeCreate(*gorm.DB) error       { ensureID(&p.ID); return nil }
func (g *OptionGroup) BeforeCreate(*gorm.DB) error   { ensureID(&g.ID); return nil }
func (o *Option) BeforeCreate(*gorm.DB) error        { ensureID(&o.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error      { ensureID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error         { ensureID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error     { ensureID(&i.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error   { ensureID(&e.ID); return nil }
func (o *OrphanedOrder) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }
