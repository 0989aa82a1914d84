package models

import (
	"github.com/google/uuid"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order, for AutoMigrate in
// sqlite mode and tests. Postgres schemas come from goose migrations.
func All() []any {
	return []any{
		&User{},
		&Store{},
		&Product{},
		&ProductImage{},
		&Variant{},
		&Voucher{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&OutboxEvent{},
	}
}
