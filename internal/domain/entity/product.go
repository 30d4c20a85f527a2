package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU vendible.
// TaxRate es la alícuota de IVA en porcentaje (21, 10.5, 27 o 0).
type Product struct {
	ID          string
	SKU         string // código único
	Name        string
	Description string
	Price       decimal.Decimal // precio de venta con IVA incluido
	TaxRate     decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
