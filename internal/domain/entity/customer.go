package entity

import "time"

// Condiciones frente al IVA del receptor (determinan la clase de comprobante).
const (
	TaxConditionResponsableInscripto = "RESPONSABLE_INSCRIPTO"
	TaxConditionMonotributo          = "MONOTRIBUTO"
	TaxConditionExento               = "EXENTO"
	TaxConditionConsumidorFinal      = "CONSUMIDOR_FINAL"
)

// Customer representa un cliente (receptor de comprobantes).
// CUIT es obligatorio para responsables inscriptos y monotributistas;
// DNI es opcional para consumidores finales.
type Customer struct {
	ID           string
	Name         string
	TaxCondition string
	CUIT         string
	DNI          string
	Email        string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RequiresCUIT indica si la condición fiscal del cliente exige CUIT registrado.
func (c *Customer) RequiresCUIT() bool {
	return c.TaxCondition == TaxConditionResponsableInscripto || c.TaxCondition == TaxConditionMonotributo
}
