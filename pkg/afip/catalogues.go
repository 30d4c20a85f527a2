// Package afip contiene catálogos y validaciones alineados a las tablas del
// web service de facturación electrónica de AFIP (Argentina).
package afip

import "github.com/shopspring/decimal"

// =============================================================================
// Tipos de comprobante (tabla de referencia WSFE - CbteTipo)
// Código numérico con el que AFIP identifica cada clase de comprobante.
// =============================================================================

const (
	VoucherFacturaA     = 1
	VoucherNotaDebitoA  = 2
	VoucherNotaCreditoA = 3
	VoucherFacturaB     = 6
	VoucherNotaDebitoB  = 7
	VoucherNotaCreditoB = 8
	VoucherFacturaC     = 11
	VoucherNotaDebitoC  = 12
	VoucherNotaCreditoC = 13
	VoucherRemito       = 91 // Remito R: documento de traslado, sin CAE
)

// =============================================================================
// Tipos de documento del receptor (tabla WSFE - DocTipo)
// =============================================================================

const (
	DocKindCUIT    = 80
	DocKindCUIL    = 86
	DocKindDNI     = 96
	DocKindNinguno = 99 // consumidor final sin identificar (DocNro 0)
)

// =============================================================================
// Conceptos (tabla WSFE - Concepto)
// =============================================================================

const (
	ConceptGoods            = 1 // Productos
	ConceptServices         = 2 // Servicios
	ConceptGoodsAndServices = 3 // Productos y servicios
)

// =============================================================================
// Alícuotas de IVA (tabla WSFE - Id del array AlicIva)
// =============================================================================

const (
	VATCode0   = 3 // 0%
	VATCode25  = 9 // 2.5%
	VATCode5   = 8 // 5%
	VATCode105 = 4 // 10.5%
	VATCode21  = 5 // 21%
	VATCode27  = 6 // 27%
)

var vatCodes = map[string]int{
	"0":    VATCode0,
	"2.5":  VATCode25,
	"5":    VATCode5,
	"10.5": VATCode105,
	"21":   VATCode21,
	"27":   VATCode27,
}

// VATRateCode devuelve el código de alícuota AFIP para un porcentaje de IVA
// (0 si el porcentaje no figura en la tabla).
func VATRateCode(ratePercent decimal.Decimal) int {
	return vatCodes[ratePercent.String()]
}

// ValidVATRate indica si el porcentaje corresponde a una alícuota reconocida.
func ValidVATRate(ratePercent decimal.Decimal) bool {
	_, ok := vatCodes[ratePercent.String()]
	return ok
}

// =============================================================================
// Observaciones de rechazo (códigos de Obs del resultado de autorización)
// Subconjunto con semántica conocida para el motor.
// =============================================================================

// WrongClassObservationCodes códigos que indican que el receptor requiere otra
// clase de comprobante (ej: emitir B en lugar de A para un consumidor final).
var WrongClassObservationCodes = map[int]bool{
	10015: true, // condición de IVA del receptor incompatible con el tipo de comprobante
	10048: true, // el receptor no es responsable inscripto: no corresponde clase A
}
