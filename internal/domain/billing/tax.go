// Package billing contiene el cálculo de IVA de los comprobantes.
//
// Los precios de venta incluyen IVA: a partir del subtotal bruto de cada línea
// se deriva el neto gravado y el impuesto. El redondeo es half-up a 2 decimales
// y se aplica por línea; los totales del comprobante son la suma de los
// desgloses por línea ya redondeados (AFIP espera precisión a nivel de línea,
// no un único redondeo del agregado).
package billing

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// Breakdown deriva neto e impuesto desde un subtotal bruto (IVA incluido).
//
//	net = round2(gross / (1 + rate/100))
//	tax = round2(gross - net)
func Breakdown(gross, ratePercent decimal.Decimal) (net, tax decimal.Decimal) {
	net = gross.Div(one.Add(ratePercent.Div(hundred))).Round(2)
	tax = gross.Sub(net).Round(2)
	return net, tax
}

// LineSubtotal calcula el subtotal bruto de una línea: cantidad × precio unitario,
// redondeado a 2 decimales.
func LineSubtotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// RateBreakdown desglose de IVA acumulado para una alícuota.
type RateBreakdown struct {
	RatePercent decimal.Decimal
	Net         decimal.Decimal // base imponible (suma de netos por línea)
	Tax         decimal.Decimal
}

// Line entrada mínima para totalizar un comprobante.
type Line struct {
	Gross       decimal.Decimal // subtotal bruto de la línea
	RatePercent decimal.Decimal
}

// Totals resultado de totalizar un comprobante línea por línea.
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
	// Rates desglose por alícuota en orden de primera aparición,
	// requerido por el array de IVA del pedido de autorización.
	Rates []RateBreakdown
}

// Totalize aplica Breakdown por línea y agrupa por alícuota.
func Totalize(lines []Line) Totals {
	var t Totals
	index := make(map[string]int)
	for _, l := range lines {
		net, tax := Breakdown(l.Gross, l.RatePercent)
		t.Net = t.Net.Add(net)
		t.Tax = t.Tax.Add(tax)
		t.Gross = t.Gross.Add(l.Gross)

		key := l.RatePercent.String()
		i, ok := index[key]
		if !ok {
			index[key] = len(t.Rates)
			t.Rates = append(t.Rates, RateBreakdown{RatePercent: l.RatePercent})
			i = index[key]
		}
		t.Rates[i].Net = t.Rates[i].Net.Add(net)
		t.Rates[i].Tax = t.Rates[i].Tax.Add(tax)
	}
	return t
}
