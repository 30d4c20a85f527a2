package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un comprobante.
const (
	StatusPending    = "PENDING"    // Creado; sin CAE (o rechazado, ver AuthorityErrors)
	StatusAuthorized = "AUTHORIZED" // CAE otorgado por AFIP
	StatusPaid       = "PAID"       // Pagos acumulados >= total
	StatusCancelled  = "CANCELLED"  // Anulado vía nota de crédito vinculada
)

// Tipos de comprobante soportados.
const (
	DocTypeFacturaA     = "FACTURA_A"
	DocTypeFacturaB     = "FACTURA_B"
	DocTypeFacturaC     = "FACTURA_C"
	DocTypeNotaCreditoA = "NOTA_CREDITO_A"
	DocTypeNotaCreditoB = "NOTA_CREDITO_B"
	DocTypeNotaCreditoC = "NOTA_CREDITO_C"
	DocTypeNotaDebitoA  = "NOTA_DEBITO_A"
	DocTypeNotaDebitoB  = "NOTA_DEBITO_B"
	DocTypeNotaDebitoC  = "NOTA_DEBITO_C"
	DocTypeRemito       = "REMITO"
)

// numberPrefixes prefijo de numeración por familia de comprobante.
var numberPrefixes = map[string]string{
	DocTypeFacturaA:     "FA-",
	DocTypeFacturaB:     "FB-",
	DocTypeFacturaC:     "FC-",
	DocTypeNotaCreditoA: "NCA-",
	DocTypeNotaCreditoB: "NCB-",
	DocTypeNotaCreditoC: "NCC-",
	DocTypeNotaDebitoA:  "NDA-",
	DocTypeNotaDebitoB:  "NDB-",
	DocTypeNotaDebitoC:  "NDC-",
	DocTypeRemito:       "RM-",
}

// creditNoteFor familia de nota de crédito que anula cada familia de factura.
var creditNoteFor = map[string]string{
	DocTypeFacturaA: DocTypeNotaCreditoA,
	DocTypeFacturaB: DocTypeNotaCreditoB,
	DocTypeFacturaC: DocTypeNotaCreditoC,
}

// invoiceFamilyFor factura original a la que referencia una NC/ND (mismo sufijo A/B/C).
var invoiceFamilyFor = map[string]string{
	DocTypeNotaCreditoA: DocTypeFacturaA,
	DocTypeNotaCreditoB: DocTypeFacturaB,
	DocTypeNotaCreditoC: DocTypeFacturaC,
	DocTypeNotaDebitoA:  DocTypeFacturaA,
	DocTypeNotaDebitoB:  DocTypeFacturaB,
	DocTypeNotaDebitoC:  DocTypeFacturaC,
}

// ValidDocumentType indica si el tipo de comprobante está soportado.
func ValidDocumentType(docType string) bool {
	_, ok := numberPrefixes[docType]
	return ok
}

// NumberPrefix devuelve el prefijo de numeración de la familia ("FA-", "NCA-", ...).
func NumberPrefix(docType string) string {
	return numberPrefixes[docType]
}

// RequiresAuthorization indica si el tipo de comprobante necesita CAE de AFIP.
// El remito es un documento interno de entrega: no pasa por AFIP.
func RequiresAuthorization(docType string) bool {
	return docType != DocTypeRemito && ValidDocumentType(docType)
}

// IsCreditNote / IsDebitNote clasifican la familia del comprobante.
func IsCreditNote(docType string) bool {
	return docType == DocTypeNotaCreditoA || docType == DocTypeNotaCreditoB || docType == DocTypeNotaCreditoC
}

func IsDebitNote(docType string) bool {
	return docType == DocTypeNotaDebitoA || docType == DocTypeNotaDebitoB || docType == DocTypeNotaDebitoC
}

// CreditNoteTypeFor devuelve la familia de nota de crédito que anula a docType ("" si no aplica).
func CreditNoteTypeFor(docType string) string {
	return creditNoteFor[docType]
}

// AssociatedInvoiceTypeFor devuelve la familia de factura que una NC/ND referencia ("" si no aplica).
func AssociatedInvoiceTypeFor(docType string) string {
	return invoiceFamilyFor[docType]
}

// Document representa la cabecera de un comprobante de venta
// (factura, nota de crédito/débito o remito).
type Document struct {
	ID              string
	CustomerID      string
	Type            string
	Number          string // número interno (ej: "FA-00000001"), único por prefijo
	Date            time.Time
	NetTotal        decimal.Decimal
	TaxTotal        decimal.Decimal
	GrandTotal      decimal.Decimal
	PaidTotal       decimal.Decimal
	Status          string
	CAE             string     // Código de Autorización Electrónico; inmutable una vez asignado
	CAEDue          *time.Time // vencimiento del CAE
	VoucherNumber   int64      // número de comprobante ante AFIP (0 = sin autorizar)
	AssociatedDocID string     // ID del comprobante original (solo NC/ND)
	AuthorityErrors string     // observaciones de rechazo devueltas por AFIP
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DocumentLine representa una línea de un comprobante. Inmutable una vez creada.
type DocumentLine struct {
	ID         string
	DocumentID string
	ProductID  string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TaxRate    decimal.Decimal // alícuota IVA en porcentaje (21, 10.5, ...)
	Subtotal   decimal.Decimal // Quantity * UnitPrice redondeado a 2 decimales
}
