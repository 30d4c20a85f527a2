package dto

import "github.com/shopspring/decimal"

// IssueDocumentRequest pedido de emisión de un comprobante.
type IssueDocumentRequest struct {
	CustomerID string                `json:"customer_id"`
	Type       string                `json:"type"` // FACTURA_A, FACTURA_B, ..., REMITO
	Items      []DocumentItemRequest `json:"items"`
}

// DocumentItemRequest línea del pedido. UnitPrice cero toma el precio del producto.
type DocumentItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentRequest registro de un pago sobre un comprobante.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// DocumentLineResponse línea de un comprobante en respuestas.
type DocumentLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// DocumentResponse comprobante completo en respuestas.
type DocumentResponse struct {
	ID              string                 `json:"id"`
	CustomerID      string                 `json:"customer_id"`
	Type            string                 `json:"type"`
	Number          string                 `json:"number"`
	Date            string                 `json:"date"`
	NetTotal        decimal.Decimal        `json:"net_total"`
	TaxTotal        decimal.Decimal        `json:"tax_total"`
	GrandTotal      decimal.Decimal        `json:"grand_total"`
	PaidTotal       decimal.Decimal        `json:"paid_total"`
	Status          string                 `json:"status"`
	CAE             string                 `json:"cae,omitempty"`
	CAEDue          string                 `json:"cae_due,omitempty"`
	VoucherNumber   int64                  `json:"voucher_number,omitempty"`
	AssociatedDocID string                 `json:"associated_document_id,omitempty"`
	AuthorityErrors string                 `json:"authority_errors,omitempty"`
	Lines           []DocumentLineResponse `json:"lines"`
}

// AuthorityStatusResponse estado del servicio de autorización de AFIP.
type AuthorityStatusResponse struct {
	Healthy    bool `json:"healthy"`
	AppServer  bool `json:"app_server"`
	DbServer   bool `json:"db_server"`
	AuthServer bool `json:"auth_server"`
}
