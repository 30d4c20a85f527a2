// Package afip implementa el cliente hacia los web services de facturación
// electrónica de AFIP (WSAA para autenticación, WSFEv1 para autorización).
// El transporte se abstrae en los puertos VoucherService y LoginService: las
// implementaciones SOAP reales conviven con un servicio simulado para el
// ambiente DEV y para tests.
package afip

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrExpiredToken lo devuelve el transporte cuando el ticket de acceso venció.
// El cliente fuerza una re-autenticación y reintenta una única vez.
var ErrExpiredToken = errors.New("afip: ticket de acceso vencido")

// AccessTicket ticket de acceso WSAA: token + sign con vencimiento.
type AccessTicket struct {
	Token     string
	Sign      string
	ExpiresAt time.Time
}

// Expired indica si el ticket venció (con un margen de seguridad de 1 minuto).
func (t *AccessTicket) Expired() bool {
	return t == nil || time.Now().After(t.ExpiresAt.Add(-time.Minute))
}

// Auth credenciales de invocación: ticket vigente + CUIT del emisor.
// En ambiente DEV el token y el sign van vacíos.
type Auth struct {
	Token string
	Sign  string
	CUIT  string
}

// ServiceStatus respuesta del health check del servicio (operación dummy).
type ServiceStatus struct {
	AppServer  string
	DbServer   string
	AuthServer string
}

// Healthy indica si las tres capas reportan OK.
func (s ServiceStatus) Healthy() bool {
	return s.AppServer == "OK" && s.DbServer == "OK" && s.AuthServer == "OK"
}

// VATItem renglón del array de IVA del pedido de autorización.
type VATItem struct {
	Code   int             // código de alícuota (tabla AFIP)
	Base   decimal.Decimal // base imponible
	Amount decimal.Decimal // importe de IVA
}

// AssociatedVoucher referencia al comprobante original (obligatoria en NC/ND).
type AssociatedVoucher struct {
	VoucherType int
	SalesPoint  int
	Number      int64
}

// VoucherRequest pedido de autorización de un único comprobante
// (rango desde/hasta con el mismo número).
type VoucherRequest struct {
	SalesPoint  int
	VoucherType int
	Concept     int
	DocKind     int
	DocNumber   int64
	VoucherFrom int64
	VoucherTo   int64
	IssueDate   string // YYYYMMDD
	NetTotal    decimal.Decimal
	TaxTotal    decimal.Decimal
	GrandTotal  decimal.Decimal
	VAT         []VATItem
	Associated  []AssociatedVoucher
}

// Observation observación de rechazo devuelta por AFIP.
type Observation struct {
	Code    int
	Message string
}

// VoucherResult resultado de la autorización.
type VoucherResult struct {
	Approved      bool
	CAE           string
	CAEDue        time.Time
	VoucherNumber int64
	Observations  []Observation
}

// VoucherService define el puerto RPC bloqueante hacia el WS de facturación.
// SOAPVoucherClient es la implementación real; para tests y ambiente DEV se
// usa SimulatedService.
type VoucherService interface {
	// Dummy consulta el estado de las capas de aplicación, datos y autenticación.
	Dummy(ctx context.Context) (*ServiceStatus, error)
	// LastAuthorized devuelve el último número de comprobante autorizado
	// para el punto de venta y tipo dados (0 si no hay ninguno).
	LastAuthorized(ctx context.Context, auth Auth, salesPoint, voucherType int) (int64, error)
	// RequestCAE solicita la autorización de un comprobante.
	RequestCAE(ctx context.Context, auth Auth, req *VoucherRequest) (*VoucherResult, error)
}

// LoginService define el puerto de autenticación (WSAA): obtiene un ticket de
// acceso firmando el pedido con el certificado y la clave privada del emisor.
type LoginService interface {
	Login(ctx context.Context, certPEM, keyPEM string) (*AccessTicket, error)
}

// CredentialProvider resuelve el certificado o la clave privada activos para
// un ambiente, independizando al cliente del mecanismo de almacenamiento.
type CredentialProvider interface {
	// Resolve devuelve el contenido de la credencial del tipo dado
	// (entity.CredentialCertificate o entity.CredentialPrivateKey).
	Resolve(ctx context.Context, credType, environment string) (string, error)
}
