package billing

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/afip"
)

// BillingTxRunner ejecuta una función dentro de una transacción serializable
// con los repositorios de comprobantes, stock y secuencias atados a la tx.
// La verificación de stock, el descuento y la inserción del comprobante deben
// ser todo-o-nada para evitar sobreventa bajo concurrencia.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		stockRepo repository.StockRepository,
		seqRepo repository.SequenceRepository,
	) error) error
}

// AuthorityClient puerto hacia el cliente AFIP. La implementación concreta es
// afip.Client; para tests se inyecta un fake.
type AuthorityClient interface {
	ServerStatus(ctx context.Context) (*afip.ServiceStatus, error)
	LastVoucherNumber(ctx context.Context, salesPoint, voucherType int) (int64, error)
	Authorize(ctx context.Context, req *afip.VoucherRequest) (*afip.VoucherResult, error)
}
