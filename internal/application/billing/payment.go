package billing

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// PaymentUseCase acumula pagos sobre un comprobante. Al alcanzar el total,
// el comprobante pasa a PAID.
type PaymentUseCase struct {
	docRepo repository.DocumentRepository
}

// NewPaymentUseCase construye el caso de uso.
func NewPaymentUseCase(docRepo repository.DocumentRepository) *PaymentUseCase {
	return &PaymentUseCase{docRepo: docRepo}
}

// RegisterPayment registra un pago parcial o total.
func (uc *PaymentUseCase) RegisterPayment(ctx context.Context, documentID string, amount decimal.Decimal) (*dto.DocumentResponse, error) {
	if !amount.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	doc, err := uc.docRepo.GetByID(documentID)
	if err != nil || doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.Status == entity.StatusCancelled {
		return nil, domain.ErrCancellationConflict
	}

	doc.PaidTotal = doc.PaidTotal.Add(amount)
	if doc.PaidTotal.GreaterThanOrEqual(doc.GrandTotal) {
		doc.Status = entity.StatusPaid
	}
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(doc); err != nil {
		return nil, err
	}

	lines, err := uc.docRepo.GetLinesByDocumentID(doc.ID)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, lines), nil
}
