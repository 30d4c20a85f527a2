package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// CancelDocumentUseCase anula un comprobante autorizado emitiendo la nota de
// crédito vinculada de su misma familia (reverso total; las NC parciales
// quedan fuera de alcance). El original pasa a CANCELLED solo si la nota de
// crédito obtiene su propio CAE: toda la operación, autorización incluida,
// corre dentro de una única transacción, por lo que un fallo no deja estado
// parcial.
type CancelDocumentUseCase struct {
	txRunner     BillingTxRunner
	docRepo      repository.DocumentRepository
	customerRepo repository.CustomerRepository
	authWorkflow *AuthorizationWorkflow
	log          *logger.Logger
}

// NewCancelDocumentUseCase construye el caso de uso.
func NewCancelDocumentUseCase(
	txRunner BillingTxRunner,
	docRepo repository.DocumentRepository,
	customerRepo repository.CustomerRepository,
	authWorkflow *AuthorizationWorkflow,
	log *logger.Logger,
) *CancelDocumentUseCase {
	return &CancelDocumentUseCase{
		txRunner:     txRunner,
		docRepo:      docRepo,
		customerRepo: customerRepo,
		authWorkflow: authWorkflow,
		log:          log,
	}
}

// Cancel anula el comprobante identificado por documentID y devuelve la nota
// de crédito emitida.
func (uc *CancelDocumentUseCase) Cancel(ctx context.Context, documentID string) (*dto.DocumentResponse, error) {
	orig, err := uc.docRepo.GetByID(documentID)
	if err != nil || orig == nil {
		return nil, domain.ErrNotFound
	}
	if orig.Status == entity.StatusCancelled {
		return nil, domain.ErrCancellationConflict
	}
	creditType := entity.CreditNoteTypeFor(orig.Type)
	if creditType == "" {
		// Solo las facturas se anulan por nota de crédito
		return nil, domain.ErrInvalidInput
	}
	if orig.VoucherNumber == 0 {
		// Sin comprobante AFIP no hay referencia asociada posible
		return nil, domain.ErrInvalidInput
	}

	customer, err := uc.customerRepo.GetByID(orig.CustomerID)
	if err != nil || customer == nil {
		return nil, domain.ErrNotFound
	}
	origLines, err := uc.docRepo.GetLinesByDocumentID(orig.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var credit *entity.Document
	var creditLines []*entity.DocumentLine

	err = uc.txRunner.RunBilling(ctx, func(
		docRepo repository.DocumentRepository,
		stockRepo repository.StockRepository,
		seqRepo repository.SequenceRepository,
	) error {
		// 1) Reingresar la mercadería de cada línea
		for _, l := range origLines {
			stock, err := stockRepo.GetForUpdate(l.ProductID)
			if err != nil {
				return err
			}
			stock.Quantity = stock.Quantity.Add(l.Quantity)
			stock.UpdatedAt = now
			if err := stockRepo.Upsert(stock); err != nil {
				return err
			}
		}

		// 2) Nota de crédito con los totales del original y referencia a él
		number, err := AllocateNumber(docRepo, seqRepo, entity.NumberPrefix(creditType))
		if err != nil {
			return err
		}
		credit = &entity.Document{
			ID:              uuid.New().String(),
			CustomerID:      orig.CustomerID,
			Type:            creditType,
			Number:          number,
			Date:            now,
			NetTotal:        orig.NetTotal,
			TaxTotal:        orig.TaxTotal,
			GrandTotal:      orig.GrandTotal,
			Status:          entity.StatusPending,
			AssociatedDocID: orig.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := docRepo.Create(credit); err != nil {
			return err
		}
		creditLines = creditLines[:0]
		for _, l := range origLines {
			line := &entity.DocumentLine{
				ID:         uuid.New().String(),
				DocumentID: credit.ID,
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice,
				TaxRate:    l.TaxRate,
				Subtotal:   l.Subtotal,
			}
			if err := docRepo.CreateLine(line); err != nil {
				return err
			}
			creditLines = append(creditLines, line)
		}

		// 3) Autorizar la nota de crédito; cualquier fallo revierte todo y el
		// original queda intacto
		authCtx, cancel := context.WithTimeout(ctx, authorizationTimeout)
		defer cancel()
		res, err := uc.authWorkflow.Authorize(authCtx, credit, creditLines, customer)
		if err != nil {
			return err
		}
		due := res.CAEDue
		credit.CAE = res.CAE
		credit.CAEDue = &due
		credit.VoucherNumber = res.VoucherNumber
		credit.Status = entity.StatusAuthorized
		credit.UpdatedAt = time.Now()
		if err := docRepo.Update(credit); err != nil {
			return err
		}

		// 4) Recién con la NC autorizada, el original pasa a CANCELLED
		orig.Status = entity.StatusCancelled
		orig.UpdatedAt = time.Now()
		return docRepo.Update(orig)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("document_id", orig.ID).
		Str("credit_note_id", credit.ID).
		Str("credit_note_number", credit.Number).
		Msg("comprobante anulado")
	return toDocumentResponse(credit, creditLines), nil
}
