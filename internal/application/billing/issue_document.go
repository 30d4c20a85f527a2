package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	domainbilling "github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// authorizationTimeout tiempo máximo de espera por una autorización de AFIP.
// Vencido el plazo el comprobante queda PENDING y se reintenta manualmente.
const authorizationTimeout = 30 * time.Second

// duplicateRetries reintentos de la transacción de emisión cuando el índice
// único de números detecta una carrera que la verificación previa no vio.
const duplicateRetries = 2

// IssueDocumentUseCase emite un comprobante: verifica stock, asigna número,
// persiste cabecera y líneas, descuenta stock (todo en una transacción) y
// luego solicita el CAE si el tipo lo requiere. El resultado de la
// autorización nunca revierte la transacción de emisión: ante autoridad no
// disponible o rechazo, la venta persiste en PENDING.
type IssueDocumentUseCase struct {
	txRunner     BillingTxRunner
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	docRepo      repository.DocumentRepository
	authWorkflow *AuthorizationWorkflow
	log          *logger.Logger
}

// NewIssueDocumentUseCase construye el caso de uso.
func NewIssueDocumentUseCase(
	txRunner BillingTxRunner,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	docRepo repository.DocumentRepository,
	authWorkflow *AuthorizationWorkflow,
	log *logger.Logger,
) *IssueDocumentUseCase {
	return &IssueDocumentUseCase{
		txRunner:     txRunner,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		docRepo:      docRepo,
		authWorkflow: authWorkflow,
		log:          log,
	}
}

// Issue emite un comprobante de venta.
//
// Validaciones (antes de cualquier efecto): tipo soportado, cliente existente
// y compatible con la clase pedida, productos existentes, cantidades positivas.
// Luego, en una única transacción: verificación y descuento de stock,
// asignación de número interno y persistencia en PENDING. Tras el commit, si
// el tipo requiere CAE se invoca el workflow de autorización con timeout.
//
// Un rechazo de negocio de AFIP se devuelve como error junto con el
// comprobante persistido (el caller decide cómo reaccionar); autoridad no
// disponible no produce error: el comprobante queda PENDING.
func (uc *IssueDocumentUseCase) Issue(ctx context.Context, in dto.IssueDocumentRequest) (*dto.DocumentResponse, error) {
	if in.CustomerID == "" || len(in.Items) == 0 || !entity.ValidDocumentType(in.Type) {
		return nil, domain.ErrInvalidInput
	}

	customer, err := uc.customerRepo.GetByID(in.CustomerID)
	if err != nil || customer == nil {
		return nil, domain.ErrNotFound
	}
	if err := ValidateBuyerForType(customer, in.Type); err != nil {
		return nil, err
	}

	// Validar productos y precios (fuera de la tx, solo lectura)
	productsByID := make(map[string]*entity.Product)
	for i := range in.Items {
		item := &in.Items[i]
		if item.ProductID == "" || !item.Quantity.GreaterThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		product, err := uc.productRepo.GetByID(item.ProductID)
		if err != nil || product == nil {
			return nil, domain.ErrNotFound
		}
		productsByID[item.ProductID] = product
		if item.UnitPrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		if item.UnitPrice.IsZero() {
			in.Items[i].UnitPrice = product.Price
		}
	}

	now := time.Now()
	var doc *entity.Document
	var lines []*entity.DocumentLine
	for attempt := 0; ; attempt++ {
		doc, lines, err = uc.persistDocument(ctx, in, productsByID, now)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrDuplicate) && attempt < duplicateRetries {
			uc.log.Warn().Str("type", in.Type).Int("attempt", attempt+1).
				Msg("colisión de número de comprobante; se reintenta la emisión")
			continue
		}
		return nil, err
	}

	// La emisión ya está comprometida: la autorización no puede revertirla.
	if entity.RequiresAuthorization(doc.Type) {
		if authErr := uc.authorizeAndPersist(ctx, doc, lines, customer); authErr != nil {
			if errors.Is(authErr, domain.ErrAuthorityUnavailable) {
				// Venta válida en estado degradado; reintento manual posterior.
				uc.log.Warn().Str("document_id", doc.ID).Str("number", doc.Number).
					Msg("autoridad no disponible; comprobante queda PENDING")
				return uc.toResponse(doc, lines), nil
			}
			// Rechazo de negocio: el comprobante persiste sin autorizar y el
			// motivo se informa al caller.
			return uc.toResponse(doc, lines), authErr
		}
	}
	return uc.toResponse(doc, lines), nil
}

// persistDocument ejecuta la transacción de emisión: stock, numeración y alta
// del comprobante con sus líneas en estado PENDING.
func (uc *IssueDocumentUseCase) persistDocument(ctx context.Context, in dto.IssueDocumentRequest, productsByID map[string]*entity.Product, now time.Time) (*entity.Document, []*entity.DocumentLine, error) {
	var doc *entity.Document
	var lines []*entity.DocumentLine

	err := uc.txRunner.RunBilling(ctx, func(
		docRepo repository.DocumentRepository,
		stockRepo repository.StockRepository,
		seqRepo repository.SequenceRepository,
	) error {
		// 1) Verificación de stock con bloqueo de fila; cualquier faltante
		// aborta antes de toda mutación. Las notas de crédito reingresan
		// mercadería en lugar de descontarla.
		restock := entity.IsCreditNote(in.Type)
		for _, item := range in.Items {
			stock, err := stockRepo.GetForUpdate(item.ProductID)
			if err != nil {
				return err
			}
			if restock {
				stock.Quantity = stock.Quantity.Add(item.Quantity)
			} else {
				if stock.Quantity.LessThan(item.Quantity) {
					return domain.ErrInsufficientStock
				}
				stock.Quantity = stock.Quantity.Sub(item.Quantity)
			}
			stock.UpdatedAt = now
			if err := stockRepo.Upsert(stock); err != nil {
				return err
			}
		}

		// 2) Número interno de la familia
		number, err := AllocateNumber(docRepo, seqRepo, entity.NumberPrefix(in.Type))
		if err != nil {
			return err
		}

		// 3) Totales: suma de subtotales por línea redondeados, y desglose
		// neto/IVA línea por línea
		taxLines := make([]domainbilling.Line, 0, len(in.Items))
		for _, item := range in.Items {
			product := productsByID[item.ProductID]
			taxLines = append(taxLines, domainbilling.Line{
				Gross:       domainbilling.LineSubtotal(item.Quantity, item.UnitPrice),
				RatePercent: product.TaxRate,
			})
		}
		totals := domainbilling.Totalize(taxLines)

		// 4) Entidad comprobante y líneas, estado PENDING
		doc = &entity.Document{
			ID:         uuid.New().String(),
			CustomerID: in.CustomerID,
			Type:       in.Type,
			Number:     number,
			Date:       now,
			NetTotal:   totals.Net,
			TaxTotal:   totals.Tax,
			GrandTotal: totals.Gross,
			PaidTotal:  decimal.Zero,
			Status:     entity.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := docRepo.Create(doc); err != nil {
			return err
		}
		lines = lines[:0]
		for i, item := range in.Items {
			product := productsByID[item.ProductID]
			line := &entity.DocumentLine{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				TaxRate:    product.TaxRate,
				Subtotal:   taxLines[i].Gross,
			}
			if err := docRepo.CreateLine(line); err != nil {
				return err
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

// authorizeAndPersist solicita el CAE con timeout acotado y persiste el
// resultado sobre el comprobante. También lo usa la re-autorización manual.
func (uc *IssueDocumentUseCase) authorizeAndPersist(ctx context.Context, doc *entity.Document, lines []*entity.DocumentLine, buyer *entity.Customer) error {
	authCtx, cancel := context.WithTimeout(ctx, authorizationTimeout)
	defer cancel()

	res, err := uc.authWorkflow.Authorize(authCtx, doc, lines, buyer)
	if err != nil {
		if res != nil {
			// Rechazo con observaciones: se registran para re-autorización manual
			doc.AuthorityErrors = formatRejection(res)
			doc.UpdatedAt = time.Now()
			if uerr := uc.docRepo.Update(doc); uerr != nil {
				uc.log.Error().Err(uerr).Str("document_id", doc.ID).
					Msg("no se pudo persistir el rechazo de AFIP")
			}
		}
		return err
	}

	due := res.CAEDue
	doc.CAE = res.CAE
	doc.CAEDue = &due
	doc.VoucherNumber = res.VoucherNumber
	doc.Status = entity.StatusAuthorized
	doc.AuthorityErrors = ""
	doc.UpdatedAt = time.Now()
	return uc.docRepo.Update(doc)
}

// Reauthorize reintenta manualmente la autorización de un comprobante PENDING
// (reemplazo operativo del daemon de reintentos, fuera de alcance).
func (uc *IssueDocumentUseCase) Reauthorize(ctx context.Context, documentID string) (*dto.DocumentResponse, error) {
	doc, err := uc.docRepo.GetByID(documentID)
	if err != nil || doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.Status != entity.StatusPending || !entity.RequiresAuthorization(doc.Type) || doc.CAE != "" {
		return nil, domain.ErrInvalidInput
	}
	lines, err := uc.docRepo.GetLinesByDocumentID(doc.ID)
	if err != nil {
		return nil, err
	}
	customer, err := uc.customerRepo.GetByID(doc.CustomerID)
	if err != nil || customer == nil {
		return nil, domain.ErrNotFound
	}
	if authErr := uc.authorizeAndPersist(ctx, doc, lines, customer); authErr != nil {
		return uc.toResponse(doc, lines), authErr
	}
	return uc.toResponse(doc, lines), nil
}

// GetDocument obtiene un comprobante por ID con sus líneas.
func (uc *IssueDocumentUseCase) GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.docRepo.GetByID(id)
	if err != nil || doc == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.docRepo.GetLinesByDocumentID(id)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(doc, lines), nil
}

func (uc *IssueDocumentUseCase) toResponse(doc *entity.Document, lines []*entity.DocumentLine) *dto.DocumentResponse {
	return toDocumentResponse(doc, lines)
}
