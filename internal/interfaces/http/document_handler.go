package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// DocumentHandler maneja las peticiones HTTP de emisión y ciclo de vida de comprobantes.
type DocumentHandler struct {
	issueUC   *billing.IssueDocumentUseCase
	cancelUC  *billing.CancelDocumentUseCase
	paymentUC *billing.PaymentUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(issueUC *billing.IssueDocumentUseCase, cancelUC *billing.CancelDocumentUseCase, paymentUC *billing.PaymentUseCase) *DocumentHandler {
	return &DocumentHandler{issueUC: issueUC, cancelUC: cancelUC, paymentUC: paymentUC}
}

// Issue emite un comprobante: reserva stock, asigna número y solicita el CAE.
// POST /api/documents
func (h *DocumentHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.issueUC.Issue(c.Context(), in)
	if err != nil {
		// Rechazo de AFIP: el comprobante quedó persistido sin autorizar,
		// se devuelve con las observaciones registradas.
		if doc != nil && (errors.Is(err, domain.ErrAuthorityRejected) || errors.Is(err, domain.ErrWrongDocumentClass)) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(doc)
		}
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetByID obtiene el detalle completo de un comprobante.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	doc, err := h.issueUC.GetDocument(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(doc)
}

// Cancel anula un comprobante autorizado emitiendo su nota de crédito.
// POST /api/documents/:id/cancel
func (h *DocumentHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	credit, err := h.cancelUC.Cancel(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(credit)
}

// RegisterPayment registra un pago sobre un comprobante.
// POST /api/documents/:id/payments
func (h *DocumentHandler) RegisterPayment(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.paymentUC.RegisterPayment(c.Context(), id, in.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(doc)
}

// Reauthorize reintenta manualmente la autorización de un comprobante PENDING.
// POST /api/documents/:id/authorize
func (h *DocumentHandler) Reauthorize(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	doc, err := h.issueUC.Reauthorize(c.Context(), id)
	if err != nil {
		if doc != nil && (errors.Is(err, domain.ErrAuthorityRejected) || errors.Is(err, domain.ErrWrongDocumentClass)) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(doc)
		}
		return mapDomainError(c, err)
	}
	return c.JSON(doc)
}

// mapDomainError traduce errores de dominio a respuestas HTTP.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrCancellationConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_CANCELLED", Message: "el comprobante ya está anulado"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "número de comprobante duplicado"})
	case errors.Is(err, domain.ErrAllocationFailed):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NUMBER_ALLOCATION", Message: "no se pudo asignar un número de comprobante"})
	case errors.Is(err, domain.ErrTotalMismatch):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "TOTAL_MISMATCH", Message: "los totales del comprobante no cierran"})
	case errors.Is(err, domain.ErrWrongDocumentClass):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "WRONG_DOCUMENT_CLASS", Message: "clase de comprobante incorrecta para el receptor"})
	case errors.Is(err, domain.ErrAuthorityRejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "AUTHORITY_REJECTED", Message: "AFIP rechazó el comprobante"})
	case errors.Is(err, domain.ErrCredentialsUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "CREDENTIALS", Message: "credenciales fiscales no disponibles"})
	case errors.Is(err, domain.ErrAuthorityUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "AUTHORITY_UNAVAILABLE", Message: "servicio de AFIP no disponible"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
