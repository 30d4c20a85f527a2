package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IssueDocument  *billing.IssueDocumentUseCase
	CancelDocument *billing.CancelDocumentUseCase
	Payment        *billing.PaymentUseCase
	Authority      billing.AuthorityClient
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Documents (emisión, consulta, anulación, pagos, re-autorización)
	documents := api.Group("/documents")
	documentHandler := NewDocumentHandler(deps.IssueDocument, deps.CancelDocument, deps.Payment)
	documents.Post("/", documentHandler.Issue)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Post("/:id/cancel", documentHandler.Cancel)
	documents.Post("/:id/payments", documentHandler.RegisterPayment)
	documents.Post("/:id/authorize", documentHandler.Reauthorize)

	// Estado del servicio de AFIP
	authority := api.Group("/authority")
	authorityHandler := NewAuthorityHandler(deps.Authority)
	authority.Get("/status", authorityHandler.Status)
}
