package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// AuthorityHandler expone el estado del servicio de autorización de AFIP.
type AuthorityHandler struct {
	client billing.AuthorityClient
}

// NewAuthorityHandler construye el handler.
func NewAuthorityHandler(client billing.AuthorityClient) *AuthorityHandler {
	return &AuthorityHandler{client: client}
}

// Status consulta las tres capas del servicio de AFIP.
// GET /api/authority/status
func (h *AuthorityHandler) Status(c *fiber.Ctx) error {
	status, err := h.client.ServerStatus(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "AUTHORITY_UNAVAILABLE", Message: "servicio de AFIP no disponible"})
	}
	return c.JSON(dto.AuthorityStatusResponse{
		Healthy:    status.Healthy(),
		AppServer:  status.AppServer == "OK",
		DbServer:   status.DbServer == "OK",
		AuthServer: status.AuthServer == "OK",
	})
}
