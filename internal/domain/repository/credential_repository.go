package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CredentialRepository define el puerto de lectura de credenciales fiscales.
// La escritura es responsabilidad de un colaborador de configuración externo.
type CredentialRepository interface {
	// GetActive devuelve la credencial activa del tipo dado etiquetada para el
	// ambiente ("PROD"/"DEV"). Ambiente vacío busca credenciales sin etiqueta.
	// Retorna nil, nil si no hay ninguna.
	GetActive(ctx context.Context, credType, environment string) (*entity.TaxCredential, error)
}
