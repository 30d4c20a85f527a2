package afip

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ CredentialProvider = (*DBCredentialProvider)(nil)

// DBCredentialProvider resuelve credenciales fiscales desde el repositorio.
// Busca primero la credencial etiquetada para el ambiente; si no hay, cae a la
// credencial sin etiqueta de ambiente.
type DBCredentialProvider struct {
	repo repository.CredentialRepository
}

// NewDBCredentialProvider construye el proveedor.
func NewDBCredentialProvider(repo repository.CredentialRepository) *DBCredentialProvider {
	return &DBCredentialProvider{repo: repo}
}

// Resolve devuelve el contenido de la credencial activa del tipo dado.
// Retorna domain.ErrCredentialsUnavailable si no existe ni para el ambiente
// ni como credencial genérica.
func (p *DBCredentialProvider) Resolve(ctx context.Context, credType, environment string) (string, error) {
	cred, err := p.repo.GetActive(ctx, credType, environment)
	if err != nil {
		return "", fmt.Errorf("consultar credencial %s (%s): %w", credType, environment, err)
	}
	if cred == nil {
		// Fallback: credencial sin etiqueta de ambiente
		cred, err = p.repo.GetActive(ctx, credType, "")
		if err != nil {
			return "", fmt.Errorf("consultar credencial %s (genérica): %w", credType, err)
		}
	}
	if cred == nil || cred.Content == "" {
		return "", domain.ErrCredentialsUnavailable
	}
	return cred.Content, nil
}
