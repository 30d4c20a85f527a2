package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo implementación de CredentialRepository (solo lectura).
type CredentialRepo struct {
	q Querier
}

// NewCredentialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCredentialRepository(q Querier) *CredentialRepo {
	return &CredentialRepo{q: q}
}

// GetActive devuelve la credencial activa más reciente del tipo dado.
// environment vacío busca credenciales sin etiqueta de ambiente.
func (r *CredentialRepo) GetActive(ctx context.Context, credType, environment string) (*entity.TaxCredential, error) {
	query := `
		SELECT id, type, COALESCE(environment, ''), content, is_active, created_at
		FROM tax_credentials
		WHERE type = $1 AND is_active
		  AND ($2 = '' AND environment IS NULL OR environment = $2)
		ORDER BY created_at DESC
		LIMIT 1`
	var c entity.TaxCredential
	err := r.q.QueryRow(ctx, query, credType, environment).Scan(
		&c.ID, &c.Type, &c.Environment, &c.Content, &c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}
