package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo implementación de SequenceRepository (usable con pool o tx).
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Get devuelve la secuencia del prefijo (LastValue 0 si no existe).
func (r *SequenceRepo) Get(prefix string) (*entity.NumberSequence, error) {
	query := `
		SELECT prefix, last_value, updated_at
		FROM number_sequences WHERE prefix = $1`
	var s entity.NumberSequence
	err := r.q.QueryRow(context.Background(), query, prefix).Scan(
		&s.Prefix, &s.LastValue, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.NumberSequence{Prefix: prefix}, nil
		}
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &s, nil
}

// Advance fija last_value = max(last_value, value): la secuencia nunca retrocede.
func (r *SequenceRepo) Advance(prefix string, value int64) error {
	query := `
		INSERT INTO number_sequences (prefix, last_value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (prefix)
		DO UPDATE SET last_value = GREATEST(number_sequences.last_value, EXCLUDED.last_value), updated_at = now()`
	_, err := r.q.Exec(context.Background(), query, prefix, value)
	if err != nil {
		return fmt.Errorf("advance sequence: %w", err)
	}
	return nil
}
