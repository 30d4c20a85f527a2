package repository

import "github.com/jhoicas/Facturacion-api/internal/domain/entity"

// SequenceRepository define el puerto de persistencia para secuencias de numeración.
type SequenceRepository interface {
	// Get devuelve la secuencia del prefijo (LastValue 0 si no existe).
	Get(prefix string) (*entity.NumberSequence, error)
	// Advance fija LastValue = max(LastValue, value): la secuencia nunca retrocede.
	Advance(prefix string, value int64) error
}
