package billing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

const (
	// numberPadWidth ancho del número interno con ceros a la izquierda ("FA-00000001").
	numberPadWidth = 8
	// maxAllocationAttempts reintentos ante colisión antes de rendirse.
	maxAllocationAttempts = 5
)

// AllocateNumber asigna el próximo número interno para una familia de
// comprobante. Se invoca con repositorios atados a la transacción de emisión.
//
// Toma como piso el mayor entre el último número ya emitido con el prefijo y
// la secuencia registrada (que nunca retrocede), re-verifica la existencia del
// número calculado justo antes de usarlo y, ante colisión, recalcula con el
// entero siguiente hasta maxAllocationAttempts veces. La unicidad final la
// garantiza el índice único de la tabla de comprobantes; una violación de ese
// índice se trata también como disparador de reintento por el caller.
func AllocateNumber(docRepo repository.DocumentRepository, seqRepo repository.SequenceRepository, prefix string) (string, error) {
	if prefix == "" {
		return "", domain.ErrInvalidInput
	}

	next := int64(1)
	if maxNumber, err := docRepo.MaxNumberByPrefix(prefix); err != nil {
		return "", fmt.Errorf("consultar último número %q: %w", prefix, err)
	} else if maxNumber != "" {
		if n, perr := strconv.ParseInt(strings.TrimPrefix(maxNumber, prefix), 10, 64); perr == nil {
			next = n + 1
		}
	}
	seq, err := seqRepo.Get(prefix)
	if err != nil {
		return "", fmt.Errorf("consultar secuencia %q: %w", prefix, err)
	}
	if seq != nil && seq.LastValue+1 > next {
		next = seq.LastValue + 1
	}

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		number := fmt.Sprintf("%s%0*d", prefix, numberPadWidth, next)
		exists, err := docRepo.ExistsByNumber(number)
		if err != nil {
			return "", fmt.Errorf("verificar número %q: %w", number, err)
		}
		if !exists {
			if err := seqRepo.Advance(prefix, next); err != nil {
				return "", fmt.Errorf("avanzar secuencia %q: %w", prefix, err)
			}
			return number, nil
		}
		next++
	}
	return "", domain.ErrAllocationFailed
}
