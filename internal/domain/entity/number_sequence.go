package entity

import "time"

// NumberSequence último número entero emitido para una familia de comprobante.
// Clave lógica: el prefijo de numeración ("FA-", "NCA-", ...). Nunca retrocede.
type NumberSequence struct {
	Prefix    string
	LastValue int64
	UpdatedAt time.Time
}
