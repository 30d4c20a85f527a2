package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrTotalMismatch el total persistido del comprobante no coincide con la suma de sus líneas.
	ErrTotalMismatch = errors.New("el total del comprobante no coincide con sus líneas")

	// ErrAllocationFailed no se pudo asignar un número de comprobante tras los reintentos permitidos.
	ErrAllocationFailed = errors.New("no se pudo asignar número de comprobante")

	// ErrCredentialsUnavailable no hay certificado o clave privada activos para el ambiente.
	ErrCredentialsUnavailable = errors.New("credenciales fiscales no disponibles")

	// ErrAuthorityUnavailable el servicio de AFIP no está disponible (red, timeout, credenciales o health check).
	// No es fatal para la emisión: el comprobante queda PENDING y se reintenta manualmente.
	ErrAuthorityUnavailable = errors.New("autoridad fiscal no disponible")

	// ErrAuthorityRejected AFIP rechazó el comprobante por regla de negocio. No se reintenta.
	ErrAuthorityRejected = errors.New("comprobante rechazado por la autoridad fiscal")

	// ErrWrongDocumentClass rechazo específico: el receptor requiere otra clase de comprobante
	// (ej: factura B para consumidor final en lugar de factura A).
	ErrWrongDocumentClass = errors.New("el receptor requiere otra clase de comprobante")

	// ErrCancellationConflict el comprobante ya fue anulado.
	ErrCancellationConflict = errors.New("el comprobante ya está anulado")
)
