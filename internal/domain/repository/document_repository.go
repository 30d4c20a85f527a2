package repository

import "github.com/jhoicas/Facturacion-api/internal/domain/entity"

// DocumentRepository define el puerto de persistencia para comprobantes y sus líneas.
type DocumentRepository interface {
	Create(doc *entity.Document) error
	CreateLine(line *entity.DocumentLine) error
	// Update actualiza estado, pagos y campos de autorización:
	// status, paid_total, cae, cae_due, voucher_number, authority_errors.
	Update(doc *entity.Document) error
	GetByID(id string) (*entity.Document, error)
	GetLinesByDocumentID(documentID string) ([]*entity.DocumentLine, error)

	// MaxNumberByPrefix devuelve el número más alto ya emitido para el prefijo
	// ("" si no existe ninguno). Los números van zero-padded, por lo que el
	// orden lexicográfico coincide con el numérico.
	MaxNumberByPrefix(prefix string) (string, error)

	// ExistsByNumber verifica si ya existe un comprobante con ese número interno.
	ExistsByNumber(number string) (bool, error)

	// LastVoucherNumberByType devuelve el mayor número de comprobante AFIP ya
	// registrado localmente para una familia (0 si no hay ninguno autorizado).
	LastVoucherNumberByType(docType string) (int64, error)
}
