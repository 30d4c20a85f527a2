package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
// La tabla documents lleva índice único sobre number: una violación se
// devuelve como domain.ErrDuplicate y el caller la trata como disparador de
// reintento de numeración.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste la cabecera del comprobante.
func (r *DocumentRepo) Create(doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documents (id, customer_id, type, number, date, net_total, tax_total, grand_total, paid_total, status, cae, cae_due, voucher_number, associated_doc_id, authority_errors, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.CustomerID, doc.Type, doc.Number, doc.Date,
		doc.NetTotal, doc.TaxTotal, doc.GrandTotal, doc.PaidTotal, doc.Status,
		nullIfEmpty(doc.CAE), doc.CAEDue, doc.VoucherNumber,
		nullIfEmpty(doc.AssociatedDocID), nullIfEmpty(doc.AuthorityErrors),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("número de comprobante ya emitido: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateLine persiste una línea del comprobante.
func (r *DocumentRepo) CreateLine(line *entity.DocumentLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_lines (id, document_id, product_id, quantity, unit_price, tax_rate, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.DocumentID, line.ProductID, line.Quantity, line.UnitPrice,
		line.TaxRate, line.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("insert document line: %w", err)
	}
	return nil
}

// Update actualiza estado, pagos y campos de autorización del comprobante.
// El CAE, una vez asignado, no se pisa (COALESCE conserva el existente).
func (r *DocumentRepo) Update(doc *entity.Document) error {
	query := `
		UPDATE documents
		SET status           = $2,
		    paid_total       = $3,
		    cae              = COALESCE(cae, $4),
		    cae_due          = COALESCE(cae_due, $5),
		    voucher_number   = GREATEST(voucher_number, $6),
		    authority_errors = $7,
		    updated_at       = $8
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.Status, doc.PaidTotal,
		nullIfEmpty(doc.CAE), doc.CAEDue, doc.VoucherNumber,
		nullIfEmpty(doc.AuthorityErrors), doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// GetByID obtiene un comprobante completo por ID.
func (r *DocumentRepo) GetByID(id string) (*entity.Document, error) {
	query := `
		SELECT id, customer_id, type, number, date,
		       net_total, tax_total, grand_total, paid_total, status,
		       cae, cae_due, voucher_number, associated_doc_id, authority_errors,
		       created_at, updated_at
		FROM documents WHERE id = $1`
	var d entity.Document
	var cae, assocID, authErrors *string
	var caeDue *time.Time
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&d.ID, &d.CustomerID, &d.Type, &d.Number, &d.Date,
		&d.NetTotal, &d.TaxTotal, &d.GrandTotal, &d.PaidTotal, &d.Status,
		&cae, &caeDue, &d.VoucherNumber, &assocID, &authErrors,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	derefStr := func(p *string) string {
		if p != nil {
			return *p
		}
		return ""
	}
	d.CAE = derefStr(cae)
	d.CAEDue = caeDue
	d.AssociatedDocID = derefStr(assocID)
	d.AuthorityErrors = derefStr(authErrors)
	return &d, nil
}

// GetLinesByDocumentID obtiene todas las líneas de un comprobante.
func (r *DocumentRepo) GetLinesByDocumentID(documentID string) ([]*entity.DocumentLine, error) {
	query := `
		SELECT id, document_id, product_id, quantity, unit_price, tax_rate, subtotal
		FROM document_lines WHERE document_id = $1 ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentLine
	for rows.Next() {
		var l entity.DocumentLine
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// MaxNumberByPrefix devuelve el número más alto emitido para el prefijo.
// Los números van zero-padded: el máximo lexicográfico es el máximo numérico.
func (r *DocumentRepo) MaxNumberByPrefix(prefix string) (string, error) {
	query := `
		SELECT number FROM documents
		WHERE number LIKE $1 || '%'
		ORDER BY number DESC LIMIT 1`
	var number string
	err := r.q.QueryRow(context.Background(), query, prefix).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("max number by prefix: %w", err)
	}
	return number, nil
}

// ExistsByNumber verifica si ya existe un comprobante con ese número interno.
func (r *DocumentRepo) ExistsByNumber(number string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM documents WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by number: %w", err)
	}
	return exists, nil
}

// LastVoucherNumberByType devuelve el mayor número de comprobante AFIP
// registrado localmente para una familia (0 si no hay ninguno).
func (r *DocumentRepo) LastVoucherNumberByType(docType string) (int64, error) {
	var n int64
	err := r.q.QueryRow(context.Background(),
		`SELECT COALESCE(MAX(voucher_number), 0) FROM documents WHERE type = $1`, docType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("last voucher number by type: %w", err)
	}
	return n, nil
}
