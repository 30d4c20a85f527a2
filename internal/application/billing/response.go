package billing

import (
	"fmt"
	"strings"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/afip"
)

// toDocumentResponse mapea la entidad y sus líneas al DTO de respuesta.
func toDocumentResponse(doc *entity.Document, lines []*entity.DocumentLine) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:              doc.ID,
		CustomerID:      doc.CustomerID,
		Type:            doc.Type,
		Number:          doc.Number,
		Date:            doc.Date.Format("2006-01-02"),
		NetTotal:        doc.NetTotal,
		TaxTotal:        doc.TaxTotal,
		GrandTotal:      doc.GrandTotal,
		PaidTotal:       doc.PaidTotal,
		Status:          doc.Status,
		CAE:             doc.CAE,
		VoucherNumber:   doc.VoucherNumber,
		AssociatedDocID: doc.AssociatedDocID,
		AuthorityErrors: doc.AuthorityErrors,
		Lines:           make([]dto.DocumentLineResponse, 0, len(lines)),
	}
	if doc.CAEDue != nil {
		resp.CAEDue = doc.CAEDue.Format("2006-01-02")
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.DocumentLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			Subtotal:  l.Subtotal,
		})
	}
	return resp
}

// formatRejection arma el texto de observaciones de un rechazo para
// persistirlo en el comprobante.
func formatRejection(res *afip.VoucherResult) string {
	if len(res.Observations) == 0 {
		return "rechazado sin observaciones"
	}
	parts := make([]string, 0, len(res.Observations))
	for _, o := range res.Observations {
		parts = append(parts, fmt.Sprintf("[%d] %s", o.Code, o.Message))
	}
	return strings.Join(parts, "; ")
}
