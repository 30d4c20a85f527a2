package billing

import (
	"context"
	"strconv"
	"unicode"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	domainbilling "github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/Facturacion-api/pkg/afip"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// voucherTypeCodes tipo interno -> código de comprobante AFIP.
var voucherTypeCodes = map[string]int{
	entity.DocTypeFacturaA:     pkgafip.VoucherFacturaA,
	entity.DocTypeFacturaB:     pkgafip.VoucherFacturaB,
	entity.DocTypeFacturaC:     pkgafip.VoucherFacturaC,
	entity.DocTypeNotaCreditoA: pkgafip.VoucherNotaCreditoA,
	entity.DocTypeNotaCreditoB: pkgafip.VoucherNotaCreditoB,
	entity.DocTypeNotaCreditoC: pkgafip.VoucherNotaCreditoC,
	entity.DocTypeNotaDebitoA:  pkgafip.VoucherNotaDebitoA,
	entity.DocTypeNotaDebitoB:  pkgafip.VoucherNotaDebitoB,
	entity.DocTypeNotaDebitoC:  pkgafip.VoucherNotaDebitoC,
	entity.DocTypeRemito:       pkgafip.VoucherRemito,
}

// VoucherTypeCode devuelve el código externo del tipo de comprobante (0 si no existe).
func VoucherTypeCode(docType string) int {
	return voucherTypeCodes[docType]
}

// isClassA las familias clase A exigen receptor responsable inscripto con CUIT.
func isClassA(docType string) bool {
	return docType == entity.DocTypeFacturaA ||
		docType == entity.DocTypeNotaCreditoA ||
		docType == entity.DocTypeNotaDebitoA
}

// ValidateBuyerForType valida la compatibilidad entre la condición fiscal del
// receptor y la clase de comprobante pedida. Se invoca antes de cualquier
// efecto: un receptor incompatible aborta la emisión completa.
func ValidateBuyerForType(buyer *entity.Customer, docType string) error {
	if isClassA(docType) {
		if buyer.TaxCondition != entity.TaxConditionResponsableInscripto {
			return domain.ErrInvalidInput
		}
		if err := pkgafip.ValidateCUIT(buyer.CUIT); err != nil {
			return domain.ErrInvalidInput
		}
		return nil
	}
	// Clase B/C y remito: si el receptor declara CUIT, debe ser válido.
	if buyer.CUIT != "" {
		if err := pkgafip.ValidateCUIT(buyer.CUIT); err != nil {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

// resolveReceiver determina el tipo y número de documento del receptor según
// su condición fiscal cruzada con la clase de comprobante: clase A siempre
// CUIT; consumidor final DNI o "sin identificar" si no aporta ninguno.
func resolveReceiver(buyer *entity.Customer, docType string) (kind int, number int64, err error) {
	if isClassA(docType) || buyer.RequiresCUIT() {
		n, err := digitsToInt(buyer.CUIT)
		if err != nil {
			return 0, 0, domain.ErrInvalidInput
		}
		return pkgafip.DocKindCUIT, n, nil
	}
	if buyer.CUIT != "" {
		if n, err := digitsToInt(buyer.CUIT); err == nil {
			return pkgafip.DocKindCUIT, n, nil
		}
	}
	if buyer.DNI != "" {
		if n, err := digitsToInt(buyer.DNI); err == nil {
			return pkgafip.DocKindDNI, n, nil
		}
	}
	return pkgafip.DocKindNinguno, 0, nil
}

func digitsToInt(s string) (int64, error) {
	var digits []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return 0, domain.ErrInvalidInput
	}
	return strconv.ParseInt(string(digits), 10, 64)
}

// totalTolerance tolerancia de redondeo entre el total persistido y la suma
// de los desgloses por línea (un centavo).
var totalTolerance = decimal.NewFromFloat(0.01)

// AuthorizationWorkflow orquesta la solicitud de CAE de un comprobante:
// mapeo de tipo externo, resolución del documento del receptor, próximo número
// de comprobante, desglose de IVA y vínculo al comprobante asociado (NC/ND).
type AuthorizationWorkflow struct {
	client     AuthorityClient
	docRepo    repository.DocumentRepository
	salesPoint int
	log        *logger.Logger
}

// NewAuthorizationWorkflow construye el workflow.
func NewAuthorizationWorkflow(client AuthorityClient, docRepo repository.DocumentRepository, salesPoint int, log *logger.Logger) *AuthorizationWorkflow {
	return &AuthorizationWorkflow{client: client, docRepo: docRepo, salesPoint: salesPoint, log: log}
}

// Authorize solicita el CAE para un comprobante ya persistido. Es una llamada
// bloqueante única; el caller acota el tiempo vía el context (timeout 30 s).
// Un rechazo de AFIP llega como domain.ErrAuthorityRejected (o
// domain.ErrWrongDocumentClass) junto con el resultado con observaciones.
func (w *AuthorizationWorkflow) Authorize(ctx context.Context, doc *entity.Document, lines []*entity.DocumentLine, buyer *entity.Customer) (*afip.VoucherResult, error) {
	typeCode := VoucherTypeCode(doc.Type)
	if typeCode == 0 || doc.Type == entity.DocTypeRemito {
		return nil, domain.ErrInvalidInput
	}

	docKind, docNumber, err := resolveReceiver(buyer, doc.Type)
	if err != nil {
		return nil, err
	}

	last, err := w.client.LastVoucherNumber(ctx, w.salesPoint, typeCode)
	if err != nil {
		return nil, err
	}
	next := last + 1

	// Desglose neto/IVA por línea; el bruto debe coincidir con el total ya
	// persistido dentro de la tolerancia de redondeo. Un desvío es un error de
	// validación, nunca se corrige en silencio.
	taxLines := make([]domainbilling.Line, len(lines))
	for i, l := range lines {
		taxLines[i] = domainbilling.Line{Gross: l.Subtotal, RatePercent: l.TaxRate}
	}
	totals := domainbilling.Totalize(taxLines)
	if totals.Gross.Sub(doc.GrandTotal).Abs().GreaterThan(totalTolerance) {
		return nil, domain.ErrTotalMismatch
	}
	vat := make([]afip.VATItem, 0, len(totals.Rates))
	for _, r := range totals.Rates {
		vat = append(vat, afip.VATItem{
			Code:   pkgafip.VATRateCode(r.RatePercent),
			Base:   r.Net,
			Amount: r.Tax,
		})
	}

	req := &afip.VoucherRequest{
		SalesPoint:  w.salesPoint,
		VoucherType: typeCode,
		Concept:     pkgafip.ConceptGoods,
		DocKind:     docKind,
		DocNumber:   docNumber,
		VoucherFrom: next,
		VoucherTo:   next,
		IssueDate:   doc.Date.Format("20060102"),
		NetTotal:    totals.Net,
		TaxTotal:    totals.Tax,
		GrandTotal:  totals.Gross,
		VAT:         vat,
	}

	// NC/ND: bloque de comprobante asociado obligatorio; omitirlo provoca
	// rechazo de AFIP.
	if entity.IsCreditNote(doc.Type) || entity.IsDebitNote(doc.Type) {
		assoc, err := w.resolveAssociated(doc)
		if err != nil {
			return nil, err
		}
		req.Associated = []afip.AssociatedVoucher{assoc}
	}

	res, err := w.client.Authorize(ctx, req)
	if err != nil {
		return res, err
	}
	w.log.Info().
		Str("document_id", doc.ID).
		Str("type", doc.Type).
		Int64("voucher_number", res.VoucherNumber).
		Str("cae", res.CAE).
		Msg("comprobante autorizado")
	return res, nil
}

// resolveAssociated arma la referencia al comprobante original de una NC/ND:
// código externo de la familia de factura correspondiente, punto de venta y
// número de comprobante del original.
func (w *AuthorizationWorkflow) resolveAssociated(doc *entity.Document) (afip.AssociatedVoucher, error) {
	if doc.AssociatedDocID != "" {
		orig, err := w.docRepo.GetByID(doc.AssociatedDocID)
		if err != nil {
			return afip.AssociatedVoucher{}, err
		}
		if orig == nil || orig.VoucherNumber == 0 {
			return afip.AssociatedVoucher{}, domain.ErrInvalidInput
		}
		return afip.AssociatedVoucher{
			VoucherType: VoucherTypeCode(orig.Type),
			SalesPoint:  w.salesPoint,
			Number:      orig.VoucherNumber,
		}, nil
	}

	// Sin referencia explícita: último comprobante conocido de la familia de
	// factura correspondiente.
	invoiceType := entity.AssociatedInvoiceTypeFor(doc.Type)
	if invoiceType == "" {
		return afip.AssociatedVoucher{}, domain.ErrInvalidInput
	}
	last, err := w.docRepo.LastVoucherNumberByType(invoiceType)
	if err != nil {
		return afip.AssociatedVoucher{}, err
	}
	if last == 0 {
		return afip.AssociatedVoucher{}, domain.ErrInvalidInput
	}
	return afip.AssociatedVoucher{
		VoucherType: VoucherTypeCode(invoiceType),
		SalesPoint:  w.salesPoint,
		Number:      last,
	}, nil
}
