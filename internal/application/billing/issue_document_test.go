package billing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

const (
	testSalesPoint = 3

	customerFinalID = "11111111-1111-1111-1111-111111111111"
	customerRIID    = "22222222-2222-2222-2222-222222222222"
	productID       = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	productID105    = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

// issueFixture arma el caso de uso de emisión sobre fakes con datos de base:
// un consumidor final con DNI, un responsable inscripto con CUIT válido y dos
// productos con stock (21% y 10.5%).
type issueFixture struct {
	store     *memStore
	authority *fakeAuthority
	uc        *billing.IssueDocumentUseCase
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	store := newMemStore()
	store.customers[customerFinalID] = &entity.Customer{
		ID:           customerFinalID,
		Name:         "María López",
		TaxCondition: entity.TaxConditionConsumidorFinal,
		DNI:          "28456789",
	}
	store.customers[customerRIID] = &entity.Customer{
		ID:           customerRIID,
		Name:         "Distribuidora Norte SA",
		TaxCondition: entity.TaxConditionResponsableInscripto,
		CUIT:         "20123456786",
	}
	store.products[productID] = &entity.Product{
		ID:      productID,
		SKU:     "NB-001",
		Name:    "Notebook",
		Price:   decimal.NewFromInt(605),
		TaxRate: decimal.NewFromInt(21),
	}
	store.products[productID105] = &entity.Product{
		ID:      productID105,
		SKU:     "PAN-050",
		Name:    "Harina",
		Price:   decimal.RequireFromString("442"),
		TaxRate: decimal.RequireFromString("10.5"),
	}
	store.stock[productID] = decimal.NewFromInt(10)
	store.stock[productID105] = decimal.NewFromInt(100)

	authority := newFakeAuthority()
	docRepo := &fakeDocRepo{s: store}
	workflow := billing.NewAuthorizationWorkflow(authority, docRepo, testSalesPoint, testLogger())
	uc := billing.NewIssueDocumentUseCase(
		&fakeTxRunner{s: store},
		&fakeCustomerRepo{s: store},
		&fakeProductRepo{s: store},
		docRepo,
		workflow,
		testLogger(),
	)
	return &issueFixture{store: store, authority: authority, uc: uc}
}

func issueRequest(customerID, docType string, qty int64) dto.IssueDocumentRequest {
	return dto.IssueDocumentRequest{
		CustomerID: customerID,
		Type:       docType,
		Items: []dto.DocumentItemRequest{
			{ProductID: productID, Quantity: decimal.NewFromInt(qty)},
		},
	}
}

func TestIssue_DescuentaStockYAutoriza(t *testing.T) {
	fx := newIssueFixture(t)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 2))
	require.NoError(t, err, "la emisión con stock suficiente debe prosperar")
	require.NotNil(t, resp)

	// 2 × 605 = 1210 bruto: 1000 neto + 210 de IVA al 21%
	assert.Equal(t, "FB-00000001", resp.Number, "el primer comprobante de la familia arranca en 1")
	assert.True(t, resp.GrandTotal.Equal(decimal.NewFromInt(1210)), "total bruto esperado 1210, fue %s", resp.GrandTotal)
	assert.True(t, resp.NetTotal.Equal(decimal.NewFromInt(1000)), "neto esperado 1000, fue %s", resp.NetTotal)
	assert.True(t, resp.TaxTotal.Equal(decimal.NewFromInt(210)), "IVA esperado 210, fue %s", resp.TaxTotal)
	assert.Equal(t, entity.StatusAuthorized, resp.Status)
	assert.NotEmpty(t, resp.CAE, "un comprobante autorizado debe tener CAE")
	assert.Equal(t, int64(1), resp.VoucherNumber)

	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(8)), "el stock debe quedar en 8")

	// El comprobante autorizado queda persistido
	persisted := fx.store.docs[resp.ID]
	require.NotNil(t, persisted)
	assert.Equal(t, entity.StatusAuthorized, persisted.Status)
	assert.Equal(t, resp.CAE, persisted.CAE)
}

func TestIssue_NumeracionSecuencial(t *testing.T) {
	fx := newIssueFixture(t)

	first, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 1))
	require.NoError(t, err)
	second, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 1))
	require.NoError(t, err)

	assert.Equal(t, "FB-00000001", first.Number)
	assert.Equal(t, "FB-00000002", second.Number)
	assert.Equal(t, int64(2), second.VoucherNumber, "el número AFIP también debe avanzar")
}

func TestIssue_StockInsuficienteNoMuta(t *testing.T) {
	fx := newIssueFixture(t)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 11))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, resp)

	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(10)), "el stock no debe cambiar")
	assert.Empty(t, fx.store.docs, "no debe persistirse ningún comprobante")
	assert.Zero(t, fx.store.seqs["FB-"], "la secuencia no debe avanzar")
}

func TestIssue_AutoridadNoDisponibleQuedaPending(t *testing.T) {
	fx := newIssueFixture(t)
	fx.authority.callErr = fmt.Errorf("%w: conexión rechazada", domain.ErrAuthorityUnavailable)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 2))
	require.NoError(t, err, "autoridad caída no es un error de emisión")
	require.NotNil(t, resp)

	assert.Equal(t, entity.StatusPending, resp.Status)
	assert.Empty(t, resp.CAE)
	// La venta quedó comprometida: stock descontado y número asignado
	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(8)))
	assert.Equal(t, "FB-00000001", resp.Number)
}

func TestIssue_RechazoPersisteObservaciones(t *testing.T) {
	fx := newIssueFixture(t)
	fx.authority.reject = true

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 2))
	require.ErrorIs(t, err, domain.ErrAuthorityRejected)
	require.NotNil(t, resp, "el comprobante rechazado igual se devuelve")

	assert.Equal(t, entity.StatusPending, resp.Status)
	assert.NotEmpty(t, resp.AuthorityErrors, "las observaciones del rechazo deben registrarse")

	persisted := fx.store.docs[resp.ID]
	require.NotNil(t, persisted)
	assert.NotEmpty(t, persisted.AuthorityErrors)
	assert.Empty(t, persisted.CAE)
}

func TestIssue_RechazoClaseIncorrecta(t *testing.T) {
	fx := newIssueFixture(t)
	fx.authority.reject = true
	fx.authority.rejectCode = 10015

	_, err := fx.uc.Issue(context.Background(), issueRequest(customerRIID, entity.DocTypeFacturaA, 1))
	require.ErrorIs(t, err, domain.ErrWrongDocumentClass)
}

func TestIssue_RemitoNoPasaPorAFIP(t *testing.T) {
	fx := newIssueFixture(t)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeRemito, 3))
	require.NoError(t, err)

	assert.Equal(t, "RM-00000001", resp.Number)
	assert.Equal(t, entity.StatusPending, resp.Status)
	assert.Empty(t, resp.CAE)
	assert.Empty(t, fx.authority.requests, "el remito nunca se envía a autorizar")
	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(7)), "el remito también descuenta stock")
}

func TestIssue_FacturaAExigeResponsableInscripto(t *testing.T) {
	fx := newIssueFixture(t)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaA, 1))
	require.ErrorIs(t, err, domain.ErrInvalidInput, "clase A a consumidor final debe abortar antes de todo efecto")
	assert.Nil(t, resp)
	assert.Empty(t, fx.store.docs)
	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(10)))
}

func TestIssue_PrecioCeroTomaElDelProducto(t *testing.T) {
	fx := newIssueFixture(t)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 1))
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.NewFromInt(605)), "precio unitario cero toma el precio de lista")
}

func TestIssue_ValidacionesDeEntrada(t *testing.T) {
	fx := newIssueFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   dto.IssueDocumentRequest
	}{
		{"sin cliente", dto.IssueDocumentRequest{Type: entity.DocTypeFacturaB, Items: issueRequest(customerFinalID, entity.DocTypeFacturaB, 1).Items}},
		{"sin items", dto.IssueDocumentRequest{CustomerID: customerFinalID, Type: entity.DocTypeFacturaB}},
		{"tipo desconocido", issueRequest(customerFinalID, "FACTURA_X", 1)},
		{"cantidad cero", dto.IssueDocumentRequest{
			CustomerID: customerFinalID,
			Type:       entity.DocTypeFacturaB,
			Items:      []dto.DocumentItemRequest{{ProductID: productID, Quantity: decimal.Zero}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.uc.Issue(ctx, tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

// racingTxRunner simula a otra sesión ganando la carrera por el número: las
// primeras altas chocan con el índice único aunque la verificación previa no
// haya visto el conflicto.
type racingTxRunner struct {
	fakeTxRunner
	collisions int
}

type racingDocRepo struct {
	fakeDocRepo
	t *racingTxRunner
}

func (r *racingDocRepo) Create(doc *entity.Document) error {
	if r.t.collisions > 0 {
		r.t.collisions--
		return domain.ErrDuplicate
	}
	return r.fakeDocRepo.Create(doc)
}

func (t *racingTxRunner) RunBilling(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	stockRepo repository.StockRepository,
	seqRepo repository.SequenceRepository,
) error) error {
	snapshot := t.s.clone()
	err := fn(&racingDocRepo{fakeDocRepo: fakeDocRepo{s: t.s}, t: t}, &fakeStockRepo{s: t.s}, &fakeSeqRepo{s: t.s})
	if err != nil {
		t.s.replaceWith(snapshot)
	}
	return err
}

func newRacingFixture(t *testing.T, collisions int) *issueFixture {
	t.Helper()
	fx := newIssueFixture(t)
	runner := &racingTxRunner{fakeTxRunner: fakeTxRunner{s: fx.store}, collisions: collisions}
	docRepo := &fakeDocRepo{s: fx.store}
	workflow := billing.NewAuthorizationWorkflow(fx.authority, docRepo, testSalesPoint, testLogger())
	fx.uc = billing.NewIssueDocumentUseCase(
		runner,
		&fakeCustomerRepo{s: fx.store},
		&fakeProductRepo{s: fx.store},
		docRepo,
		workflow,
		testLogger(),
	)
	return fx
}

func TestIssue_ReintentaTrasColisionDeNumero(t *testing.T) {
	fx := newRacingFixture(t, 1)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 2))
	require.NoError(t, err, "una colisión transitoria se absorbe con un reintento")
	assert.Equal(t, "FB-00000001", resp.Number)
	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(8)), "el stock se descuenta una sola vez")
	assert.Len(t, fx.store.docs, 1)
}

func TestIssue_ColisionPersistenteFalla(t *testing.T) {
	fx := newRacingFixture(t, 10)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 2))
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Nil(t, resp)
	assert.True(t, fx.store.stock[productID].Equal(decimal.NewFromInt(10)), "tras agotar reintentos no queda ningún efecto")
	assert.Empty(t, fx.store.docs)
}

func TestReauthorize_AutorizaUnPendiente(t *testing.T) {
	fx := newIssueFixture(t)
	fx.authority.callErr = fmt.Errorf("%w: conexión rechazada", domain.ErrAuthorityUnavailable)

	resp, err := fx.uc.Issue(context.Background(), issueRequest(customerFinalID, entity.DocTypeFacturaB, 2))
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, resp.Status)

	// La autoridad se recupera y el reintento manual completa la autorización
	fx.authority.callErr = nil
	again, err := fx.uc.Reauthorize(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, again.Status)
	assert.NotEmpty(t, again.CAE)

	// Un comprobante ya autorizado no admite otro reintento
	_, err = fx.uc.Reauthorize(context.Background(), resp.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
