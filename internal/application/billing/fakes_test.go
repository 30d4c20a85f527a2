package billing_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/afip"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Almacén en memoria compartido por los fakes. El fakeTxRunner toma una copia
// antes de ejecutar el callback y la restaura ante error, reproduciendo la
// semántica todo-o-nada de la transacción real.
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	docs      map[string]*entity.Document
	lines     map[string][]*entity.DocumentLine
	stock     map[string]decimal.Decimal
	seqs      map[string]int64
	customers map[string]*entity.Customer
	products  map[string]*entity.Product
}

func newMemStore() *memStore {
	return &memStore{
		docs:      make(map[string]*entity.Document),
		lines:     make(map[string][]*entity.DocumentLine),
		stock:     make(map[string]decimal.Decimal),
		seqs:      make(map[string]int64),
		customers: make(map[string]*entity.Customer),
		products:  make(map[string]*entity.Product),
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.docs {
		d := *v
		c.docs[k] = &d
	}
	for k, v := range s.lines {
		ls := make([]*entity.DocumentLine, len(v))
		for i, l := range v {
			cp := *l
			ls[i] = &cp
		}
		c.lines[k] = ls
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.seqs {
		c.seqs[k] = v
	}
	for k, v := range s.customers {
		cu := *v
		c.customers[k] = &cu
	}
	for k, v := range s.products {
		p := *v
		c.products[k] = &p
	}
	return c
}

func (s *memStore) replaceWith(o *memStore) {
	s.docs, s.lines, s.stock = o.docs, o.lines, o.stock
	s.seqs, s.customers, s.products = o.seqs, o.customers, o.products
}

// ── Repositorios fake ─────────────────────────────────────────────────────────

type fakeDocRepo struct{ s *memStore }

func (r *fakeDocRepo) Create(doc *entity.Document) error {
	for _, d := range r.s.docs {
		if d.Number == doc.Number {
			return domain.ErrDuplicate
		}
	}
	cp := *doc
	r.s.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) CreateLine(line *entity.DocumentLine) error {
	cp := *line
	r.s.lines[line.DocumentID] = append(r.s.lines[line.DocumentID], &cp)
	return nil
}

func (r *fakeDocRepo) Update(doc *entity.Document) error {
	if _, ok := r.s.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *doc
	r.s.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) GetByID(id string) (*entity.Document, error) {
	d, ok := r.s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDocRepo) GetLinesByDocumentID(documentID string) ([]*entity.DocumentLine, error) {
	var out []*entity.DocumentLine
	for _, l := range r.s.lines[documentID] {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeDocRepo) MaxNumberByPrefix(prefix string) (string, error) {
	var max string
	for _, d := range r.s.docs {
		if strings.HasPrefix(d.Number, prefix) && d.Number > max {
			max = d.Number
		}
	}
	return max, nil
}

func (r *fakeDocRepo) ExistsByNumber(number string) (bool, error) {
	for _, d := range r.s.docs {
		if d.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDocRepo) LastVoucherNumberByType(docType string) (int64, error) {
	var max int64
	for _, d := range r.s.docs {
		if d.Type == docType && d.VoucherNumber > max {
			max = d.VoucherNumber
		}
	}
	return max, nil
}

type fakeStockRepo struct{ s *memStore }

func (r *fakeStockRepo) Get(productID string) (*entity.Stock, error) {
	return &entity.Stock{ProductID: productID, Quantity: r.s.stock[productID]}, nil
}

func (r *fakeStockRepo) GetForUpdate(productID string) (*entity.Stock, error) {
	return r.Get(productID)
}

func (r *fakeStockRepo) Upsert(stock *entity.Stock) error {
	r.s.stock[stock.ProductID] = stock.Quantity
	return nil
}

type fakeSeqRepo struct{ s *memStore }

func (r *fakeSeqRepo) Get(prefix string) (*entity.NumberSequence, error) {
	return &entity.NumberSequence{Prefix: prefix, LastValue: r.s.seqs[prefix]}, nil
}

func (r *fakeSeqRepo) Advance(prefix string, value int64) error {
	if value > r.s.seqs[prefix] {
		r.s.seqs[prefix] = value
	}
	return nil
}

type fakeCustomerRepo struct{ s *memStore }

func (r *fakeCustomerRepo) Create(customer *entity.Customer) error {
	cp := *customer
	r.s.customers[customer.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) GetByID(id string) (*entity.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type fakeProductRepo struct{ s *memStore }

func (r *fakeProductRepo) Create(product *entity.Product) error {
	cp := *product
	r.s.products[product.ID] = &cp
	return nil
}

func (r *fakeProductRepo) GetByID(id string) (*entity.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetBySKU(sku string) (*entity.Product, error) {
	for _, p := range r.s.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeTxRunner ejecuta el callback sobre el almacén y lo restaura ante error.
type fakeTxRunner struct{ s *memStore }

func (t *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	stockRepo repository.StockRepository,
	seqRepo repository.SequenceRepository,
) error) error {
	snapshot := t.s.clone()
	err := fn(&fakeDocRepo{s: t.s}, &fakeStockRepo{s: t.s}, &fakeSeqRepo{s: t.s})
	if err != nil {
		t.s.replaceWith(snapshot)
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// fakeAuthority simula el cliente AFIP con numeración secuencial por tipo.
// ──────────────────────────────────────────────────────────────────────────────

type fakeAuthority struct {
	last         map[int]int64
	callErr      error // error de transporte en cualquier operación
	reject       bool  // rechazo de negocio en Authorize
	rejectCode   int
	requests     []*afip.VoucherRequest
	lastRequests int
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{last: make(map[int]int64), rejectCode: 10018}
}

func (f *fakeAuthority) ServerStatus(ctx context.Context) (*afip.ServiceStatus, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &afip.ServiceStatus{AppServer: "OK", DbServer: "OK", AuthServer: "OK"}, nil
}

func (f *fakeAuthority) LastVoucherNumber(ctx context.Context, salesPoint, voucherType int) (int64, error) {
	f.lastRequests++
	if f.callErr != nil {
		return 0, f.callErr
	}
	return f.last[voucherType], nil
}

func (f *fakeAuthority) Authorize(ctx context.Context, req *afip.VoucherRequest) (*afip.VoucherResult, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.requests = append(f.requests, req)
	if f.reject {
		res := &afip.VoucherResult{
			Approved:     false,
			Observations: []afip.Observation{{Code: f.rejectCode, Message: "observado"}},
		}
		if f.rejectCode == 10015 || f.rejectCode == 10048 {
			return res, fmt.Errorf("%w: observación %d", domain.ErrWrongDocumentClass, f.rejectCode)
		}
		return res, fmt.Errorf("%w: observación %d", domain.ErrAuthorityRejected, f.rejectCode)
	}
	f.last[req.VoucherType] = req.VoucherFrom
	return &afip.VoucherResult{
		Approved:      true,
		CAE:           fmt.Sprintf("7%013d", req.VoucherFrom),
		CAEDue:        time.Now().AddDate(0, 0, 10),
		VoucherNumber: req.VoucherFrom,
	}, nil
}

var _ billing.AuthorityClient = (*fakeAuthority)(nil)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}
