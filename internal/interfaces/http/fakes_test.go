package http_test

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Repositorios en memoria para probar la API de punta a punta sin PostgreSQL.

type apiStore struct {
	docs      map[string]*entity.Document
	lines     map[string][]*entity.DocumentLine
	stock     map[string]decimal.Decimal
	seqs      map[string]int64
	customers map[string]*entity.Customer
	products  map[string]*entity.Product
}

func newAPIStore() *apiStore {
	return &apiStore{
		docs:      make(map[string]*entity.Document),
		lines:     make(map[string][]*entity.DocumentLine),
		stock:     make(map[string]decimal.Decimal),
		seqs:      make(map[string]int64),
		customers: make(map[string]*entity.Customer),
		products:  make(map[string]*entity.Product),
	}
}

type apiDocRepo struct{ s *apiStore }

func (r *apiDocRepo) Create(doc *entity.Document) error {
	for _, d := range r.s.docs {
		if d.Number == doc.Number {
			return domain.ErrDuplicate
		}
	}
	cp := *doc
	r.s.docs[doc.ID] = &cp
	return nil
}

func (r *apiDocRepo) CreateLine(line *entity.DocumentLine) error {
	cp := *line
	r.s.lines[line.DocumentID] = append(r.s.lines[line.DocumentID], &cp)
	return nil
}

func (r *apiDocRepo) Update(doc *entity.Document) error {
	if _, ok := r.s.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *doc
	r.s.docs[doc.ID] = &cp
	return nil
}

func (r *apiDocRepo) GetByID(id string) (*entity.Document, error) {
	d, ok := r.s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *apiDocRepo) GetLinesByDocumentID(documentID string) ([]*entity.DocumentLine, error) {
	var out []*entity.DocumentLine
	for _, l := range r.s.lines[documentID] {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *apiDocRepo) MaxNumberByPrefix(prefix string) (string, error) {
	var max string
	for _, d := range r.s.docs {
		if strings.HasPrefix(d.Number, prefix) && d.Number > max {
			max = d.Number
		}
	}
	return max, nil
}

func (r *apiDocRepo) ExistsByNumber(number string) (bool, error) {
	for _, d := range r.s.docs {
		if d.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *apiDocRepo) LastVoucherNumberByType(docType string) (int64, error) {
	var max int64
	for _, d := range r.s.docs {
		if d.Type == docType && d.VoucherNumber > max {
			max = d.VoucherNumber
		}
	}
	return max, nil
}

type apiStockRepo struct{ s *apiStore }

func (r *apiStockRepo) Get(productID string) (*entity.Stock, error) {
	return &entity.Stock{ProductID: productID, Quantity: r.s.stock[productID]}, nil
}

func (r *apiStockRepo) GetForUpdate(productID string) (*entity.Stock, error) {
	return r.Get(productID)
}

func (r *apiStockRepo) Upsert(stock *entity.Stock) error {
	r.s.stock[stock.ProductID] = stock.Quantity
	return nil
}

type apiSeqRepo struct{ s *apiStore }

func (r *apiSeqRepo) Get(prefix string) (*entity.NumberSequence, error) {
	return &entity.NumberSequence{Prefix: prefix, LastValue: r.s.seqs[prefix]}, nil
}

func (r *apiSeqRepo) Advance(prefix string, value int64) error {
	if value > r.s.seqs[prefix] {
		r.s.seqs[prefix] = value
	}
	return nil
}

type apiCustomerRepo struct{ s *apiStore }

func (r *apiCustomerRepo) Create(customer *entity.Customer) error {
	cp := *customer
	r.s.customers[customer.ID] = &cp
	return nil
}

func (r *apiCustomerRepo) GetByID(id string) (*entity.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type apiProductRepo struct{ s *apiStore }

func (r *apiProductRepo) Create(product *entity.Product) error {
	cp := *product
	r.s.products[product.ID] = &cp
	return nil
}

func (r *apiProductRepo) GetByID(id string) (*entity.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *apiProductRepo) GetBySKU(sku string) (*entity.Product, error) {
	for _, p := range r.s.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

type apiTxRunner struct{ s *apiStore }

func (t *apiTxRunner) RunBilling(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	stockRepo repository.StockRepository,
	seqRepo repository.SequenceRepository,
) error) error {
	return fn(&apiDocRepo{s: t.s}, &apiStockRepo{s: t.s}, &apiSeqRepo{s: t.s})
}
