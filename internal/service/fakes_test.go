package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("duplicate order id")
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[order.ID]
	if !ok || existing.Status == domain.OrderStatusPaid {
		return &errors.ErrNotFound{Resource: "order", ID: order.ID.String()}
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, &errors.ErrNotFound{Resource: "order", ID: ref}
	}
	return r.GetByID(ctx, id)
}

func (r *fakeOrderRepo) List(_ context.Context, _ string, _ int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByCustomer(_ context.Context, rut, _ string, _ int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.Customer.RUT == rut {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// TransitionStatus mirrors the conditional UPDATE of the postgres
// implementation: it applies only while the order is still mutable.
func (r *fakeOrderRepo) TransitionStatus(_ context.Context, id uuid.UUID, to domain.OrderStatus, payment *domain.PaymentInfo) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status == domain.OrderStatusPaid || order.Status == domain.OrderStatusCancelled {
		return false, nil
	}
	order.Status = to
	if payment != nil {
		cp := *payment
		order.Payment = &cp
	}
	return true, nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products []*domain.Product
	deducted []string // skus, in deduction order
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	return &fakeProductRepo{products: products}
}

func (r *fakeProductRepo) Upsert(_ context.Context, p *domain.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.products {
		if existing.ExternalID == p.ExternalID {
			r.products[i] = p
			return false, nil
		}
	}
	r.products = append(r.products, p)
	return true, nil
}

func (r *fakeProductRepo) UpsertBatch(ctx context.Context, ps []*domain.Product) (int, int, error) {
	var created, updated int
	for _, p := range ps {
		wasCreated, err := r.Upsert(ctx, p)
		if err != nil {
			return 0, 0, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func (r *fakeProductRepo) List(_ context.Context, _ repository.ProductFilter) ([]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Product(nil), r.products...), nil
}

func (r *fakeProductRepo) GetByExternalID(_ context.Context, externalID string, _ bool) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "product", ID: externalID}
}

func (r *fakeProductRepo) DeleteByExternalID(_ context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.products {
		if p.ExternalID == externalID {
			r.products = append(r.products[:i], r.products[i+1:]...)
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "product", ID: externalID}
}

func (r *fakeProductRepo) PriceBySKU(_ context.Context, sku string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			return p.Price, nil
		}
		for _, v := range p.Variants {
			if v.SKU == sku {
				return p.Price, nil
			}
		}
	}
	return 0, &errors.ErrUnknownSKU{SKU: sku}
}

// DeductStock mirrors the postgres contract: clamped at zero, variants
// first, parent stock recomputed as the variant sum.
func (r *fakeProductRepo) DeductStock(_ context.Context, sku string, qty int) (bool, error) {
	if sku == "" || qty <= 0 {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		for i := range p.Variants {
			if p.Variants[i].SKU != sku {
				continue
			}
			p.Variants[i].Stock -= qty
			if p.Variants[i].Stock < 0 {
				p.Variants[i].Stock = 0
			}
			total := 0
			for _, v := range p.Variants {
				total += v.Stock
			}
			p.Stock = total
			r.deducted = append(r.deducted, sku)
			return true, nil
		}
	}

	for _, p := range r.products {
		if p.SKU != sku || p.HasVariants() {
			continue
		}
		p.Stock -= qty
		if p.Stock < 0 {
			p.Stock = 0
		}
		r.deducted = append(r.deducted, sku)
		return true, nil
	}
	return false, nil
}

type fakePayments struct {
	mu       sync.Mutex
	payments map[string]*mercadopago.Payment
	err      error
	calls    int
}

func (f *fakePayments) GetPayment(_ context.Context, paymentID string) (*mercadopago.Payment, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	payment, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("mercadopago API error: status 404")
	}
	return payment, nil
}
