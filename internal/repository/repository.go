package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
)

// OrderRepository persists orders and their line items
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error)
	List(ctx context.Context, search string, limit int) ([]*domain.Order, error)
	FindByCustomer(ctx context.Context, rut, phone string, limit int) ([]*domain.Order, error)

	// TransitionStatus applies a status change and payment snapshot in one
	// conditional update: it succeeds only while the order is still mutable
	// (not paid, not cancelled). Returns false when the guard lost, which is
	// how concurrent webhook deliveries for the same order are resolved.
	TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, payment *domain.PaymentInfo) (bool, error)
}

// ProductFilter narrows product listings; zero value lists in-stock products
type ProductFilter struct {
	SKU               string
	PartNumber        string
	PrinterExternalID string
	IncludeOutOfStock bool
	Limit             int
}

// ProductRepository persists catalog products and their stock counters
type ProductRepository interface {
	Upsert(ctx context.Context, p *domain.Product) (created bool, err error)
	UpsertBatch(ctx context.Context, ps []*domain.Product) (created, updated int, err error)
	List(ctx context.Context, f ProductFilter) ([]*domain.Product, error)
	GetByExternalID(ctx context.Context, externalID string, includeOutOfStock bool) (*domain.Product, error)
	DeleteByExternalID(ctx context.Context, externalID string) error

	// PriceBySKU resolves the catalog price for a canonical or variant SKU
	PriceBySKU(ctx context.Context, sku string) (float64, error)

	// DeductStock atomically decrements the counter for sku by qty, clamped
	// at zero. Variant SKUs decrement the variant and recompute the parent
	// stock as the variant sum. Returns false when no entry matches.
	DeductStock(ctx context.Context, sku string, qty int) (bool, error)
}

// PrinterRepository persists the printer catalog
type PrinterRepository interface {
	Upsert(ctx context.Context, p *domain.Printer) (created bool, err error)
	UpsertBatch(ctx context.Context, ps []*domain.Printer) (created, updated int, err error)
	List(ctx context.Context) ([]*domain.Printer, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// SliderRepository persists homepage slider images
type SliderRepository interface {
	Upsert(ctx context.Context, s *domain.SliderImage) (created bool, err error)
	UpsertBatch(ctx context.Context, ss []*domain.SliderImage) (created, updated int, err error)
	ListActive(ctx context.Context) ([]*domain.SliderImage, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// AnnouncementRepository persists site-wide announcements
type AnnouncementRepository interface {
	Upsert(ctx context.Context, a *domain.Announcement) (created bool, err error)
	UpsertBatch(ctx context.Context, as []*domain.Announcement) (created, updated int, err error)
	ListActive(ctx context.Context) ([]*domain.Announcement, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// Repositories aggregates all repository implementations
type Repositories struct {
	Order        OrderRepository
	Product      ProductRepository
	Printer      PrinterRepository
	Slider       SliderRepository
	Announcement AnnouncementRepository
}
