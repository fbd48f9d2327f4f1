package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a priced line in an order
type OrderItem struct {
	SKU      string
	Title    string
	Price    float64 // CLP, unit price from the catalog
	Quantity int
	Subtotal float64
}

// OrderTotals aggregates the order's line items
type OrderTotals struct {
	Items    int // total units
	Subtotal float64
	Total    float64
	Currency string
}

// Customer holds the buyer's billing identity
type Customer struct {
	Name         string
	RUT          string
	Phone        string
	Email        string
	DocumentType DocumentType
}

// Delivery holds the fulfillment choice; Address is set only for despacho
type Delivery struct {
	Method  DeliveryMethod
	Address string
}

// PaymentInfo is the snapshot of the provider's latest word on an order.
// Overwritten on each reconciliation event.
type PaymentInfo struct {
	Provider  string
	PaymentID string
	Status    string
	Raw       map[string]interface{} // JSONB
}

// Order is a persisted purchase. Its ID (as string) doubles as the
// external_reference handed to the payment processor.
type Order struct {
	ID        uuid.UUID
	Status    OrderStatus
	Items     []OrderItem
	Totals    OrderTotals
	Customer  Customer
	Delivery  Delivery
	Payment   *PaymentInfo
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalReference is the cross-reference sent to the payment processor
func (o *Order) ExternalReference() string {
	return o.ID.String()
}

// Variant is a purchasable sub-entry of a product with its own stock counter
type Variant struct {
	SKU   string
	Color string
	Stock int
}

// Compatible records a printer model a consumable works with
type Compatible struct {
	SKU      string
	Brand    string
	Printer  string
	Category string
}

// Product is a catalog entry synced from the upstream catalog by external id.
// Single-SKU entries carry an authoritative top-level Stock; variant-bearing
// entries derive Stock as the sum of variant stocks.
type Product struct {
	ID          int64
	ExternalID  string // upstream id, upsert key
	Title       string
	Model       string
	PartNumber  string
	Brand       string
	Price       float64 // CLP
	SKU         string  // canonical sku
	Stock       int
	Description string
	Variants    []Variant
	Compatibles []Compatible
	Photos      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasVariants reports whether stock lives on the variants
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// Printer is a hardware catalog entry synced by external id
type Printer struct {
	ID         int64
	ExternalID string
	Brand      string
	Model      string
	Type       string
	Condition  string
	Duplex     bool
	Network    bool
	Price      float64
	Voltage    string
	Scanner    bool
	Speed      string
	Toner      string
	Drum       string
	Yield      string
	Warranty   string
	Stock      int
	Photo      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SliderImage is a homepage carousel entry
type SliderImage struct {
	ID         int64
	ExternalID string
	ImageURL   string
	Title      string
	Caption    string
	LinkURL    string
	Position   int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Announcement is a site-wide banner message with an optional display window
type Announcement struct {
	ID         int64
	ExternalID string
	Text       string
	StartsAt   *time.Time
	EndsAt     *time.Time
	IsActive   bool
	Priority   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
