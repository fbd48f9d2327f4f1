package domain

// OrderStatus represents the payment lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further status change is allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// CanTransitionTo checks if a status transition is valid.
// paid is absorbing; a failed order may flip back to pending when the
// provider reports a retried payment attempt as in-process.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusPaid ||
			newStatus == OrderStatusFailed ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusPending
	case OrderStatusFailed:
		return newStatus == OrderStatusPending ||
			newStatus == OrderStatusFailed
	case OrderStatusPaid, OrderStatusCancelled:
		return false
	default:
		return false
	}
}

// DocumentType is the Chilean tax document requested by the customer
type DocumentType string

const (
	DocumentTypeBoleta  DocumentType = "boleta"
	DocumentTypeFactura DocumentType = "factura"
)

// IsValid checks if the document type is valid
func (d DocumentType) IsValid() bool {
	return d == DocumentTypeBoleta || d == DocumentTypeFactura
}

// DeliveryMethod is how the customer receives the order
type DeliveryMethod string

const (
	DeliveryMethodRetiro   DeliveryMethod = "retiro"
	DeliveryMethodDespacho DeliveryMethod = "despacho"
)

// IsValid checks if the delivery method is valid
func (m DeliveryMethod) IsValid() bool {
	return m == DeliveryMethodRetiro || m == DeliveryMethodDespacho
}
