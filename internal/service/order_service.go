package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

type orderService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, logger *zap.Logger) *orderService {
	return &orderService{
		repos:  repos,
		logger: logger,
	}
}

// CreateOrUpdatePendingOrder normalizes a cart submission into a priced,
// persisted pending order. Line prices come from the catalog by SKU; the
// client-supplied price, if any, is ignored. The resulting order id is the
// external_reference handed to MercadoPago.
func (s *orderService) CreateOrUpdatePendingOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	customer, err := normalizeCustomer(req.Customer)
	if err != nil {
		return nil, err
	}

	delivery, err := normalizeDelivery(req.DeliveryMethod, req.Address)
	if err != nil {
		return nil, err
	}

	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &errors.ErrValidation{Message: "items requeridos"}
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "web"
	}

	order := &domain.Order{
		Status:   domain.OrderStatusPending,
		Items:    items,
		Totals:   computeTotals(items),
		Customer: customer,
		Delivery: delivery,
		Source:   source,
	}

	// A resubmitted checkout reuses its order id so the external reference
	// stays stable across payment attempts.
	if req.OrderID != "" {
		if id, parseErr := uuid.Parse(req.OrderID); parseErr == nil {
			existing, getErr := s.repos.Order.GetByID(ctx, id)
			if getErr == nil {
				if existing.Status.IsTerminal() {
					return nil, &errors.ErrValidation{Message: "la orden ya fue pagada"}
				}
				order.ID = existing.ID
				if err := s.repos.Order.Update(ctx, order); err != nil {
					return nil, err
				}
				s.logger.Info("Order updated",
					zap.String("order_id", order.ID.String()),
					zap.Float64("total", order.Totals.Total),
				)
				return order, nil
			}
			if _, notFound := getErr.(*errors.ErrNotFound); !notFound {
				return nil, getErr
			}
		}
	}

	order.ID = uuid.New()
	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.Int("items", order.Totals.Items),
		zap.Float64("total", order.Totals.Total),
	)
	return order, nil
}

func (s *orderService) priceItems(ctx context.Context, inputs []CartItemInput) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		sku := strings.TrimSpace(in.SKU)
		title := strings.TrimSpace(in.Title)
		if sku == "" || title == "" || in.Quantity <= 0 {
			continue
		}

		price, err := s.repos.Product.PriceBySKU(ctx, sku)
		if err != nil {
			if _, ok := err.(*errors.ErrUnknownSKU); ok {
				return nil, err
			}
			return nil, err
		}

		items = append(items, domain.OrderItem{
			SKU:      sku,
			Title:    title,
			Price:    price,
			Quantity: in.Quantity,
			Subtotal: price * float64(in.Quantity),
		})
	}
	return items, nil
}

func computeTotals(items []domain.OrderItem) domain.OrderTotals {
	totals := domain.OrderTotals{Currency: "CLP"}
	for _, it := range items {
		totals.Items += it.Quantity
		totals.Subtotal += it.Subtotal
	}
	totals.Total = totals.Subtotal
	return totals
}

func normalizeCustomer(in CustomerInput) (domain.Customer, error) {
	rut := strings.ToUpper(strings.TrimSpace(in.RUT))
	rut = strings.NewReplacer(".", "", "-", "").Replace(rut)

	customer := domain.Customer{
		Name:         strings.TrimSpace(in.Name),
		RUT:          rut,
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		DocumentType: domain.DocumentType(strings.ToLower(strings.TrimSpace(in.DocumentType))),
	}
	if !customer.DocumentType.IsValid() {
		customer.DocumentType = domain.DocumentTypeBoleta
	}

	if customer.Name == "" || customer.RUT == "" || customer.Phone == "" {
		return domain.Customer{}, &errors.ErrValidation{Message: "datos del cliente incompletos"}
	}
	return customer, nil
}

func normalizeDelivery(methodRaw, addressRaw string) (domain.Delivery, error) {
	method := domain.DeliveryMethod(strings.ToLower(strings.TrimSpace(methodRaw)))
	if !method.IsValid() {
		method = domain.DeliveryMethodRetiro
	}

	address := ""
	if method == domain.DeliveryMethodDespacho {
		address = strings.TrimSpace(addressRaw)
		if address == "" {
			return domain.Delivery{}, &errors.ErrValidation{Message: "dirección requerida para despacho"}
		}
	}

	return domain.Delivery{Method: method, Address: address}, nil
}
