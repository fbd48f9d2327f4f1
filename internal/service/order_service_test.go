package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

func newIntakeFixture() (*orderService, *fakeOrderRepo, *fakeProductRepo) {
	orderRepo := newFakeOrderRepo()
	productRepo := newFakeProductRepo(
		&domain.Product{ExternalID: "fm-1", Title: "Toner 310A negro", SKU: "T-310A", Price: 15000, Stock: 8},
		&domain.Product{
			ExternalID: "fm-2", Title: "Toner 117A", SKU: "W2070A", Price: 25000, Stock: 7,
			Variants: []domain.Variant{
				{SKU: "W2070A", Color: "negro", Stock: 4},
				{SKU: "W2071A", Color: "cyan", Stock: 3},
			},
		},
	)
	repos := &repository.Repositories{Order: orderRepo, Product: productRepo}
	return NewOrderService(repos, zap.NewNop()), orderRepo, productRepo
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Items: []CartItemInput{
			{SKU: "T-310A", Title: "Toner 310A negro", Quantity: 2},
			{SKU: "W2071A", Title: "Toner 117A cyan", Quantity: 1},
		},
		Customer: CustomerInput{
			Name:  "  Ana Rojas ",
			RUT:   "12.345.678-k",
			Phone: "+56 9 1111 2222",
			Email: "ana@example.cl",
		},
		DeliveryMethod: "Retiro",
	}
}

func TestCreatePendingOrderPricesFromCatalog(t *testing.T) {
	svc, orderRepo, _ := newIntakeFixture()

	order, err := svc.CreateOrUpdatePendingOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)

	// prices come from the catalog, not the client
	assert.Equal(t, float64(15000), order.Items[0].Price)
	assert.Equal(t, float64(30000), order.Items[0].Subtotal)
	assert.Equal(t, float64(25000), order.Items[1].Price)

	assert.Equal(t, 3, order.Totals.Items)
	assert.Equal(t, float64(55000), order.Totals.Subtotal)
	assert.Equal(t, float64(55000), order.Totals.Total)
	assert.Equal(t, "CLP", order.Totals.Currency)

	stored, err := orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Totals, stored.Totals)
}

func TestCreatePendingOrderNormalizesCustomer(t *testing.T) {
	svc, _, _ := newIntakeFixture()

	order, err := svc.CreateOrUpdatePendingOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "Ana Rojas", order.Customer.Name)
	assert.Equal(t, "12345678K", order.Customer.RUT)
	assert.Equal(t, domain.DocumentTypeBoleta, order.Customer.DocumentType)
	assert.Equal(t, domain.DeliveryMethodRetiro, order.Delivery.Method)
}

func TestCreatePendingOrderRejectsUnknownSKU(t *testing.T) {
	svc, _, _ := newIntakeFixture()

	req := validRequest()
	req.Items = append(req.Items, CartItemInput{SKU: "NOPE-1", Title: "Misterio", Quantity: 1})

	_, err := svc.CreateOrUpdatePendingOrder(context.Background(), req)
	require.Error(t, err)
	var unknownSKU *errors.ErrUnknownSKU
	require.ErrorAs(t, err, &unknownSKU)
	assert.Equal(t, "NOPE-1", unknownSKU.SKU)
}

func TestCreatePendingOrderValidation(t *testing.T) {
	svc, _, _ := newIntakeFixture()

	// incomplete customer
	req := validRequest()
	req.Customer.Phone = ""
	_, err := svc.CreateOrUpdatePendingOrder(context.Background(), req)
	var vErr *errors.ErrValidation
	require.ErrorAs(t, err, &vErr)

	// despacho requires an address
	req = validRequest()
	req.DeliveryMethod = "despacho"
	_, err = svc.CreateOrUpdatePendingOrder(context.Background(), req)
	require.ErrorAs(t, err, &vErr)

	req.Address = "Av. Providencia 1234, Santiago"
	order, err := svc.CreateOrUpdatePendingOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryMethodDespacho, order.Delivery.Method)
	assert.Equal(t, "Av. Providencia 1234, Santiago", order.Delivery.Address)

	// invalid lines are dropped; none left means a bad cart
	req = validRequest()
	req.Items = []CartItemInput{{SKU: "", Title: "sin sku", Quantity: 1}, {SKU: "T-310A", Title: "x", Quantity: 0}}
	_, err = svc.CreateOrUpdatePendingOrder(context.Background(), req)
	require.ErrorAs(t, err, &vErr)
}

func TestCreatePendingOrderReusesOrderID(t *testing.T) {
	svc, orderRepo, _ := newIntakeFixture()

	first, err := svc.CreateOrUpdatePendingOrder(context.Background(), validRequest())
	require.NoError(t, err)

	// resubmission with the same order id replaces contents, keeps the id
	req := validRequest()
	req.OrderID = first.ID.String()
	req.Items = req.Items[:1]

	second, err := svc.CreateOrUpdatePendingOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Items, 1)

	stored, _ := orderRepo.GetByID(context.Background(), first.ID)
	assert.Equal(t, float64(30000), stored.Totals.Total)
}

func TestCreatePendingOrderRefusesPaidOrder(t *testing.T) {
	svc, orderRepo, _ := newIntakeFixture()

	first, err := svc.CreateOrUpdatePendingOrder(context.Background(), validRequest())
	require.NoError(t, err)

	applied, err := orderRepo.TransitionStatus(context.Background(), first.ID, domain.OrderStatusPaid, nil)
	require.NoError(t, err)
	require.True(t, applied)

	req := validRequest()
	req.OrderID = first.ID.String()
	_, err = svc.CreateOrUpdatePendingOrder(context.Background(), req)
	var vErr *errors.ErrValidation
	require.ErrorAs(t, err, &vErr)
}

func TestCreatePendingOrderUnknownOrderIDCreatesNew(t *testing.T) {
	svc, _, _ := newIntakeFixture()

	req := validRequest()
	req.OrderID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

	order, err := svc.CreateOrUpdatePendingOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, req.OrderID, order.ID.String())
}
