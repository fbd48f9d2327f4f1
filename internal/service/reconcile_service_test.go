package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
)

func paymentEvent(id string) *mercadopago.UnverifiedEvent {
	var event mercadopago.UnverifiedEvent
	payload := fmt.Sprintf(`{"type":"payment","data":{"id":"%s"}}`, id)
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		panic(err)
	}
	return &event
}

func newReconcileFixture(t *testing.T) (*reconcileService, *fakeOrderRepo, *fakeProductRepo, *fakePayments, *domain.Order) {
	t.Helper()

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

	order := &domain.Order{
		ID:     uuid.New(),
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{SKU: "T-310A", Title: "Toner 310A negro", Price: 15000, Quantity: 1, Subtotal: 15000},
		},
		Totals:   domain.OrderTotals{Items: 1, Subtotal: 15000, Total: 15000, Currency: "CLP"},
		Customer: domain.Customer{Name: "Ana", RUT: "12345678K", Phone: "+56911112222", DocumentType: domain.DocumentTypeBoleta},
		Delivery: domain.Delivery{Method: domain.DeliveryMethodRetiro},
	}
	require.NoError(t, orderRepo.Create(context.Background(), order))

	payments := &fakePayments{payments: map[string]*mercadopago.Payment{}}

	repos := &repository.Repositories{Order: orderRepo, Product: productRepo}
	stock := NewStockService(repos, zap.NewNop())
	svc := NewReconcileService(repos, payments, stock, zap.NewNop())

	return svc, orderRepo, productRepo, payments, order
}

func approvedPayment(ref string, amount float64) *mercadopago.Payment {
	return &mercadopago.Payment{
		ID:                json.Number("555"),
		Status:            mercadopago.StatusApproved,
		ExternalReference: ref,
		TransactionAmount: amount,
		Raw:               map[string]interface{}{"status": "approved"},
	}
}

func TestProcessEventApprovedMarksPaidAndDeductsStock(t *testing.T) {
	svc, orderRepo, productRepo, payments, order := newReconcileFixture(t)
	payments.payments["555"] = approvedPayment(order.ID.String(), 15000)

	outcome, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, outcome.Status)
	assert.False(t, outcome.AlreadyPaid)
	assert.False(t, outcome.Mismatch)

	stored, err := orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)
	require.NotNil(t, stored.Payment)
	assert.Equal(t, "mercadopago", stored.Payment.Provider)
	assert.Equal(t, "555", stored.Payment.PaymentID)
	assert.Equal(t, "approved", stored.Payment.Status)

	p, _ := productRepo.GetByExternalID(context.Background(), "fm-1", true)
	assert.Equal(t, 7, p.Stock)
}

func TestProcessEventRedeliveryIsIdempotent(t *testing.T) {
	svc, orderRepo, productRepo, payments, order := newReconcileFixture(t)
	payments.payments["555"] = approvedPayment(order.ID.String(), 15000)

	for i := 0; i < 5; i++ {
		_, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
		require.NoError(t, err)
	}

	// exactly one paid transition and one deduction pass
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)
	assert.Equal(t, []string{"T-310A"}, productRepo.deducted)

	p, _ := productRepo.GetByExternalID(context.Background(), "fm-1", true)
	assert.Equal(t, 7, p.Stock)
}

func TestProcessEventRedeliveryShortCircuits(t *testing.T) {
	svc, _, _, payments, order := newReconcileFixture(t)
	payments.payments["555"] = approvedPayment(order.ID.String(), 15000)

	_, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)

	outcome, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyPaid)
	assert.Equal(t, domain.OrderStatusPaid, outcome.Status)
}

func TestProcessEventAmountMismatchFailsOrder(t *testing.T) {
	svc, orderRepo, productRepo, payments, order := newReconcileFixture(t)
	payments.payments["555"] = approvedPayment(order.ID.String(), 14000)

	outcome, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)
	assert.True(t, outcome.Mismatch)
	assert.Equal(t, domain.OrderStatusFailed, outcome.Status)

	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusFailed, stored.Status)

	// stock untouched on mismatch
	assert.Empty(t, productRepo.deducted)
	p, _ := productRepo.GetByExternalID(context.Background(), "fm-1", true)
	assert.Equal(t, 8, p.Stock)
}

func TestProcessEventRejectedFailsOrder(t *testing.T) {
	svc, orderRepo, _, payments, order := newReconcileFixture(t)
	payments.payments["555"] = &mercadopago.Payment{
		ID:                json.Number("555"),
		Status:            mercadopago.StatusRejected,
		ExternalReference: order.ID.String(),
		TransactionAmount: 15000,
	}

	outcome, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, outcome.Status)

	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusFailed, stored.Status)
	assert.Equal(t, "rejected", stored.Payment.Status)
}

func TestProcessEventPendingKeepsOrderPending(t *testing.T) {
	svc, orderRepo, _, payments, order := newReconcileFixture(t)
	payments.payments["555"] = &mercadopago.Payment{
		ID:                json.Number("555"),
		Status:            mercadopago.StatusInProcess,
		ExternalReference: order.ID.String(),
		TransactionAmount: 15000,
	}

	outcome, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, outcome.Status)

	// the latest provider-side status is captured on the snapshot
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Equal(t, "in_process", stored.Payment.Status)
}

func TestProcessEventFailedThenApprovedRetry(t *testing.T) {
	svc, orderRepo, _, payments, order := newReconcileFixture(t)

	payments.payments["555"] = &mercadopago.Payment{
		ID: json.Number("555"), Status: mercadopago.StatusRejected,
		ExternalReference: order.ID.String(), TransactionAmount: 15000,
	}
	_, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.NoError(t, err)

	// a second attempt comes in as pending, then approves
	payments.payments["556"] = &mercadopago.Payment{
		ID: json.Number("556"), Status: mercadopago.StatusPending,
		ExternalReference: order.ID.String(), TransactionAmount: 15000,
	}
	_, err = svc.ProcessEvent(context.Background(), paymentEvent("556"))
	require.NoError(t, err)
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)

	payments.payments["556"].Status = mercadopago.StatusApproved
	_, err = svc.ProcessEvent(context.Background(), paymentEvent("556"))
	require.NoError(t, err)
	stored, _ = orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)
	assert.Equal(t, "556", stored.Payment.PaymentID)
}

func TestProcessEventIgnoresNonPaymentEvents(t *testing.T) {
	svc, _, _, payments, _ := newReconcileFixture(t)

	var event mercadopago.UnverifiedEvent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"merchant_order","data":{"id":"9"}}`), &event))

	outcome, err := svc.ProcessEvent(context.Background(), &event)
	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
	// no payment lookup happens for ignored events
	assert.Zero(t, payments.calls)

	outcome, err = svc.ProcessEvent(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
}

func TestProcessEventUnknownReference(t *testing.T) {
	svc, _, _, payments, _ := newReconcileFixture(t)

	payments.payments["1"] = &mercadopago.Payment{
		ID: json.Number("1"), Status: mercadopago.StatusApproved, TransactionAmount: 100,
	}
	outcome, err := svc.ProcessEvent(context.Background(), paymentEvent("1"))
	require.NoError(t, err)
	assert.True(t, outcome.NoRef)

	payments.payments["2"] = &mercadopago.Payment{
		ID: json.Number("2"), Status: mercadopago.StatusApproved,
		ExternalReference: uuid.NewString(), TransactionAmount: 100,
	}
	outcome, err = svc.ProcessEvent(context.Background(), paymentEvent("2"))
	require.NoError(t, err)
	assert.True(t, outcome.NoOrder)
}

func TestProcessEventLookupFailureIsRetryable(t *testing.T) {
	svc, orderRepo, _, payments, order := newReconcileFixture(t)
	payments.err = fmt.Errorf("connection timeout")

	_, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
	require.Error(t, err)

	// nothing was mutated before the failure
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Nil(t, stored.Payment)
}

func TestProcessEventConcurrentApprovedDeliveries(t *testing.T) {
	svc, orderRepo, productRepo, payments, order := newReconcileFixture(t)
	payments.payments["555"] = approvedPayment(order.ID.String(), 15000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessEvent(context.Background(), paymentEvent("555"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// exactly one delivery wins the conditional transition, so the
	// deduction pass runs once no matter how many raced
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)
	assert.Equal(t, []string{"T-310A"}, productRepo.deducted)

	p, _ := productRepo.GetByExternalID(context.Background(), "fm-1", true)
	assert.Equal(t, 7, p.Stock)
}
