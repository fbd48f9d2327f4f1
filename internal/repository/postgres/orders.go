package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `
	id, status, source,
	customer_name, customer_rut, customer_phone, customer_email, document_type,
	delivery_method, delivery_address,
	items_count, subtotal, total, currency,
	payment_provider, payment_id, payment_status, payment_raw,
	created_at, updated_at
`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			id, status, source,
			customer_name, customer_rut, customer_phone, customer_email, document_type,
			delivery_method, delivery_address,
			items_count, subtotal, total, currency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, query,
		order.ID,
		order.Status,
		order.Source,
		order.Customer.Name,
		order.Customer.RUT,
		order.Customer.Phone,
		order.Customer.Email,
		order.Customer.DocumentType,
		order.Delivery.Method,
		order.Delivery.Address,
		order.Totals.Items,
		order.Totals.Subtotal,
		order.Totals.Total,
		order.Totals.Currency,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert order", zap.Error(err))
		return err
	}

	if err := insertOrderItems(ctx, tx, order.ID, order.Items); err != nil {
		r.logger.Error("Failed to insert order items", zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE orders SET
			status = $2, source = $3,
			customer_name = $4, customer_rut = $5, customer_phone = $6,
			customer_email = $7, document_type = $8,
			delivery_method = $9, delivery_address = $10,
			items_count = $11, subtotal = $12, total = $13, currency = $14,
			updated_at = now()
		WHERE id = $1 AND status <> 'paid'
	`

	res, err := tx.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.Source,
		order.Customer.Name,
		order.Customer.RUT,
		order.Customer.Phone,
		order.Customer.Email,
		order.Customer.DocumentType,
		order.Delivery.Method,
		order.Delivery.Address,
		order.Totals.Items,
		order.Totals.Subtotal,
		order.Totals.Total,
		order.Totals.Currency,
	)
	if err != nil {
		r.logger.Error("Failed to update order", zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: order.ID.String()}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return err
	}
	if err := insertOrderItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}

	return tx.Commit()
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, items []domain.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, position, sku, title, price, qty, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, query,
			orderID, i, item.SKU, item.Title, item.Price, item.Quantity, item.Subtotal,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *orderRepository) GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error) {
	// The order id is what we hand MercadoPago as external_reference.
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, &errors.ErrNotFound{Resource: "order", ID: ref}
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errors.ErrNotFound{Resource: "order"}
		}
		r.logger.Error("Failed to get order", zap.Error(err))
		return nil, err
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, title, price, qty, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to query order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.SKU, &it.Title, &it.Price, &it.Quantity, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepository) List(ctx context.Context, search string, limit int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}

	if search != "" {
		if id, err := uuid.Parse(search); err == nil {
			query += ` WHERE id = $1`
			args = append(args, id)
		} else {
			query += `
				WHERE customer_rut ILIKE $1
				   OR customer_name ILIKE $1
				   OR EXISTS (
						SELECT 1 FROM order_items oi
						WHERE oi.order_id = orders.id AND oi.sku ILIKE $1
				   )`
			args = append(args, "%"+search+"%")
		}
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)
	return r.list(ctx, query, args...)
}

func (r *orderRepository) FindByCustomer(ctx context.Context, rut, phone string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}

	if rut != "" {
		args = append(args, rut)
		query += fmt.Sprintf(` AND customer_rut = $%d`, len(args))
	}
	if phone != "" {
		// match by trailing digits so country prefixes don't matter
		args = append(args, "%"+phone)
		query += fmt.Sprintf(` AND customer_phone LIKE $%d`, len(args))
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)
	return r.list(ctx, query, args...)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.getItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, payment *domain.PaymentInfo) (bool, error) {
	var (
		provider, paymentID, paymentStatus sql.NullString
		raw                                []byte
	)
	if payment != nil {
		provider = sql.NullString{String: payment.Provider, Valid: true}
		paymentID = sql.NullString{String: payment.PaymentID, Valid: true}
		paymentStatus = sql.NullString{String: payment.Status, Valid: true}
		if payment.Raw != nil {
			var err error
			raw, err = json.Marshal(payment.Raw)
			if err != nil {
				return false, fmt.Errorf("failed to marshal payment payload: %w", err)
			}
		}
	}

	// Single conditional update: the guard on status closes the race between
	// two concurrent deliveries for the same order. Exactly one wins.
	query := `
		UPDATE orders SET
			status = $2,
			payment_provider = COALESCE($3, payment_provider),
			payment_id = COALESCE($4, payment_id),
			payment_status = COALESCE($5, payment_status),
			payment_raw = COALESCE($6, payment_raw),
			updated_at = now()
		WHERE id = $1 AND status NOT IN ('paid', 'cancelled')
	`

	res, err := r.db.ExecContext(ctx, query, id, to, provider, paymentID, paymentStatus, nullBytes(raw))
	if err != nil {
		r.logger.Error("Failed to transition order status",
			zap.String("order_id", id.String()),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order                              domain.Order
		provider, paymentID, paymentStatus sql.NullString
		raw                                []byte
	)

	err := row.Scan(
		&order.ID,
		&order.Status,
		&order.Source,
		&order.Customer.Name,
		&order.Customer.RUT,
		&order.Customer.Phone,
		&order.Customer.Email,
		&order.Customer.DocumentType,
		&order.Delivery.Method,
		&order.Delivery.Address,
		&order.Totals.Items,
		&order.Totals.Subtotal,
		&order.Totals.Total,
		&order.Totals.Currency,
		&provider,
		&paymentID,
		&paymentStatus,
		&raw,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if provider.Valid || paymentID.Valid {
		order.Payment = &domain.PaymentInfo{
			Provider:  provider.String,
			PaymentID: paymentID.String,
			Status:    paymentStatus.String,
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &order.Payment.Raw)
		}
	}

	return &order, nil
}
