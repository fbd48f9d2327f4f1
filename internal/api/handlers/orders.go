package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/service"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

// OrderIntake normalizes and persists a cart submission as a pending order
type OrderIntake interface {
	CreateOrUpdatePendingOrder(ctx context.Context, req service.CreateOrderRequest) (*domain.Order, error)
}

// OrderItemResponse is a line item in order responses
type OrderItemResponse struct {
	SKU      string  `json:"sku,omitempty"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"qty"`
	Subtotal float64 `json:"subtotal"`
}

// OrderTotalsResponse mirrors domain.OrderTotals
type OrderTotalsResponse struct {
	Items    int     `json:"items"`
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// PaymentResponse is the payment snapshot exposed on order reads
type PaymentResponse struct {
	Provider string `json:"provider,omitempty"`
	ID       string `json:"id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// HandleCreateOrder handles POST /api/orders
func HandleCreateOrder(intake OrderIntake, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		order, err := intake.CreateOrUpdatePendingOrder(c.Request.Context(), req)
		if err != nil {
			switch e := err.(type) {
			case *errors.ErrValidation:
				c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
			case *errors.ErrUnknownSKU:
				c.JSON(http.StatusBadRequest, gin.H{"error": e.Error()})
			default:
				logger.Error("Failed to create order", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "error creando la orden"})
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"orderId": order.ID.String(),
			"status":  order.Status,
			"totals": OrderTotalsResponse{
				Items:    order.Totals.Items,
				Subtotal: order.Totals.Subtotal,
				Total:    order.Totals.Total,
				Currency: order.Totals.Currency,
			},
			"customer": gin.H{
				"name":         order.Customer.Name,
				"rut":          order.Customer.RUT,
				"phone":        order.Customer.Phone,
				"email":        order.Customer.Email,
				"documentType": order.Customer.DocumentType,
			},
			"delivery": gin.H{
				"method":  order.Delivery.Method,
				"address": order.Delivery.Address,
			},
		})
	}
}

// HandleGetOrder handles GET /api/orders/:id (public, read only)
func HandleGetOrder(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), orderID)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no encontrada"})
				return
			}
			logger.Error("Failed to get order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
			return
		}

		payment := PaymentResponse{}
		if order.Payment != nil {
			payment.Provider = order.Payment.Provider
			payment.ID = order.Payment.PaymentID
			payment.Status = order.Payment.Status
		}

		c.JSON(http.StatusOK, gin.H{
			"id":        order.ID.String(),
			"status":    order.Status,
			"currency":  order.Totals.Currency,
			"total":     order.Totals.Total,
			"lines":     itemResponses(order.Items),
			"payment":   payment,
			"createdAt": order.CreatedAt,
			"updatedAt": order.UpdatedAt,
		})
	}
}

// HandleListOrders handles GET /api/orders (admin)
func HandleListOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))

		orders, err := repos.Order.List(c.Request.Context(), strings.TrimSpace(c.Query("search")), limit)
		if err != nil {
			logger.Error("Failed to list orders", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error obteniendo órdenes"})
			return
		}

		payload := make([]gin.H, 0, len(orders))
		for _, order := range orders {
			payload = append(payload, gin.H{
				"id":           order.ID.String(),
				"status":       order.Status,
				"totals":       order.Totals,
				"customer":     order.Customer,
				"delivery":     order.Delivery,
				"documentType": order.Customer.DocumentType,
				"items":        itemResponses(order.Items),
				"createdAt":    order.CreatedAt,
				"updatedAt":    order.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, payload)
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// HandleTracking handles GET /api/public/tracking?rut=&phone= (public)
func HandleTracking(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rut := strings.ToUpper(strings.NewReplacer(".", "", "-", "").Replace(strings.TrimSpace(c.Query("rut"))))
		phone := nonDigits.ReplaceAllString(c.Query("phone"), "")

		if rut == "" && phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rut o phone requerido"})
			return
		}

		orders, err := repos.Order.FindByCustomer(c.Request.Context(), rut, phone, 10)
		if err != nil {
			logger.Error("Failed to find orders for tracking", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
			return
		}

		payload := make([]gin.H, 0, len(orders))
		for _, order := range orders {
			entry := gin.H{
				"id":        order.ID.String(),
				"status":    order.Status,
				"currency":  order.Totals.Currency,
				"total":     order.Totals.Total,
				"createdAt": order.CreatedAt,
				"lines":     trackingLines(order.Items),
			}
			if order.Payment != nil {
				entry["paymentStatus"] = order.Payment.Status
			}
			payload = append(payload, entry)
		}
		c.JSON(http.StatusOK, gin.H{"orders": payload})
	}
}

func itemResponses(items []domain.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItemResponse{
			SKU:      it.SKU,
			Title:    it.Title,
			Price:    it.Price,
			Quantity: it.Quantity,
			Subtotal: it.Subtotal,
		})
	}
	return out
}

func trackingLines(items []domain.OrderItem) []gin.H {
	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"sku":   it.SKU,
			"qty":   it.Quantity,
			"title": it.Title,
		})
	}
	return out
}
