package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/config"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

// PreferenceRequest asks for a checkout on an existing pending order
type PreferenceRequest struct {
	OrderID  string                `json:"orderId" binding:"required"`
	BackURLs *mercadopago.BackURLs `json:"back_urls,omitempty"`
}

// HandleCreatePreference handles POST /api/pay/mercadopago/preference.
// Checkout lines come from the persisted, catalog-priced order, never from
// the request, and the order id travels as the external reference so the
// webhook can find its way back.
func HandleCreatePreference(cfg *config.Config, repos *repository.Repositories, client *mercadopago.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PreferenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderId requerido"})
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderId inválido"})
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), orderID)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "orden no encontrada"})
				return
			}
			logger.Error("Failed to get order for preference", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
			return
		}

		if order.Status != domain.OrderStatusPending {
			c.JSON(http.StatusConflict, gin.H{"error": "la orden no está pendiente de pago"})
			return
		}

		items := make([]mercadopago.PreferenceItem, 0, len(order.Items))
		for _, it := range order.Items {
			items = append(items, mercadopago.PreferenceItem{
				Title:      it.Title,
				Quantity:   it.Quantity,
				UnitPrice:  it.Price,
				CurrencyID: order.Totals.Currency,
				SKU:        it.SKU,
			})
		}

		backURLs := req.BackURLs
		if backURLs == nil {
			backURLs = &mercadopago.BackURLs{
				Success: cfg.PublicURLs.Site + "/pago/exito",
				Pending: cfg.PublicURLs.Site + "/pago/pendiente",
				Failure: cfg.PublicURLs.Site + "/pago/error",
			}
		}

		pref, err := client.CreatePreference(c.Request.Context(), mercadopago.PreferenceRequest{
			Items:             items,
			ExternalReference: order.ExternalReference(),
			AutoReturn:        "approved",
			BackURLs:          backURLs,
			NotificationURL:   cfg.PublicURLs.Backend + "/api/webhooks/mercadopago",
		})
		if err != nil {
			logger.Error("Failed to create preference",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": "error creando preferencia de pago"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"redirectUrl":        pref.RedirectURL(),
			"preferenceId":       pref.ID,
			"external_reference": order.ExternalReference(),
		})
	}
}
