package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/config"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/service"
)

// Reconciler applies one verified webhook event to an order
type Reconciler interface {
	ProcessEvent(ctx context.Context, event *mercadopago.UnverifiedEvent) (*service.ReconcileOutcome, error)
}

// HandlePaymentWebhook handles POST /api/webhooks/mercadopago.
//
// Webhooks carry no x-api-key; authenticity comes from the x-signature HMAC.
// Once signature and body check out, every business outcome answers 200 so
// the provider stops redelivering; only a failure before any order mutation
// answers non-200 to request a retry.
func HandlePaymentWebhook(cfg *config.Config, reconciler Reconciler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := cfg.MercadoPago.WebhookSecret
		if secret == "" {
			logger.Error("Webhook secret not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook no configurado"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo inválido"})
			return
		}

		if !mercadopago.VerifySignature(c.GetHeader("x-signature"), secret, body) {
			logger.Warn("Webhook signature rejected",
				zap.String("remote_addr", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no autorizado"})
			return
		}

		var event mercadopago.UnverifiedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo inválido"})
			return
		}

		outcome, err := reconciler.ProcessEvent(c.Request.Context(), &event)
		if err != nil {
			// Nothing was persisted yet; a non-200 makes the provider retry.
			logger.Error("Webhook processing failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "error procesando el pago"})
			return
		}

		resp := gin.H{"ok": true}
		if outcome.Ignored {
			resp["ignored"] = true
		}
		if outcome.NoRef {
			resp["noRef"] = true
		}
		if outcome.NoOrder {
			resp["noOrder"] = true
		}
		if outcome.AlreadyPaid {
			resp["alreadyPaid"] = true
		}
		if outcome.Mismatch {
			resp["mismatch"] = true
		}
		c.JSON(http.StatusOK, resp)
	}
}
