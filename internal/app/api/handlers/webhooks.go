package handlers

import (
	"errors"
	"net/http"

	wh "github.com/quantprep/gatekeeper/internal/app/service/webhook_handler"
	"github.com/quantprep/gatekeeper/pkg/logctx"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/gin-gonic/gin"
)

// webhookEndpoint adapts the handler's outcome to the status codes payment
// providers key their retry policy on: 401 is final, 5xx retries, 200
// acknowledges everything else.
func webhookEndpoint(h *wh.WebhookHandler, provider types.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, h.Logger)
		log.Infow("webhook_received", "provider", provider)

		err := h.HandleDelivery(c, provider)
		switch {
		case err == nil:
			c.String(http.StatusOK, "OK")
		case errors.Is(err, wh.ErrUnauthorized):
			log.Warnw("webhook_rejected", "provider", provider, "error", err.Error())
			c.String(http.StatusUnauthorized, "Unauthorized")
		default:
			log.Errorw("webhook_failed", "provider", provider, "error", err.Error())
			c.String(http.StatusInternalServerError, "Internal error")
		}
	}
}

// @Summary      Razorpay Webhook
// @Description  Handles Razorpay payment events signed with x-razorpay-signature (hex HMAC-SHA256 of the raw body).
// @Tags         Webhook
// @Accept       json
// @Produce      plain
// @Success      200  {string}  string  "OK"
// @Failure      401  {string}  string  "Unauthorized"
// @Router       /api/v1/webhooks/razorpay [post]
func ApiRazorpayWebhook(h *wh.WebhookHandler) gin.HandlerFunc {
	return webhookEndpoint(h, types.PaymentProviderRazorpay)
}

// @Summary      Dodo Webhook
// @Description  Handles Dodo subscription events signed per the Standard Webhooks convention (webhook-id/-timestamp/-signature headers).
// @Tags         Webhook
// @Accept       json
// @Produce      plain
// @Success      200  {string}  string  "OK"
// @Failure      401  {string}  string  "Unauthorized"
// @Router       /api/v1/webhooks/dodo [post]
func ApiDodoWebhook(h *wh.WebhookHandler) gin.HandlerFunc {
	return webhookEndpoint(h, types.PaymentProviderDodo)
}

func RegisterWebhookRoutes(r gin.IRouter, h *wh.WebhookHandler) {
	r.POST("/razorpay", ApiRazorpayWebhook(h))
	r.POST("/dodo", ApiDodoWebhook(h))
}
