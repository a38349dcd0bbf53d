package webhook_handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	models "github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/config"
	"github.com/quantprep/gatekeeper/pkg/logctx"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// EmailResolver maps a provider-supplied email to a user id.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, email string) (string, error)
}

// EntitlementApplier applies a normalized event to the entitlement store.
type EntitlementApplier interface {
	ApplyEvent(ctx context.Context, userID string, ev *entitlement.Event) (bool, error)
}

// DeliveryLog records webhook deliveries and enforces event-id dedupe.
type DeliveryLog interface {
	Begin(ctx context.Context, rec *models.WebhookEvent) (bool, error)
	Finish(ctx context.Context, rec *models.WebhookEvent, status models.WebhookEventStatus, result any)
}

type WebhookHandler struct {
	cfg          *config.Config
	resolver     EmailResolver
	entitlements EntitlementApplier
	deliveries   DeliveryLog
	Logger       *zap.SugaredLogger
}

func NewWebhookHandler(cfg *config.Config, resolver EmailResolver, entitlements EntitlementApplier, deliveries DeliveryLog, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, resolver: resolver, entitlements: entitlements, deliveries: deliveries, Logger: log}
}

// HandleDelivery processes one webhook request. A returned error wrapping
// ErrUnauthorized means nothing was recorded; any other error is a
// downstream failure the provider should retry. A nil return acknowledges
// the delivery, including ignored and duplicate ones.
func (h *WebhookHandler) HandleDelivery(c *gin.Context, provider types.PaymentProvider) error {
	var parser EventParser
	var err error
	switch provider {
	case types.PaymentProviderRazorpay:
		parser, err = NewRazorpayParser(h.cfg.Razorpay.WebhookSecret, c, time.Now())
	case types.PaymentProviderDodo:
		parser, err = NewDodoParser(h.cfg.Dodo.WebhookSecret, c, time.Now())
	default:
		return fmt.Errorf("unsupported provider: %s", provider)
	}
	if err != nil {
		return err
	}

	if err := parser.Verify(); err != nil {
		return err
	}

	ctx := c.Request.Context()
	log := logctx.FromGin(c, h.Logger)

	var traceID string
	if v, ok := c.Get("traceID"); ok {
		if s, ok2 := v.(string); ok2 {
			traceID = s
		}
	}

	rec := &models.WebhookEvent{
		Provider:  provider,
		EventID:   parser.EventID(),
		EventType: parser.EventType(),
		TraceID:   traceID,
		Payload:   datatypes.JSON(parser.Payload()),
	}

	duplicate, err := h.deliveries.Begin(ctx, rec)
	if err != nil {
		return err
	}
	if duplicate {
		return nil
	}

	ev, err := parser.Event()
	if err != nil {
		// The delivery was authenticated, so a malformed payload is
		// acknowledged to stop retries, but recorded as failed.
		log.Errorw("webhook_payload_malformed", "provider", provider, "error", err.Error())
		h.deliveries.Finish(ctx, rec, models.WebhookEventStatusHandleFailed, map[string]any{"error": err.Error()})
		return nil
	}
	if ev == nil {
		log.Infow("webhook_nothing_to_apply", "provider", provider, "event_type", rec.EventType)
		h.deliveries.Finish(ctx, rec, models.WebhookEventStatusSkipped, nil)
		return nil
	}

	uid, err := h.resolver.ResolveEmail(ctx, ev.Email)
	if errors.Is(err, identity.ErrNotIndexed) {
		// Success to the provider: retrying cannot make an unknown email
		// resolvable.
		log.Warnw("webhook_email_unresolved", "provider", provider, "email", ev.Email)
		h.deliveries.Finish(ctx, rec, models.WebhookEventStatusSkipped, map[string]any{"reason": "email_unresolved"})
		return nil
	}
	if err != nil {
		h.deliveries.Finish(ctx, rec, models.WebhookEventStatusHandleFailed, map[string]any{"error": err.Error()})
		return err
	}
	rec.UserID = lo.ToPtr(uid)

	applied, err := h.entitlements.ApplyEvent(ctx, uid, ev)
	if errors.Is(err, entitlement.ErrUnknownEventType) {
		log.Infow("webhook_event_ignored", "provider", provider, "event_type", ev.Type)
		h.deliveries.Finish(ctx, rec, models.WebhookEventStatusSkipped, map[string]any{"reason": "unknown_event_type"})
		return nil
	}
	if err != nil {
		log.Errorw("webhook_apply_failed", "provider", provider, "user_id", uid, "error", err.Error())
		h.deliveries.Finish(ctx, rec, models.WebhookEventStatusHandleFailed, map[string]any{"error": err.Error()})
		return err
	}

	log.Infow("webhook_handled", "provider", provider, "event_type", ev.Type, "user_id", uid, "applied", applied)
	h.deliveries.Finish(ctx, rec, models.WebhookEventStatusHandled, map[string]any{"applied": applied})
	return nil
}
