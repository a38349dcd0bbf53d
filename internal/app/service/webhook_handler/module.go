package webhook_handler

import (
	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	webhooklog "github.com/quantprep/gatekeeper/internal/app/service/webhook_log"
	"github.com/quantprep/gatekeeper/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module exposes the webhook handler via Fx, binding the concrete services
// to the interfaces the handler consumes.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, ids *identity.Service, ents *entitlement.Service, logsvc *webhooklog.Service, log *zap.SugaredLogger) *WebhookHandler {
		return NewWebhookHandler(cfg, ids, ents, logsvc, log)
	}),
)
