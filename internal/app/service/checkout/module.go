package checkout

import (
	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	"github.com/quantprep/gatekeeper/internal/platform/razorpay"
	"github.com/quantprep/gatekeeper/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module exposes the checkout manager via Fx.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, ids *identity.Service, ents *entitlement.Service, log *zap.SugaredLogger) Manager {
		client := razorpay.NewClient(razorpay.ClientOptions{
			APIBase:   cfg.Razorpay.APIBase,
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
		})
		return NewManager(cfg, client, ids, ents, log)
	}),
)
