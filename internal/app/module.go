package app

import (
	"time"

	"github.com/quantprep/gatekeeper/internal/app/api/server"
	"github.com/quantprep/gatekeeper/internal/app/service/checkout"
	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	"github.com/quantprep/gatekeeper/internal/app/service/statistics"
	webhookhandler "github.com/quantprep/gatekeeper/internal/app/service/webhook_handler"
	webhooklog "github.com/quantprep/gatekeeper/internal/app/service/webhook_log"
	"github.com/quantprep/gatekeeper/internal/platform/db"
	"github.com/quantprep/gatekeeper/pkg/config"
	"github.com/quantprep/gatekeeper/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	identity.Module,
	entitlement.Module,
	statistics.Module,
	webhooklog.Module,
	webhookhandler.Module,
	checkout.Module,
)
