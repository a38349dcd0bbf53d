package webhook_log

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/logctx"
	"github.com/quantprep/gatekeeper/pkg/tool"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Begin records a delivery and reports whether it is a duplicate. The
// insert is conditional on the (provider, event_id) unique index and runs
// synchronously: dedupe must be decided before any effect is applied.
func (s *Service) Begin(ctx context.Context, rec *models.WebhookEvent) (duplicate bool, err error) {
	if rec.ID == "" {
		rec.ID = tool.GenerateUUIDV7()
	}
	// Providers that omit an event id get a surrogate so the unique index
	// never swallows a later id-less delivery as a duplicate.
	if rec.EventID == "" {
		rec.EventID = rec.ID
	}
	rec.Status = models.WebhookEventStatusReceived
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record webhook delivery: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, s.log).Infow("webhook_duplicate_delivery",
			"provider", rec.Provider, "event_id", rec.EventID, "event_type", rec.EventType)
		return true, nil
	}
	return false, nil
}

// Finish asynchronously records the processing outcome on the delivery row.
func (s *Service) Finish(ctx context.Context, rec *models.WebhookEvent, status models.WebhookEventStatus, result any) {
	go func() {
		if rec == nil || rec.ID == "" {
			return
		}
		updates := map[string]any{"status": status}
		if rec.UserID != nil {
			updates["user_id"] = *rec.UserID
		}
		if result != nil {
			resBytes, err := json.Marshal(result)
			if err == nil {
				j := datatypes.JSON(resBytes)
				updates["result"] = &j
			}
		}
		if err := s.db.Model(&models.WebhookEvent{}).Where("id = ?", rec.ID).Updates(updates).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to finish webhook delivery log: %v", err)
		}
	}()
}
