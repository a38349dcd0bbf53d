package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/logctx"
	"github.com/quantprep/gatekeeper/pkg/tool"
	"github.com/quantprep/gatekeeper/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownEventType is returned when an event cannot be mapped to an
// outcome. Callers acknowledge the delivery but apply no change.
var ErrUnknownEventType = errors.New("unknown event type")

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Get returns the entitlement record for a user, or nil when none exists
// (treated as free by callers).
func (s *Service) Get(ctx context.Context, userID string) (*models.Entitlement, error) {
	var e models.Entitlement
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlement: %w", err)
	}
	return &e, nil
}

// EnsureFree creates the free entitlement row at identity bootstrap. A
// concurrent or earlier creation wins; existing rows are never touched.
func (s *Service) EnsureFree(ctx context.Context, userID string) error {
	e := models.Entitlement{
		ID:     tool.GenerateUUIDV7(),
		UserID: userID,
		Plan:   types.PlanFree,
		Status: types.EntitlementStatusNone,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&e)
	if res.Error != nil {
		return fmt.Errorf("failed to ensure entitlement: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.saveLog(ctx, userID, types.EntitlementChangeReasonBootstrap, "", nil, &e)
	}
	return nil
}

// ApplyEvent applies a verified provider event to a user's entitlement. The
// whole read-modify-write runs in a transaction holding a row lock, and an
// event whose timestamp is older than the last applied one is skipped.
// Returns whether the entitlement was written.
func (s *Service) ApplyEvent(ctx context.Context, userID string, ev *Event) (bool, error) {
	outcome, ok := MapEventType(ev.Provider, ev.Type)
	if !ok {
		return false, ErrUnknownEventType
	}
	reason := ev.Reason
	if reason == "" {
		reason = types.EntitlementChangeReasonWebhook
	}

	var applied bool
	var before, after *models.Entitlement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Entitlement
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e = models.Entitlement{
				ID:     tool.GenerateUUIDV7(),
				UserID: userID,
				Plan:   types.PlanFree,
				Status: types.EntitlementStatusNone,
			}
		} else if err != nil {
			return fmt.Errorf("failed to lock entitlement: %w", err)
		} else {
			cp := e
			before = &cp
		}

		// Only strictly older events are stale. Provider timestamps have
		// second resolution, so distinct events can share one; replays are
		// fenced by the (provider, event_id) dedupe, not here.
		if e.EventTime != nil && ev.OccurredAt.Before(*e.EventTime) {
			logctx.FromCtx(ctx, s.log).Warnw("entitlement_event_stale",
				"user_id", userID, "event_type", ev.Type,
				"event_time", ev.OccurredAt, "fence", *e.EventTime)
			return nil
		}

		e.Plan = outcome.Plan
		e.Status = outcome.Status
		occurred := ev.OccurredAt
		e.EventTime = &occurred
		if ev.PaymentID != "" {
			e.ProviderPaymentID = &ev.PaymentID
		}
		if ev.SubscriptionID != "" {
			e.ProviderSubscriptionID = &ev.SubscriptionID
		}
		if ev.CustomerID != "" {
			e.ProviderCustomerID = &ev.CustomerID
		}

		if err := tx.Save(&e).Error; err != nil {
			return fmt.Errorf("failed to save entitlement: %w", err)
		}

		if outcome.RecordsPayment && ev.PaymentID != "" {
			if err := s.recordPayment(ctx, tx, userID, ev); err != nil {
				return err
			}
		}

		applied = true
		cp := e
		after = &cp
		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		s.saveLog(ctx, userID, reason, "", before, after)
	}
	return applied, nil
}

// recordPayment writes the write-once payment audit row. The conditional
// create on the provider payment id makes re-deliveries idempotent.
func (s *Service) recordPayment(ctx context.Context, tx *gorm.DB, userID string, ev *Event) error {
	paidAt := ev.OccurredAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	p := models.Payment{
		ProviderPaymentID: ev.PaymentID,
		Provider:          ev.Provider,
		UserID:            userID,
		Email:             ev.Email,
		Amount:            ev.Amount,
		Currency:          ev.Currency,
		PaidAt:            paidAt,
	}
	if ev.OrderID != "" {
		p.ProviderOrderID = &ev.OrderID
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return fmt.Errorf("failed to record payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, s.log).Infow("payment_already_recorded", "payment_id", ev.PaymentID)
	}
	return nil
}

// AdminSet grants or revokes premium directly. Admin writes always apply
// and advance the event fence so a late provider event cannot resurrect the
// previous state.
func (s *Service) AdminSet(ctx context.Context, userID string, premium bool, operatorID string) (*models.Entitlement, error) {
	var before, after *models.Entitlement
	eventType := "revoke"
	reason := types.EntitlementChangeReasonAdminRevoke
	if premium {
		eventType = "grant"
		reason = types.EntitlementChangeReasonAdminGrant
	}
	outcome, ok := MapEventType(types.PaymentProviderInner, eventType)
	if !ok {
		return nil, ErrUnknownEventType
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Entitlement
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e = models.Entitlement{ID: tool.GenerateUUIDV7(), UserID: userID}
		} else if err != nil {
			return fmt.Errorf("failed to lock entitlement: %w", err)
		} else {
			cp := e
			before = &cp
		}

		e.Plan = outcome.Plan
		e.Status = outcome.Status
		now := time.Now()
		e.EventTime = &now

		if err := tx.Save(&e).Error; err != nil {
			return fmt.Errorf("failed to save entitlement: %w", err)
		}
		cp := e
		after = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.saveLog(ctx, userID, reason, operatorID, before, after)
	return after, nil
}

// saveLog writes the change audit asynchronously; errors are logged but not
// returned.
func (s *Service) saveLog(ctx context.Context, userID string, reason types.EntitlementChangeReason, operatorID string, before, after *models.Entitlement) {
	go func() {
		rec := &models.EntitlementLog{
			ID:         tool.GenerateUUIDV7(),
			UserID:     userID,
			Reason:     reason,
			OperatorID: operatorID,
			Before:     datatypes.NewJSONType(before),
			After:      datatypes.NewJSONType(after),
			Extra:      datatypes.JSONMap{},
		}
		if err := s.db.Save(rec).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save entitlement log: %v", err)
		}
	}()
}
