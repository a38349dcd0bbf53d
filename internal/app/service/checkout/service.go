package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/platform/razorpay"
	"github.com/quantprep/gatekeeper/pkg/config"
	"github.com/quantprep/gatekeeper/pkg/logctx"
	"github.com/quantprep/gatekeeper/pkg/types"

	"go.uber.org/zap"
)

// ErrInvalidSignature is returned when the checkout callback signature does
// not match. The entitlement is left untouched.
var ErrInvalidSignature = errors.New("invalid payment signature")

type OrderRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type OrderResult struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	// Key is the public key id the frontend passes to the provider widget.
	Key string `json:"key"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	Email     string `json:"email"`
}

// Manager drives the synchronous checkout flow.
type Manager interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)
	// VerifyPayment validates the provider callback signature and, on
	// success, activates premium and records the payment.
	VerifyPayment(ctx context.Context, req *VerifyRequest) error
}

// OrderClient is the slice of the provider REST client the manager needs.
type OrderClient interface {
	CreateOrder(ctx context.Context, req *razorpay.CreateOrderRequest) (*razorpay.Order, error)
}

// EmailResolver and EntitlementApplier mirror the webhook handler's
// dependencies; the synchronous flow reuses the same reconciliation path.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, email string) (string, error)
}

type EntitlementApplier interface {
	ApplyEvent(ctx context.Context, userID string, ev *entitlement.Event) (bool, error)
}

type service struct {
	cfg          *config.Config
	orders       OrderClient
	resolver     EmailResolver
	entitlements EntitlementApplier
	log          *zap.SugaredLogger
	now          func() time.Time
}

func NewManager(cfg *config.Config, orders OrderClient, resolver EmailResolver, entitlements EntitlementApplier, log *zap.SugaredLogger) Manager {
	return &service{cfg: cfg, orders: orders, resolver: resolver, entitlements: entitlements, log: log, now: time.Now}
}

func (s *service) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	if req == nil || req.UserID == "" || req.Email == "" {
		return nil, fmt.Errorf("user_id and email are required")
	}

	receiptUID := req.UserID
	if len(receiptUID) > 20 {
		receiptUID = receiptUID[:20]
	}

	order, err := s.orders.CreateOrder(ctx, &razorpay.CreateOrderRequest{
		Amount:   s.cfg.Razorpay.OrderAmount,
		Currency: s.cfg.Razorpay.OrderCurrency,
		Receipt:  fmt.Sprintf("cfa_%s_%d", receiptUID, s.now().UnixMilli()),
		Notes:    map[string]string{"uid": req.UserID, "email": req.Email},
	})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("checkout_order_failed", "user_id", req.UserID, "error", err.Error())
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return &OrderResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Key:      s.cfg.Razorpay.KeyID,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, req *VerifyRequest) error {
	if req == nil || req.OrderID == "" || req.PaymentID == "" || req.Signature == "" || req.Email == "" {
		return fmt.Errorf("missing required fields")
	}

	if !razorpay.VerifyPaymentSignature(s.cfg.Razorpay.KeySecret, req.OrderID, req.PaymentID, req.Signature) {
		logctx.FromCtx(ctx, s.log).Errorw("checkout_invalid_signature", "order_id", req.OrderID, "payment_id", req.PaymentID)
		return ErrInvalidSignature
	}

	uid, err := s.resolver.ResolveEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	_, err = s.entitlements.ApplyEvent(ctx, uid, &entitlement.Event{
		Provider:   types.PaymentProviderRazorpay,
		EventID:    req.PaymentID,
		Type:       "payment.captured",
		Email:      req.Email,
		PaymentID:  req.PaymentID,
		OrderID:    req.OrderID,
		Amount:     s.cfg.Razorpay.OrderAmount,
		Currency:   s.cfg.Razorpay.OrderCurrency,
		OccurredAt: s.now(),
		Reason:     types.EntitlementChangeReasonCheckout,
	})
	if err != nil {
		return fmt.Errorf("failed to activate entitlement: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("checkout_verified", "user_id", uid, "payment_id", req.PaymentID)
	return nil
}
