package webhook_handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/platform/razorpay"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/gin-gonic/gin"
)

type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID        string `json:"id"`
				Email     string `json:"email"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
				Status    string `json:"status"`
				OrderID   string `json:"order_id"`
				CreatedAt int64  `json:"created_at"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// RazorpayParser handles the simple-HMAC webhook: hex HMAC-SHA256 of the
// raw body in the x-razorpay-signature header.
type RazorpayParser struct {
	secret    string
	body      []byte
	signature string
	eventID   string
	envelope  razorpayEnvelope
	parsed    bool
	parseErr  error
	now       time.Time
}

func NewRazorpayParser(secret string, c *gin.Context, now time.Time) (*RazorpayParser, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &RazorpayParser{
		secret:    secret,
		body:      body,
		signature: c.GetHeader("x-razorpay-signature"),
		eventID:   c.GetHeader("x-razorpay-event-id"),
		now:       now,
	}, nil
}

func (p *RazorpayParser) Provider() types.PaymentProvider { return types.PaymentProviderRazorpay }

func (p *RazorpayParser) Verify() error {
	if p.secret == "" {
		// An unconfigured secret rejects; there is no unverified mode.
		return fmt.Errorf("%w: webhook secret not configured", ErrUnauthorized)
	}
	if p.signature == "" {
		return fmt.Errorf("%w: missing x-razorpay-signature", ErrUnauthorized)
	}
	if !razorpay.VerifyWebhookSignature(p.secret, p.signature, p.body) {
		return fmt.Errorf("%w: invalid signature", ErrUnauthorized)
	}
	return nil
}

func (p *RazorpayParser) parse() error {
	if p.parsed {
		return p.parseErr
	}
	p.parsed = true
	p.parseErr = json.Unmarshal(p.body, &p.envelope)
	return p.parseErr
}

func (p *RazorpayParser) EventID() string {
	if p.eventID != "" {
		return p.eventID
	}
	// Older deliveries omit x-razorpay-event-id; the payment id still
	// dedupes repeated captures.
	if p.parse() == nil {
		return p.envelope.Payload.Payment.Entity.ID
	}
	return ""
}

func (p *RazorpayParser) EventType() string {
	if p.parse() == nil {
		return p.envelope.Event
	}
	return ""
}

func (p *RazorpayParser) Event() (*entitlement.Event, error) {
	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	entity := p.envelope.Payload.Payment.Entity
	if entity.Email == "" {
		return nil, nil
	}
	occurred := p.now
	if entity.CreatedAt > 0 {
		occurred = time.Unix(entity.CreatedAt, 0)
	}
	return &entitlement.Event{
		Provider:   types.PaymentProviderRazorpay,
		EventID:    p.EventID(),
		Type:       p.envelope.Event,
		Email:      entity.Email,
		PaymentID:  entity.ID,
		OrderID:    entity.OrderID,
		Amount:     entity.Amount,
		Currency:   entity.Currency,
		OccurredAt: occurred,
	}, nil
}

func (p *RazorpayParser) Payload() []byte { return p.body }
