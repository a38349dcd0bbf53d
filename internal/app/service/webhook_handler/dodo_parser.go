package webhook_handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/platform/dodo"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/gin-gonic/gin"
)

type dodoEnvelope struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		SubscriptionID string `json:"subscription_id"`
		PaymentID      string `json:"payment_id"`
		Status         string `json:"status"`
		CustomerID     string `json:"customer_id"`
		Customer       struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"customer"`
		TotalAmount int64  `json:"total_amount"`
		Currency    string `json:"currency"`
	} `json:"data"`
}

// DodoParser handles the Standard Webhooks scheme: webhook-id,
// webhook-timestamp and webhook-signature headers, replay window, HMAC over
// "id.timestamp.body".
type DodoParser struct {
	secret    string
	body      []byte
	webhookID string
	timestamp string
	signature string
	envelope  dodoEnvelope
	parsed    bool
	parseErr  error
	now       time.Time
}

func NewDodoParser(secret string, c *gin.Context, now time.Time) (*DodoParser, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &DodoParser{
		secret:    secret,
		body:      body,
		webhookID: c.GetHeader("webhook-id"),
		timestamp: c.GetHeader("webhook-timestamp"),
		signature: c.GetHeader("webhook-signature"),
		now:       now,
	}, nil
}

func (p *DodoParser) Provider() types.PaymentProvider { return types.PaymentProviderDodo }

func (p *DodoParser) Verify() error {
	if p.secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrUnauthorized)
	}
	if p.webhookID == "" || p.timestamp == "" || p.signature == "" {
		return fmt.Errorf("%w: missing webhook headers", ErrUnauthorized)
	}
	if !dodo.CheckTimestamp(p.timestamp, p.now) {
		return fmt.Errorf("%w: timestamp outside replay window", ErrUnauthorized)
	}
	if !dodo.VerifySignature(p.secret, p.webhookID, p.timestamp, p.signature, p.body) {
		return fmt.Errorf("%w: invalid signature", ErrUnauthorized)
	}
	return nil
}

func (p *DodoParser) parse() error {
	if p.parsed {
		return p.parseErr
	}
	p.parsed = true
	p.parseErr = json.Unmarshal(p.body, &p.envelope)
	return p.parseErr
}

func (p *DodoParser) EventID() string { return p.webhookID }

func (p *DodoParser) EventType() string {
	if p.parse() == nil {
		return p.envelope.Type
	}
	return ""
}

func (p *DodoParser) Event() (*entitlement.Event, error) {
	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	data := p.envelope.Data
	if data.Customer.Email == "" {
		return nil, nil
	}

	subscriptionID := data.SubscriptionID
	if subscriptionID == "" {
		subscriptionID = data.ID
	}
	customerID := data.CustomerID
	if customerID == "" {
		customerID = data.Customer.ID
	}

	occurred := p.now
	if ts, err := strconv.ParseInt(p.timestamp, 10, 64); err == nil {
		occurred = time.Unix(ts, 0)
	}

	return &entitlement.Event{
		Provider:       types.PaymentProviderDodo,
		EventID:        p.webhookID,
		Type:           p.envelope.Type,
		Email:          data.Customer.Email,
		PaymentID:      data.PaymentID,
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
		Amount:         data.TotalAmount,
		Currency:       data.Currency,
		OccurredAt:     occurred,
	}, nil
}

func (p *DodoParser) Payload() []byte { return p.body }
