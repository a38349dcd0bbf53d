package webhook_handler

import (
	"errors"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/pkg/types"
)

// ErrUnauthorized covers every authentication failure on a webhook
// delivery: missing headers, stale timestamp, bad or missing signature,
// unconfigured secret. Handlers map it to 401 before any state is touched.
var ErrUnauthorized = errors.New("webhook unauthorized")

// EventParser verifies and normalizes one provider's webhook delivery.
type EventParser interface {
	Provider() types.PaymentProvider
	// Verify authenticates the delivery. Returns an error wrapping
	// ErrUnauthorized on any failure; it never writes state.
	Verify() error
	EventID() string
	EventType() string
	// Event returns the normalized payment event, or nil when the delivery
	// carries nothing applicable (no email, irrelevant payload).
	Event() (*entitlement.Event, error)
	Payload() []byte
}
