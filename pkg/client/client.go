// Package client is a small HTTP client for the entitlement API, meant
// for dashboards that need to reflect a plan change shortly after checkout.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quantprep/gatekeeper/pkg/response"
	"github.com/quantprep/gatekeeper/pkg/types"
)

const (
	defaultInterval    = 2 * time.Second
	defaultMaxAttempts = 10
	defaultBudget      = 30 * time.Second
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	// Token is sent as a Bearer token on every request.
	Token string
	// Interval between polling attempts.
	Interval time.Duration
	// MaxAttempts bounds the number of polls in WaitForPremium.
	MaxAttempts int
	// Budget bounds the total wall-clock time spent polling.
	Budget time.Duration

	HTTPClient *http.Client
}

// Client reads entitlement state from the API.
type Client struct {
	baseURL     string
	token       string
	interval    time.Duration
	maxAttempts int
	budget      time.Duration
	hc          *http.Client
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		token:       opts.Token,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		budget:      opts.Budget,
		hc:          opts.HTTPClient,
	}
	if c.interval <= 0 {
		c.interval = defaultInterval
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.budget <= 0 {
		c.budget = defaultBudget
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

// Entitlement fetches the caller's current entitlement.
func (c *Client) Entitlement(ctx context.Context) (*types.EntitlementInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/entitlement", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entitlement request failed: status %d", resp.StatusCode)
	}

	var envelope response.APIResponse[types.EntitlementInfo]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode entitlement response: %w", err)
	}
	if envelope.Code != response.APIResponseCodeOK {
		return nil, fmt.Errorf("entitlement request failed: code %d message %q", envelope.Code, envelope.Message)
	}
	return &envelope.Data, nil
}

// WaitForPremium polls until the entitlement reports premium, the attempt
// or time budget runs out, or ctx is canceled. It returns the last
// entitlement observed; the bool reports whether premium was reached.
// Transient request errors count against the attempt budget but do not
// abort the wait.
func (c *Client) WaitForPremium(ctx context.Context) (*types.EntitlementInfo, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	var last *types.EntitlementInfo
	var lastErr error

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		info, err := c.Entitlement(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			lastErr = err
		} else {
			last = info
			lastErr = nil
			if info.IsPremium {
				return info, true, nil
			}
		}

		select {
		case <-ctx.Done():
			if last != nil {
				return last, false, nil
			}
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}

	if last == nil && lastErr != nil {
		return nil, false, lastErr
	}
	return last, false, nil
}
