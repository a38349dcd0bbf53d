package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantprep/gatekeeper/pkg/response"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entitlementServer(t *testing.T, fn func(calls int64) types.EntitlementInfo) (*httptest.Server, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/entitlement", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		n := atomic.AddInt64(&calls, 1)
		json.NewEncoder(w).Encode(response.OKT(fn(n)))
	}))
	return srv, &calls
}

func TestEntitlement(t *testing.T) {
	srv, _ := entitlementServer(t, func(int64) types.EntitlementInfo {
		return types.EntitlementInfo{Plan: types.PlanPremium, Status: types.EntitlementStatusActive, IsPremium: true}
	})
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "test-token"})
	info, err := c.Entitlement(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.PlanPremium, info.Plan)
	assert.True(t, info.IsPremium)
}

func TestEntitlement_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "test-token"})
	_, err := c.Entitlement(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestWaitForPremium_BecomesPremium(t *testing.T) {
	srv, calls := entitlementServer(t, func(n int64) types.EntitlementInfo {
		if n >= 3 {
			return types.EntitlementInfo{Plan: types.PlanPremium, Status: types.EntitlementStatusActive, IsPremium: true}
		}
		return types.EntitlementInfo{Plan: types.PlanFree}
	})
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "test-token", Interval: 10 * time.Millisecond, MaxAttempts: 10, Budget: 5 * time.Second})
	info, ok, err := c.WaitForPremium(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, info.IsPremium)
	assert.Equal(t, int64(3), atomic.LoadInt64(calls))
}

func TestWaitForPremium_AttemptBudgetExhausted(t *testing.T) {
	srv, calls := entitlementServer(t, func(int64) types.EntitlementInfo {
		return types.EntitlementInfo{Plan: types.PlanFree}
	})
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "test-token", Interval: time.Millisecond, MaxAttempts: 4, Budget: 5 * time.Second})
	info, ok, err := c.WaitForPremium(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, info)
	assert.Equal(t, types.PlanFree, info.Plan)
	assert.Equal(t, int64(4), atomic.LoadInt64(calls))
}

func TestWaitForPremium_ContextCanceled(t *testing.T) {
	srv, _ := entitlementServer(t, func(int64) types.EntitlementInfo {
		return types.EntitlementInfo{Plan: types.PlanFree}
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Options{BaseURL: srv.URL, Token: "test-token", Interval: 10 * time.Millisecond})
	_, ok, _ := c.WaitForPremium(ctx)
	assert.False(t, ok)
}
