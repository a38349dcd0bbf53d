package models

import (
	"testing"
	"time"

	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitlement_IsPremium(t *testing.T) {
	tests := []struct {
		name string
		e    *Entitlement
		want bool
	}{
		{name: "nil record", e: nil, want: false},
		{name: "premium active", e: &Entitlement{Plan: types.PlanPremium, Status: types.EntitlementStatusActive}, want: true},
		{name: "premium on hold", e: &Entitlement{Plan: types.PlanPremium, Status: types.EntitlementStatusOnHold}, want: false},
		{name: "premium failed", e: &Entitlement{Plan: types.PlanPremium, Status: types.EntitlementStatusFailed}, want: false},
		{name: "free active", e: &Entitlement{Plan: types.PlanFree, Status: types.EntitlementStatusActive}, want: false},
		{name: "free none", e: &Entitlement{Plan: types.PlanFree}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.e.IsPremium())
		})
	}
}

func TestEntitlement_Info(t *testing.T) {
	now := time.Now()
	e := &Entitlement{Plan: types.PlanPremium, Status: types.EntitlementStatusActive, UpdatedAt: now}

	info := e.Info()
	require.NotNil(t, info)
	assert.Equal(t, types.PlanPremium, info.Plan)
	assert.True(t, info.IsPremium)
	assert.True(t, now.Equal(info.UpdatedAt))
}

func TestEntitlement_InfoNilDefaultsToFree(t *testing.T) {
	var e *Entitlement
	info := e.Info()
	require.NotNil(t, info)
	assert.Equal(t, types.PlanFree, info.Plan)
	assert.False(t, info.IsPremium)
}
