package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/types"
)

func testBudgetConfig() config.BudgetConfig {
	return config.BudgetConfig{
		Global: config.ScopeLimits{
			DailyLimit:      1000,
			MonthlyLimit:    10000,
			AlertThresholds: []float64{80, 95},
		},
		TenantDefaults: config.ScopeLimits{
			DailyLimit:      100,
			MonthlyLimit:    1000,
			AlertThresholds: []float64{80, 95},
		},
		UserDefaults: config.ScopeLimits{
			DailyLimit:      1.00,
			MonthlyLimit:    20,
			AlertThresholds: []float64{80, 95},
		},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEnforceDailyUserLimit(t *testing.T) {
	m := NewManager(testBudgetConfig())

	// $1.00 daily limit: two $0.40 requests fit, the third would overspend.
	require.NoError(t, m.Enforce("alice", "acme", 0.40, "gpt-4o"))
	m.RecordUsage("alice", "acme", "gpt-4o", 0.40, "r1")

	require.NoError(t, m.Enforce("alice", "acme", 0.40, "gpt-4o"))
	m.RecordUsage("alice", "acme", "gpt-4o", 0.40, "r2")

	err := m.Enforce("alice", "acme", 0.40, "gpt-4o")
	require.Error(t, err)

	var exceeded *types.BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, ScopeUser("alice"), exceeded.Scope)
	assert.InDelta(t, 0.80, exceeded.CurrentUsage, 1e-9)
	assert.InDelta(t, 1.00, exceeded.Limit, 1e-9)
}

func TestEnforceIsLookOnly(t *testing.T) {
	m := NewManager(testBudgetConfig())

	// Repeated checks without recording must not consume budget.
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Enforce("alice", "", 0.90, "gpt-4o"))
	}

	status, err := m.GetStatus("alice", "", ScopeKindUser)
	require.NoError(t, err)
	assert.Zero(t, status.CurrentUsage)
}

func TestEnforceChecksBroadestScopeFirst(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.Global.DailyLimit = 0.50 // tighter than the user default
	m := NewManager(cfg)

	err := m.Enforce("alice", "acme", 0.60, "gpt-4o")
	var exceeded *types.BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, ScopeGlobal, exceeded.Scope)
}

func TestRecordUsageUpdatesAllScopes(t *testing.T) {
	m := NewManager(testBudgetConfig())
	m.RecordUsage("alice", "acme", "gpt-4o", 0.25, "r1")

	for _, scope := range []string{ScopeKindGlobal, ScopeKindTenant, ScopeKindUser} {
		status, err := m.GetStatus("alice", "acme", scope)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, status.CurrentUsage, 1e-9, "scope %s", scope)
	}
}

func TestRecordUsageAllowsOverspend(t *testing.T) {
	m := NewManager(testBudgetConfig())

	// Recording never fails, even past the limit; only Enforce gates.
	m.RecordUsage("alice", "", "gpt-4o", 5.00, "r1")

	status, err := m.GetStatus("alice", "", ScopeKindUser)
	require.NoError(t, err)
	assert.InDelta(t, 5.00, status.CurrentUsage, 1e-9)
	assert.Zero(t, status.Remaining)
}

func TestAlertsFireOncePerPeriod(t *testing.T) {
	var alerts []Alert
	m := NewManager(testBudgetConfig(), WithAlertFunc(func(a Alert) {
		alerts = append(alerts, a)
	}))

	// 85% of the $1.00 daily user limit crosses 80 but not 95.
	m.RecordUsage("alice", "", "gpt-4o", 0.85, "r1")

	var userAlerts []Alert
	for _, a := range alerts {
		if a.Scope == ScopeUser("alice") {
			userAlerts = append(userAlerts, a)
		}
	}
	require.Len(t, userAlerts, 1)
	assert.Equal(t, 80.0, userAlerts[0].Threshold)
	assert.Equal(t, PeriodDaily, userAlerts[0].Cadence)

	// Staying above 80% must not re-fire; crossing 95% fires exactly once.
	alerts = nil
	m.RecordUsage("alice", "", "gpt-4o", 0.11, "r2")

	userAlerts = nil
	for _, a := range alerts {
		if a.Scope == ScopeUser("alice") {
			userAlerts = append(userAlerts, a)
		}
	}
	require.Len(t, userAlerts, 1)
	assert.Equal(t, 95.0, userAlerts[0].Threshold)
}

func TestDailyRolloverResetsUsageAndAlerts(t *testing.T) {
	now := time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)
	m := NewManager(testBudgetConfig(), WithClock(fixedClock(now)))

	m.RecordUsage("alice", "", "gpt-4o", 0.90, "r1")
	require.Error(t, m.Enforce("alice", "", 0.40, "gpt-4o"))

	// Cross UTC midnight: daily resets, monthly keeps accumulating.
	now = now.Add(2 * time.Hour)
	m.now = fixedClock(now)

	require.NoError(t, m.Enforce("alice", "", 0.40, "gpt-4o"))

	var alerts []Alert
	m.alert = func(a Alert) { alerts = append(alerts, a) }
	m.RecordUsage("alice", "", "gpt-4o", 0.85, "r2")

	fired := false
	for _, a := range alerts {
		if a.Scope == ScopeUser("alice") && a.Cadence == PeriodDaily && a.Threshold == 80 {
			fired = true
		}
	}
	assert.True(t, fired, "daily alert should re-arm after rollover")
}

func TestMonthlyLimitSurvivesDailyRollover(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.UserDefaults.MonthlyLimit = 1.50
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m := NewManager(cfg, WithClock(fixedClock(now)))

	m.RecordUsage("alice", "", "gpt-4o", 0.95, "r1")

	now = now.Add(24 * time.Hour)
	m.now = fixedClock(now)

	// Daily is fresh, but the monthly budget is nearly spent.
	err := m.Enforce("alice", "", 0.90, "gpt-4o")
	var exceeded *types.BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.InDelta(t, 1.50, exceeded.Limit, 1e-9)
}

func TestGetStatusMoreRestrictiveView(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.UserDefaults = config.ScopeLimits{DailyLimit: 10, MonthlyLimit: 12, AlertThresholds: []float64{80, 95}}
	m := NewManager(cfg)

	m.RecordUsage("alice", "", "gpt-4o", 5, "r1")

	// Daily remaining 5, monthly remaining 7: daily binds.
	status, err := m.GetStatus("alice", "", ScopeKindUser)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, status.Limit, 1e-9)
	assert.InDelta(t, 5.0, status.Remaining, 1e-9)

	m.RecordUsage("alice", "", "gpt-4o", 4, "r2")

	// Daily remaining 1, monthly remaining 3: still daily.
	status, err = m.GetStatus("alice", "", ScopeKindUser)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, status.Remaining, 1e-9)
}

func TestGetStatusValidation(t *testing.T) {
	m := NewManager(testBudgetConfig())

	_, err := m.GetStatus("", "", ScopeKindUser)
	assert.Error(t, err)

	_, err = m.GetStatus("", "", ScopeKindTenant)
	assert.Error(t, err)

	_, err = m.GetStatus("", "", "nonsense")
	assert.Error(t, err)
}

func TestRemainingBudgetIsMinAcrossScopes(t *testing.T) {
	m := NewManager(testBudgetConfig())

	m.RecordUsage("alice", "acme", "gpt-4o", 0.75, "r1")

	// User scope ($1.00 daily) binds before tenant and global.
	assert.InDelta(t, 0.25, m.RemainingBudget("alice", "acme"), 1e-9)
}

func TestUsageSummary(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	m := NewManager(testBudgetConfig(), WithClock(fixedClock(now)))

	m.RecordUsage("alice", "", "gpt-4o", 0.10, "r1")
	m.RecordUsage("alice", "", "gpt-4o", 0.20, "r2")
	m.RecordUsage("alice", "", "claude-3-5-haiku-20241022", 0.05, "r3")

	s := m.UsageSummary("alice", "", 24)
	assert.Equal(t, ScopeUser("alice"), s.Scope)
	assert.Equal(t, 3, s.RequestCount)
	assert.InDelta(t, 0.35, s.TotalCost, 1e-9)
	assert.Equal(t, 2, s.ByModel["gpt-4o"].Requests)
	assert.InDelta(t, 0.30, s.ByModel["gpt-4o"].Cost, 1e-9)
	assert.InDelta(t, 0.35, s.Hourly["2026-08-31T15"], 1e-9)
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.UserDefaults = config.ScopeLimits{}
	m := NewManager(cfg)

	// No user limits: only tenant and global can bind.
	require.NoError(t, m.Enforce("alice", "", 50, "gpt-4o"))

	err := m.Enforce("alice", "acme", 150, "gpt-4o")
	var exceeded *types.BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, ScopeTenant("acme"), exceeded.Scope)
}
