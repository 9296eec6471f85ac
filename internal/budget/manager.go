package budget

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/types"
)

// Alert describes a crossed spend threshold.
type Alert struct {
	Scope     string
	Cadence   PeriodType
	Threshold float64 // percent
	Usage     float64
	Limit     float64
}

// AlertFunc receives threshold alerts. Called with the manager lock held, so
// implementations must not call back into the manager.
type AlertFunc func(Alert)

// ScopeGlobal is the scope ID of the process-wide tracker.
const ScopeGlobal = "global"

// ScopeTenant and ScopeUser build scope IDs for tenant and user trackers.
func ScopeTenant(tenantID string) string { return "tenant:" + tenantID }
func ScopeUser(userID string) string     { return "user:" + userID }

// Manager tracks per-scope spend and gates requests against limits.
//
// A single coarse mutex serializes all budget decisions. Correct (two
// requests can't both pass a check that together overspend) but a known
// throughput ceiling; shard by scope ID if this ever shows up in profiles.
type Manager struct {
	mu       sync.Mutex
	cfg      config.BudgetConfig
	trackers map[string]*tracker
	alert    AlertFunc
	logger   *slog.Logger

	now func() time.Time // swapped in tests
}

// Option configures a Manager.
type Option func(*Manager)

// WithAlertFunc sets the alert callback. Default logs through slog.
func WithAlertFunc(fn AlertFunc) Option {
	return func(m *Manager) { m.alert = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock sets the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a budget manager from scope limit config.
func NewManager(cfg config.BudgetConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		trackers: make(map[string]*tracker),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.alert == nil {
		logger := m.logger
		m.alert = func(a Alert) {
			logger.Warn("budget threshold crossed",
				"scope", a.Scope,
				"cadence", a.Cadence,
				"threshold_pct", a.Threshold,
				"usage", a.Usage,
				"limit", a.Limit,
			)
		}
	}
	return m
}

// Enforce checks, in order, the global, tenant (if any) and user trackers.
// The first scope that would be exceeded is returned as a typed error.
// Look-only: nothing is reserved.
func (m *Manager) Enforce(userID, tenantID string, estimatedCost float64, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, scope := range m.applicableScopes(userID, tenantID) {
		t := m.getTracker(scope, now)
		t.rollover(now)
		if usage, limit, exceeded := t.wouldExceed(estimatedCost); exceeded {
			return &types.BudgetExceededError{
				Scope:        scope,
				CurrentUsage: usage,
				Limit:        limit,
			}
		}
	}
	return nil
}

// RecordUsage posts the same usage record to every applicable tracker after a
// successful provider call. It never fails the request: all trackers are
// updated under one lock acquisition, and posting to one tracker does not
// depend on another. A crash mid-loop can undercount some scopes; accepted
// as eventual-consistency (a stricter design would order global→tenant→user
// inside one critical section and journal the record first).
func (m *Manager) RecordUsage(userID, tenantID, modelID string, actualCost float64, requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec := UsageRecord{
		UserID:    userID,
		TenantID:  tenantID,
		ModelID:   modelID,
		Cost:      actualCost,
		Timestamp: now,
		RequestID: requestID,
	}

	for _, scope := range m.applicableScopes(userID, tenantID) {
		t := m.getTracker(scope, now)
		t.rollover(now)
		t.addUsage(rec, m.alert)
	}
}

// Scope selectors accepted by GetStatus.
const (
	ScopeKindGlobal = "global"
	ScopeKindTenant = "tenant"
	ScopeKindUser   = "user"
)

// GetStatus returns the requested scope's snapshot, always the more
// restrictive of the daily and monthly views.
func (m *Manager) GetStatus(userID, tenantID, scope string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scopeID string
	switch scope {
	case ScopeKindGlobal:
		scopeID = ScopeGlobal
	case ScopeKindTenant:
		if tenantID == "" {
			return Status{}, &types.ValidationError{Message: "tenant_id required for tenant scope"}
		}
		scopeID = ScopeTenant(tenantID)
	case ScopeKindUser:
		if userID == "" {
			return Status{}, &types.ValidationError{Message: "user_id required for user scope"}
		}
		scopeID = ScopeUser(userID)
	default:
		return Status{}, &types.ValidationError{Message: fmt.Sprintf("unknown scope %q", scope)}
	}

	now := m.now()
	t := m.getTracker(scopeID, now)
	t.rollover(now)
	return t.status(), nil
}

// RemainingBudget returns the binding constraint: the minimum remaining
// across every applicable scope.
func (m *Manager) RemainingBudget(userID, tenantID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	remaining := math.MaxFloat64
	for _, scope := range m.applicableScopes(userID, tenantID) {
		t := m.getTracker(scope, now)
		t.rollover(now)
		if r := t.remaining(); r < remaining {
			remaining = r
		}
	}
	return remaining
}

// ModelUsage aggregates spend for one model inside a summary.
type ModelUsage struct {
	Requests int     `json:"requests"`
	Cost     float64 `json:"cost"`
}

// Summary aggregates one scope's usage records over a trailing window.
type Summary struct {
	Scope        string                `json:"scope"`
	Hours        int                   `json:"hours"`
	TotalCost    float64               `json:"total_cost"`
	RequestCount int                   `json:"request_count"`
	ByModel      map[string]ModelUsage `json:"by_model"`
	Hourly       map[string]float64    `json:"hourly"` // "2026-08-31T14" → cost
}

// UsageSummary filters the most specific applicable tracker's records by a
// time cutoff and aggregates totals, per-model breakdown and hourly buckets.
func (m *Manager) UsageSummary(userID, tenantID string, hours int) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	scopeID := ScopeGlobal
	if tenantID != "" {
		scopeID = ScopeTenant(tenantID)
	}
	if userID != "" {
		scopeID = ScopeUser(userID)
	}

	now := m.now()
	t := m.getTracker(scopeID, now)
	t.rollover(now)

	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	summary := Summary{
		Scope:   scopeID,
		Hours:   hours,
		ByModel: make(map[string]ModelUsage),
		Hourly:  make(map[string]float64),
	}

	for _, rec := range t.records {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		summary.TotalCost += rec.Cost
		summary.RequestCount++

		mu := summary.ByModel[rec.ModelID]
		mu.Requests++
		mu.Cost += rec.Cost
		summary.ByModel[rec.ModelID] = mu

		bucket := rec.Timestamp.UTC().Format("2006-01-02T15")
		summary.Hourly[bucket] += rec.Cost
	}

	return summary
}

// applicableScopes lists the scopes a request touches, broadest first.
func (m *Manager) applicableScopes(userID, tenantID string) []string {
	scopes := []string{ScopeGlobal}
	if tenantID != "" {
		scopes = append(scopes, ScopeTenant(tenantID))
	}
	if userID != "" {
		scopes = append(scopes, ScopeUser(userID))
	}
	return scopes
}

// getTracker lazily creates the tracker for a scope. Trackers live for the
// process lifetime; they are never removed.
func (m *Manager) getTracker(scopeID string, now time.Time) *tracker {
	if t, ok := m.trackers[scopeID]; ok {
		return t
	}

	limits := m.cfg.Global
	switch {
	case scopeID == ScopeGlobal:
		limits = m.cfg.Global
	case len(scopeID) > 7 && scopeID[:7] == "tenant:":
		limits = m.cfg.TenantDefaults
	case len(scopeID) > 5 && scopeID[:5] == "user:":
		limits = m.cfg.UserDefaults
	}

	t := newTracker(scopeID, limits, now)
	m.trackers[scopeID] = t
	return t
}
