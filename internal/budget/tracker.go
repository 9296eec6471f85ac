package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/tripflow/llmgate/internal/config"
)

// UsageRecord is an append-only spend fact posted to one or more trackers.
type UsageRecord struct {
	UserID    string
	TenantID  string
	ModelID   string
	Cost      float64
	Timestamp time.Time
	RequestID string
}

// Status is a point-in-time snapshot of one scope's budget, always derived
// from the more restrictive of the daily and monthly views.
type Status struct {
	Scope          string    `json:"scope"`
	CurrentUsage   float64   `json:"current_usage"`
	Limit          float64   `json:"limit"`
	Remaining      float64   `json:"remaining"`
	PercentageUsed float64   `json:"percentage_used"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// tracker holds the running spend state for one scope. All methods assume
// the manager's lock is held.
type tracker struct {
	scopeID string
	limits  config.ScopeLimits

	dailyUsage   float64
	monthlyUsage float64
	records      []UsageRecord

	dailyPeriod   Period
	monthlyPeriod Period

	// firedAlerts keys look like "daily:80"; cleared per cadence on rollover.
	firedAlerts map[string]bool
}

func newTracker(scopeID string, limits config.ScopeLimits, now time.Time) *tracker {
	return &tracker{
		scopeID:       scopeID,
		limits:        limits,
		dailyPeriod:   NewDailyPeriod(now),
		monthlyPeriod: NewMonthlyPeriod(now),
		firedAlerts:   make(map[string]bool),
	}
}

// rollover replaces any period that no longer contains now, resetting that
// cadence's counter and alert keys. Idempotent within a period.
func (t *tracker) rollover(now time.Time) {
	if !t.dailyPeriod.Contains(now) {
		t.dailyPeriod = NewDailyPeriod(now)
		t.dailyUsage = 0
		t.clearAlerts(PeriodDaily)
	}
	if !t.monthlyPeriod.Contains(now) {
		t.monthlyPeriod = NewMonthlyPeriod(now)
		t.monthlyUsage = 0
		t.clearAlerts(PeriodMonthly)
	}
}

func (t *tracker) clearAlerts(cadence PeriodType) {
	prefix := string(cadence) + ":"
	for key := range t.firedAlerts {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(t.firedAlerts, key)
		}
	}
}

// wouldExceed reports whether adding cost crosses either cadence's limit,
// returning the binding usage and limit when it does.
func (t *tracker) wouldExceed(cost float64) (usage, limit float64, exceeded bool) {
	if t.limits.DailyLimit > 0 && t.dailyUsage+cost > t.limits.DailyLimit {
		return t.dailyUsage, t.limits.DailyLimit, true
	}
	if t.limits.MonthlyLimit > 0 && t.monthlyUsage+cost > t.limits.MonthlyLimit {
		return t.monthlyUsage, t.limits.MonthlyLimit, true
	}
	return 0, 0, false
}

// addUsage posts a record and fires any newly crossed alert thresholds,
// each at most once per period per cadence.
func (t *tracker) addUsage(rec UsageRecord, alert AlertFunc) {
	t.dailyUsage += rec.Cost
	t.monthlyUsage += rec.Cost
	t.records = append(t.records, rec)

	t.checkAlerts(PeriodDaily, t.dailyUsage, t.limits.DailyLimit, alert)
	t.checkAlerts(PeriodMonthly, t.monthlyUsage, t.limits.MonthlyLimit, alert)
}

func (t *tracker) checkAlerts(cadence PeriodType, usage, limit float64, alert AlertFunc) {
	if limit <= 0 || alert == nil {
		return
	}
	pct := usage / limit * 100
	for _, threshold := range t.limits.AlertThresholds {
		if pct < threshold {
			continue
		}
		key := fmt.Sprintf("%s:%g", cadence, threshold)
		if t.firedAlerts[key] {
			continue
		}
		t.firedAlerts[key] = true
		alert(Alert{
			Scope:     t.scopeID,
			Cadence:   cadence,
			Threshold: threshold,
			Usage:     usage,
			Limit:     limit,
		})
	}
}

// status returns the more restrictive of the daily and monthly views.
// A cadence without a limit never binds.
func (t *tracker) status() Status {
	daily := t.cadenceStatus(t.dailyUsage, t.limits.DailyLimit, t.dailyPeriod)
	monthly := t.cadenceStatus(t.monthlyUsage, t.limits.MonthlyLimit, t.monthlyPeriod)

	switch {
	case t.limits.DailyLimit <= 0:
		return monthly
	case t.limits.MonthlyLimit <= 0:
		return daily
	case daily.Remaining <= monthly.Remaining:
		return daily
	default:
		return monthly
	}
}

func (t *tracker) cadenceStatus(usage, limit float64, p Period) Status {
	s := Status{
		Scope:        t.scopeID,
		CurrentUsage: usage,
		Limit:        limit,
		PeriodStart:  p.Start,
		PeriodEnd:    p.End,
	}
	if limit > 0 {
		s.Remaining = limit - usage
		if s.Remaining < 0 {
			s.Remaining = 0
		}
		s.PercentageUsed = usage / limit * 100
	}
	return s
}

// remaining returns min(daily remaining, monthly remaining). A tracker with
// no limits at all never binds.
func (t *tracker) remaining() float64 {
	if t.limits.DailyLimit <= 0 && t.limits.MonthlyLimit <= 0 {
		return math.MaxFloat64
	}
	return t.status().Remaining
}
