// Package budget tracks and enforces per-scope spend limits over rolling
// daily and monthly periods.
package budget

import "time"

// PeriodType is the cadence of a budget period.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodMonthly PeriodType = "monthly"
)

// Period is a half-open [Start, End) window for one cadence.
// Periods are replaced, never mutated, on rollover.
type Period struct {
	Type  PeriodType
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// NewDailyPeriod returns the UTC day containing now.
func NewDailyPeriod(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Period{Type: PeriodDaily, Start: start, End: start.AddDate(0, 0, 1)}
}

// NewMonthlyPeriod returns the UTC calendar month containing now. The end
// boundary steps to day 28 then adds 4 days and truncates back to day 1,
// which lands on the first of the next month for every month length.
func NewMonthlyPeriod(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	day28 := time.Date(now.Year(), now.Month(), 28, 0, 0, 0, 0, time.UTC)
	next := day28.AddDate(0, 0, 4)
	end := time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Type: PeriodMonthly, Start: start, End: end}
}
