// Package billingperiod provides the pure UTC calendar arithmetic behind
// monthly billing: period bounds, issuance instants and due dates. Every
// function here is side-effect free and exact across month, year and leap
// boundaries.
package billingperiod

import "time"

// DateLayout is the wire format for period bounds.
const DateLayout = "2006-01-02"

// Issuance fires just before month-end so the invoice exists when the new
// month starts.
const (
	issuanceHour   = 23
	issuanceMinute = 55
)

// Period is one calendar billing month. Start and End are UTC midnights of
// the first and last day of the month.
type Period struct {
	Start time.Time
	End   time.Time
}

// StartDate returns the period start as YYYY-MM-DD.
func (p Period) StartDate() string {
	return p.Start.Format(DateLayout)
}

// EndDate returns the period end as YYYY-MM-DD.
func (p Period) EndDate() string {
	return p.End.Format(DateLayout)
}

// MonthlyPeriod returns the calendar month containing now, in UTC.
func MonthlyPeriod(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	// First day of next month minus one day lands on the last day of this
	// month regardless of month length or leap years.
	end := start.AddDate(0, 1, -1)
	return Period{Start: start, End: end}
}

// IssuanceTimeEOM returns the issuance instant for a period: 23:55:00 UTC on
// the period's last day.
func IssuanceTimeEOM(periodEnd time.Time) time.Time {
	periodEnd = periodEnd.UTC()
	return time.Date(periodEnd.Year(), periodEnd.Month(), periodEnd.Day(), issuanceHour, issuanceMinute, 0, 0, time.UTC)
}

// NextIssuanceTimeAfter returns the issuance instant for the month following
// the given period end, rolling December into January of the next year.
func NextIssuanceTimeAfter(periodEnd time.Time) time.Time {
	periodEnd = periodEnd.UTC()
	// Day 1 of the month after periodEnd, then that month's own period end.
	nextMonthStart := time.Date(periodEnd.Year(), periodEnd.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	next := MonthlyPeriod(nextMonthStart)
	return IssuanceTimeEOM(next.End)
}

// DueAt returns issuedAt plus graceDays days.
func DueAt(issuedAt time.Time, graceDays int) time.Time {
	return issuedAt.UTC().AddDate(0, 0, graceDays)
}

// IsFirstMonthFree reports whether the tenant's creation instant falls within
// the period, inclusive of both bounds: [start 00:00:00Z, end 23:59:59Z].
// A tenant's first calendar month is never billed.
func IsFirstMonthFree(tenantCreatedAt, periodStart, periodEnd time.Time) bool {
	createdAt := tenantCreatedAt.UTC()
	lower := time.Date(periodStart.Year(), periodStart.Month(), periodStart.Day(), 0, 0, 0, 0, time.UTC)
	upper := time.Date(periodEnd.Year(), periodEnd.Month(), periodEnd.Day(), 23, 59, 59, 0, time.UTC)
	return !createdAt.Before(lower) && !createdAt.After(upper)
}
