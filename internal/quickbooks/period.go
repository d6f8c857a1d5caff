package quickbooks

import (
	"fmt"
	"time"
)

// BillingPeriod is a half-open [Start, End) billing window in UTC.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// PickupPeriod is a billing period with its idempotency key resolved.
type PickupPeriod struct {
	Start time.Time
	End   time.Time
	Key   string
}

// normalizeAnchorDay clamps the tenant's billing day to a day every month
// has. Zero or negative means the first.
func normalizeAnchorDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > 28 {
		return 28
	}
	return day
}

// PeriodFor returns the billing period containing date. A date on or after
// the anchor day falls in the period starting that month; earlier dates fall
// in the period anchored the previous month. The end is exactly one month
// after the start.
func PeriodFor(date time.Time, anchorDay int) BillingPeriod {
	day := normalizeAnchorDay(anchorDay)
	d := date.UTC()

	month := d.Month()
	if d.Day() < day {
		month--
	}
	start := time.Date(d.Year(), month, day, 0, 0, 0, 0, time.UTC)
	end := time.Date(start.Year(), start.Month()+1, day, 0, 0, 0, 0, time.UTC)
	return BillingPeriod{Start: start, End: end}
}

// PeriodKey formats the period's idempotency key from its start. Tenants
// anchored on the first use YYYY-MM; any other anchor day includes the day so
// mid-month periods starting in the same month stay distinct.
func PeriodKey(start time.Time, anchorDay int) string {
	s := start.UTC()
	if normalizeAnchorDay(anchorDay) != 1 {
		return s.Format("2006-01-02")
	}
	return s.Format("2006-01")
}

// ResolvePickupPeriod returns the billing period and key covering a pickup
// timestamp.
func ResolvePickupPeriod(pickedUpAt time.Time, anchorDay int) PickupPeriod {
	p := PeriodFor(pickedUpAt, anchorDay)
	return PickupPeriod{
		Start: p.Start,
		End:   p.End,
		Key:   PeriodKey(p.Start, anchorDay),
	}
}

// QBODate formats a timestamp as the date-only form QuickBooks expects.
func QBODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseQBOTime parses the timestamp formats QuickBooks returns (RFC 3339,
// with or without an offset).
func ParseQBOTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized quickbooks timestamp %q", value)
}
