package withdrawals

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy is the withdrawal window for one day of the week.
type Policy struct {
	Weekday time.Weekday    `json:"weekday"`
	Allowed bool            `json:"allowed"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
}

// weekdayPolicies is the fixed day-of-week schedule. Weekends never process
// withdrawals; each weekday admits a different amount band.
var weekdayPolicies = map[time.Weekday]Policy{
	time.Monday: {
		Weekday: time.Monday,
		Allowed: true,
		Min:     decimal.NewFromInt(5),
		Max:     decimal.NewFromInt(10),
	},
	time.Tuesday: {
		Weekday: time.Tuesday,
		Allowed: true,
		Min:     decimal.NewFromInt(50),
		Max:     decimal.NewFromInt(500),
	},
	time.Wednesday: {
		Weekday: time.Wednesday,
		Allowed: true,
		Min:     decimal.NewFromInt(1000),
		Max:     decimal.NewFromInt(10000),
	},
	time.Thursday: {
		Weekday: time.Thursday,
		Allowed: true,
		Min:     decimal.NewFromInt(50000),
		Max:     decimal.NewFromInt(500000),
	},
	time.Friday: {
		Weekday: time.Friday,
		Allowed: true,
		Min:     decimal.Zero,
		Max:     decimal.NewFromInt(100000),
	},
	time.Saturday: {Weekday: time.Saturday},
	time.Sunday:   {Weekday: time.Sunday},
}

// PolicyFor returns the policy for the UTC weekday of the given instant.
func PolicyFor(t time.Time) Policy {
	return weekdayPolicies[t.UTC().Weekday()]
}

// AdmitsAmount reports whether the amount falls inside the day's band.
func (p Policy) AdmitsAmount(amount decimal.Decimal) bool {
	if !p.Allowed {
		return false
	}
	return amount.GreaterThanOrEqual(p.Min) && amount.LessThanOrEqual(p.Max)
}
