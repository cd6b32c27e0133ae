package model

import "github.com/shopspring/decimal"

// Tolerance is the rounding tolerance for all monetary comparisons
// (0.01 currency units). Every balance check in the system goes through
// WithinTolerance; the epsilon is never duplicated elsewhere.
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether two amounts are equal within Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}
