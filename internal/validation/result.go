// Package validation checks proposed mutations and whole-system state
// against structural, referential and business rules, producing blocking
// errors, non-blocking warnings and system-level critical issues.
package validation

// Mode selects how strictly validation findings gate operations.
type Mode string

const (
	// ModeStrict blocks operations on errors and critical issues.
	ModeStrict Mode = "strict"
	// ModeLenient downgrades business-rule violations to warnings.
	ModeLenient Mode = "lenient"
)

// Severity ranks validation errors.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Impact ranks warnings.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Error is a blocking validation finding.
type Error struct {
	Code     string
	Field    string
	Message  string
	Severity Severity
}

// Warning is an informational finding; the operation proceeds.
type Warning struct {
	Code    string
	Field   string
	Message string
	Impact  Impact
}

// CriticalIssue is a system-level defect. Priority 1 is the most severe
// (the books themselves are broken); AutoFixAvailable marks issues the
// system can repair mechanically, e.g. by recomputing a cached balance.
type CriticalIssue struct {
	Code             string
	Message          string
	Priority         int
	AutoFixAvailable bool
}

// Result is the three-tier outcome of validating one proposed mutation.
type Result struct {
	Errors         []Error
	Warnings       []Warning
	CriticalIssues []CriticalIssue
	Score          int
}

// Blocks reports whether this result should stop the operation under the
// given mode. The score never gates anything; only errors and critical
// issues do, and only in strict mode.
func (r Result) Blocks(mode Mode) bool {
	if mode != ModeStrict {
		return false
	}
	return len(r.Errors) > 0 || len(r.CriticalIssues) > 0
}

// Score deduction weights.
const (
	deductCritical = 25
	deductHigh     = 15
	deductMedium   = 10
	deductLow      = 5

	deductWarnHigh   = 5
	deductWarnMedium = 3
	deductWarnLow    = 1
)

// computeScore derives the advisory 0-100 health score from findings.
func computeScore(errors []Error, warnings []Warning) int {
	score := 100
	for _, e := range errors {
		switch e.Severity {
		case SeverityCritical:
			score -= deductCritical
		case SeverityHigh:
			score -= deductHigh
		case SeverityMedium:
			score -= deductMedium
		case SeverityLow:
			score -= deductLow
		}
	}
	for _, w := range warnings {
		switch w.Impact {
		case ImpactHigh:
			score -= deductWarnHigh
		case ImpactMedium:
			score -= deductWarnMedium
		case ImpactLow:
			score -= deductWarnLow
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
