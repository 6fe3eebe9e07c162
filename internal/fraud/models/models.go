package models

// SuspiciousThreshold is the score at or above which the orchestrator treats
// an assessment as suspicious. Independent of the severity label.
const SuspiciousThreshold = 40

// Severity buckets an assessment for alert routing.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityForScore maps a clamped score to its severity bucket.
func SeverityForScore(score int) Severity {
	switch {
	case score >= 75:
		return SeverityCritical
	case score >= 50:
		return SeverityHigh
	case score >= 25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Signal is one rule's contribution to an assessment. A rule that errored
// is recorded as non-triggered with the failure noted in Detail, so a single
// malformed input never aborts the whole evaluation.
type Signal struct {
	Rule      string `json:"rule"`
	Triggered bool   `json:"triggered"`
	Weight    int    `json:"weight"`
	Detail    string `json:"detail,omitempty"`
}

// Assessment is the scorer's verdict on a single proposed transaction.
// It is advisory; the orchestrator decides what Suspicious implies.
type Assessment struct {
	Score      int      `json:"score"`
	Severity   Severity `json:"severity"`
	Suspicious bool     `json:"suspicious"`
	Signals    []Signal `json:"signals"`
}

// Pattern identifies a cross-transaction behavioral finding.
type Pattern string

const (
	PatternStructuring      Pattern = "structuring"
	PatternRapidTurnover    Pattern = "rapid_turnover"
	PatternGeographicSpread Pattern = "geographic_spread"
)

// PatternFinding is one detected behavioral pattern over an account's
// history. Each finding is alertable on its own, independent of any single
// transaction's score.
type PatternFinding struct {
	Pattern     Pattern  `json:"pattern"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}
