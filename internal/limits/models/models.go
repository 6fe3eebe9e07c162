package models

// CheckResult reports a spend-limit decision. Reason is user-presentable and
// includes the limit and amount already used when the check denies.
type CheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// VelocityResult reports a transaction-velocity decision. WaitSeconds is the
// suggested client backoff, fixed at the window length on denial.
type VelocityResult struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}
