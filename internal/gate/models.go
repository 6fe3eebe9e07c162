package gate

import (
	"github.com/shopspring/decimal"

	"bankguard/internal/ledger"
	otpModels "bankguard/internal/otp/models"
	trustModels "bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
)

// Stage names the pipeline step a decision was reached at. A denied decision
// carries the stage that short-circuited; an allowed one is always decided.
type Stage string

const (
	StageSubmitted       Stage = "submitted"
	StageRateChecked     Stage = "rate_checked"
	StageVelocityChecked Stage = "velocity_checked"
	StageLimitChecked    Stage = "limit_checked"
	StageRiskScored      Stage = "risk_scored"
	StageStepUpRequired  Stage = "step_up_required"
	StageTrustChecked    Stage = "trust_checked"
	StageDecided         Stage = "decided"
)

// Request is a proposed transaction or sensitive action submitted for
// evaluation. StepUpAssertion carries a verification token from a prior
// step-up confirmation; it is optional and only consulted when the policy
// demands step-up.
type Request struct {
	UserID          id.UserID
	AccountID       id.AccountID
	Action          ledger.TransactionType
	Amount          decimal.Decimal
	IPAddress       string
	UserAgent       string
	AcceptLanguage  string
	AcceptEncoding  string
	Location        string
	StepUpAssertion string
}

// Decision is the gate's verdict. Allowed authorizes attempting the action;
// it does not guarantee the downstream ledger mutation succeeds. When
// RequiresStepUp is set the caller must complete OTP verification and
// resubmit with the resulting assertion.
type Decision struct {
	Allowed        bool                      `json:"allowed"`
	RequiresStepUp bool                      `json:"requires_step_up"`
	Reason         string                    `json:"reason,omitempty"`
	RiskScore      int                       `json:"risk_score"`
	Stage          Stage                     `json:"stage"`
	RetryAfter     int                       `json:"retry_after,omitempty"`
	NewDevice      bool                      `json:"new_device,omitempty"`
	SessionFlags   []trustModels.SessionFlag `json:"session_flags,omitempty"`
}

// StepUpPurpose is the OTP purpose the gate issues and accepts for
// transaction step-up.
const StepUpPurpose = otpModels.PurposeTransaction
