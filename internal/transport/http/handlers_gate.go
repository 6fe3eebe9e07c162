package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bankguard/internal/gate"
	"bankguard/internal/ledger"
	otpModels "bankguard/internal/otp/models"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
	"bankguard/pkg/validation"
)

type evaluateRequest struct {
	UserID          string `json:"user_id" validate:"required,uuid"`
	AccountID       string `json:"account_id" validate:"required,uuid"`
	Action          string `json:"action" validate:"required,oneof=deposit withdrawal transfer payment wire"`
	Amount          string `json:"amount" validate:"required"`
	Location        string `json:"location"`
	StepUpAssertion string `json:"step_up_assertion"`
}

// handleEvaluate implements POST /gate/evaluate. Client IP and User-Agent
// come from the request itself, not the body, so callers cannot spoof the
// device fingerprint inputs.
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON in request body"))
		return
	}
	if err := validation.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "user_id must be a valid uuid"))
		return
	}
	accountID, err := id.ParseAccountID(req.AccountID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "account_id must be a valid uuid"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "amount must be a decimal number"))
		return
	}

	decision, err := h.gate.Evaluate(ctx, gate.Request{
		UserID:          userID,
		AccountID:       accountID,
		Action:          ledger.TransactionType(req.Action),
		Amount:          amount,
		IPAddress:       requestcontext.ClientIP(ctx),
		UserAgent:       requestcontext.UserAgent(ctx),
		AcceptLanguage:  r.Header.Get("Accept-Language"),
		AcceptEncoding:  r.Header.Get("Accept-Encoding"),
		Location:        req.Location,
		StepUpAssertion: req.StepUpAssertion,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "gate evaluation failed",
			"error", err,
			"account_id", req.AccountID,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

type stepUpIssueRequest struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	Purpose     string `json:"purpose" validate:"required,oneof=transaction 2fa password_reset email_verification"`
	Channel     string `json:"channel" validate:"required,oneof=email sms"`
	Destination string `json:"destination" validate:"required,notblank"`
}

type stepUpIssueResponse struct {
	CodeID    string    `json:"code_id"`
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleStepUpIssue implements POST /stepup/issue. The code itself travels
// only over the delivery channel; the response carries just the handle.
func (h *Handler) handleStepUpIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req stepUpIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON in request body"))
		return
	}
	if err := validation.Validate(req); err != nil {
		writeError(w, err)
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "user_id must be a valid uuid"))
		return
	}

	result, err := h.gate.IssueStepUp(ctx, userID, otpModels.Purpose(req.Purpose), otpModels.Channel(req.Channel), req.Destination)
	if err != nil {
		h.logger.WarnContext(ctx, "step-up issue failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, stepUpIssueResponse{
		CodeID:    result.CodeID.String(),
		Channel:   string(result.Channel),
		ExpiresAt: result.ExpiresAt,
	})
}

type stepUpConfirmRequest struct {
	UserID  string `json:"user_id" validate:"required,uuid"`
	Purpose string `json:"purpose" validate:"required,oneof=transaction 2fa password_reset email_verification"`
	Code    string `json:"code" validate:"required,len=6"`
}

// handleStepUpConfirm implements POST /stepup/confirm. An invalid code is a
// 200 with valid=false; only malformed requests and infrastructure failures
// surface as errors.
func (h *Handler) handleStepUpConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req stepUpConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON in request body"))
		return
	}
	if err := validation.Validate(req); err != nil {
		writeError(w, err)
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "user_id must be a valid uuid"))
		return
	}

	result, err := h.gate.ConfirmStepUp(ctx, userID, otpModels.Purpose(req.Purpose), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
