package httpErrors

import (
	"net/http"

	dErrors "bankguard/pkg/domain-errors"
)

// ToHTTPStatus maps domain error codes to HTTP statuses so that handlers
// translate errors exactly once, in one place.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeOTPInvalid, dErrors.CodeOTPExpired:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeLimitExceeded, dErrors.CodeSuspiciousActivity:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeRateExceeded, dErrors.CodeVelocityExceeded, dErrors.CodeOTPAttemptsExhausted:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
