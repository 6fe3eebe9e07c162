package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "bankguard/pkg/domain-errors"
	httpErrors "bankguard/pkg/http-errors"
)

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeError centralizes domain error translation so every handler emits the
// same error envelope.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{"error": string(domainErr.Code)}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		writeJSON(w, httpErrors.ToHTTPStatus(domainErr.Code), response)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}
