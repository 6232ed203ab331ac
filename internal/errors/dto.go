package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorResponse is the envelope every failed API call returns.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the caller-facing message plus any fields attached
// with WithReportableDetails.
type ErrorDetail struct {
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the response body for err. The display message is
// the first non-empty hint on the chain; reportable detail payloads from
// every level of the chain are merged into Details.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: displayMessage(err),
			Details: reportableDetails(err),
		},
	}
}

func displayMessage(err error) string {
	// GetAllHints walks the chain in post-order, innermost hint first
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

func reportableDetails(err error) map[string]any {
	var details map[string]any
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			raw, ok := strings.CutPrefix(payload, safeDetailPrefix)
			if !ok {
				continue
			}
			var fields map[string]any
			if jsonErr := json.Unmarshal([]byte(raw), &fields); jsonErr != nil {
				continue
			}
			if details == nil {
				details = make(map[string]any, len(fields))
			}
			for k, v := range fields {
				details[k] = v
			}
		}
	}
	return details
}
