// File: internal/secrets/transient.go
// Brief: Transient-failure classification for secret-store calls.

package secrets

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// IsTransient reports whether a secret-store error is worth retrying. API
// throttling and fault-class errors are transient; validation and
// authorization failures are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "Throttling", "TooManyRequestsException",
			"RequestLimitExceeded", "ServiceUnavailable", "InternalServiceError",
			"InternalFailure":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "throttling") || strings.Contains(msg, "rate exceeded"):
		return true
	case strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe"):
		return true
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return true
	}
	return false
}
