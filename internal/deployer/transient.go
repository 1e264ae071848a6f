// File: internal/deployer/transient.go
// Brief: Retry classification for registry pushes.

package deployer

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// transient reports whether a registry failure is a network-class fault
// worth retrying. Authorization and not-found failures are permanent.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe"):
		return true
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "temporarily unavailable"):
		return true
	}
	return false
}
