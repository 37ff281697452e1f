package ledger

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsAlreadyExists checks whether the participant rejected an operation
// because the resource already exists (e.g. rights already granted).
func IsAlreadyExists(err error) bool {
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.AlreadyExists
	}
	return false
}

// IsTimelyResponseError checks for the participant's "did not provide a
// timely response" condition raised under heavy load during asynchronous
// party allocation. It is the one ledger failure callers resolve by bounded
// polling instead of propagating.
func IsTimelyResponseError(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.DeadlineExceeded || s.Code() == codes.Aborted {
			return true
		}
	}
	return strings.Contains(err.Error(), "timely response")
}
