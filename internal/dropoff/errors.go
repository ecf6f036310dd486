package dropoff

import "errors"

// Error codes returned by the verification pipeline
const (
	CodeInvalidRequest       = "invalid_request"
	CodeStaleCapture         = "stale_capture"
	CodeInvalidTimestamp     = "invalid_timestamp"
	CodeUserNotFound         = "user_not_found"
	CodeBinNotFound          = "bin_not_found"
	CodeBinUnavailable       = "bin_unavailable"
	CodeOutOfRange           = "out_of_range"
	CodeRateLimited          = "rate_limited"
	CodeNoValidItems         = "no_valid_items"
	CodeDuplicateTransaction = "duplicate_transaction"
	CodeInternal             = "internal_error"
)

// VerificationError is a rejection from the drop-off pipeline. Message is
// user-facing and actionable; Status is the HTTP status the handler should
// return.
type VerificationError struct {
	Code    string
	Status  int
	Message string
}

func (e *VerificationError) Error() string {
	return e.Message
}

// Sentinel errors surfaced by BinSource and Store implementations
var (
	ErrBinNotFound          = errors.New("bin not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrRateLimited          = errors.New("daily drop-off limit reached")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
)
