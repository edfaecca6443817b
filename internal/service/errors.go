package service

import "errors"

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrValidationFailed   = errors.New("invalid input data")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrLedgerWriteFailed  = errors.New("ledger write failed")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrRefundFailed       = errors.New("refund failed")
	ErrUnexpected         = errors.New("unexpected error")
)

// UserMessage is the text shown to the end user for an error returned by this package.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "Not authenticated"
	case errors.Is(err, ErrValidationFailed):
		return "Invalid input data"
	case errors.Is(err, ErrInsufficientTokens):
		return "Insufficient tokens"
	case errors.Is(err, ErrLedgerWriteFailed):
		return "Could not reserve tokens. Please try again."
	case errors.Is(err, ErrRefundFailed):
		return "Generation failed. Your refund is delayed and will be applied automatically."
	case errors.Is(err, ErrGenerationFailed):
		return "Generation failed. Tokens have been refunded."
	default:
		return "An unexpected error occurred"
	}
}
