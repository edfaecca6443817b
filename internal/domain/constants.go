package domain

const (
	AssetKindPhoto = "PHOTO"
	AssetKindVideo = "VIDEO"
)

const (
	AssetStatusProcessing = "PROCESSING"
	AssetStatusReady      = "READY"
	AssetStatusFailed     = "FAILED"
)

const (
	AspectSquare     = "SQUARE"
	AspectVertical   = "VERTICAL"
	AspectWidescreen = "WIDESCREEN"
)

// Ledger reasons
const (
	LedgerReasonGeneration = "generation"
	LedgerReasonRefund     = "refund"
	LedgerReasonGrant      = "grant"
)

// Ledger references
const (
	LedgerRefPending          = "pending"
	LedgerRefGenerationFailed = "generation_failed"
	LedgerRefSignup           = "signup"
)

// Dimensions returns the pixel size rendered for an aspect. Unknown aspects render square.
func Dimensions(aspect string) (width, height int) {
	switch aspect {
	case AspectVertical:
		return 1080, 1920
	case AspectWidescreen:
		return 1920, 1080
	default:
		return 1080, 1080
	}
}

// AspectRatio is the provider-facing ratio string for an aspect.
func AspectRatio(aspect string) string {
	switch aspect {
	case AspectVertical:
		return "9:16"
	case AspectWidescreen:
		return "16:9"
	default:
		return "1:1"
	}
}
