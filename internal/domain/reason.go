package domain

// RejectReason describes why a download was not kept.
type RejectReason string

const (
	ReasonNone      RejectReason = ""
	ReasonTransport RejectReason = "transport"
	ReasonFormat    RejectReason = "format"
	ReasonTooSmall  RejectReason = "too_small"
	ReasonTooLarge  RejectReason = "too_large"
	ReasonStorage   RejectReason = "storage"
	ReasonDeadline  RejectReason = "deadline"
)

// Terminal reports whether a rejection happened after a body was received,
// meaning another attempt could not change the result.
func (r RejectReason) Terminal() bool {
	switch r {
	case ReasonFormat, ReasonTooSmall, ReasonTooLarge:
		return true
	default:
		return false
	}
}
