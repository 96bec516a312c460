package compression

// Reason explains why the gate rejected an exchange.
type Reason int

const (
	// ReasonNone is the zero value carried by accepted verdicts.
	ReasonNone Reason = iota
	RequestNotCompatible
	IncompatibleMimeType
	AlreadyCompressed
	ContentLengthTooSmall
)

// rejectionPrefix starts every audit message for a rejected exchange.
const rejectionPrefix = "(After Request) Web Call Rejected. "

// String returns the reason token used in logs and metric labels.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case RequestNotCompatible:
		return "request_not_compatible"
	case IncompatibleMimeType:
		return "incompatible_mime_type"
	case AlreadyCompressed:
		return "already_compressed"
	case ContentLengthTooSmall:
		return "content_length_too_small"
	default:
		return "unknown"
	}
}

// Message returns the human-readable audit message for the reason.
func (r Reason) Message() string {
	switch r {
	case RequestNotCompatible:
		return rejectionPrefix + "Request Is Not Gzip Compatible"
	case IncompatibleMimeType:
		return rejectionPrefix + "Response Is Not a Compatible Mime-Type"
	case AlreadyCompressed:
		return rejectionPrefix + "Response Is Already Compressed"
	case ContentLengthTooSmall:
		return rejectionPrefix + "Content-Length Is Too Small"
	default:
		return rejectionPrefix + "Unknown Reason"
	}
}

// Verdict is the outcome of evaluating one exchange.
type Verdict struct {
	Accepted bool
	Reason   Reason
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Reject returns a rejecting verdict with the given reason.
func Reject(r Reason) Verdict {
	return Verdict{Reason: r}
}

// Label returns "accepted" or the rejection reason token.
func (v Verdict) Label() string {
	if v.Accepted {
		return "accepted"
	}
	return v.Reason.String()
}
