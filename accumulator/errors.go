package accumulator

import "fmt"

// RejectReason classifies why Submit refused a NodeBlock, mirroring the
// typed dataType/errType/key shape of babble's common.StoreErr so callers
// can branch on the reason without parsing strings.
type RejectReason uint32

const (
	// DuplicateSigner means the identifier already has a vote on file from
	// this signer; a second vote from the same signer is never counted
	// twice toward quorum.
	DuplicateSigner RejectReason = iota
	// InvalidSignature means NodeBlock.Verify() returned false.
	InvalidSignature
	// AlreadyCommitted means this identifier already reached quorum and was
	// handed off; the at-most-once-commit gate refuses further votes for it.
	AlreadyCommitted
	// NotInGroup means the signer is not a member of the candidate group
	// supplied for a link identifier.
	NotInGroup
	// MissingGroupKeys means a link identifier was submitted without the
	// candidate group keys needed to check membership.
	MissingGroupKeys
)

func (r RejectReason) String() string {
	switch r {
	case DuplicateSigner:
		return "duplicate signer"
	case InvalidSignature:
		return "invalid signature"
	case AlreadyCommitted:
		return "already committed"
	case NotInGroup:
		return "signer not in group"
	case MissingGroupKeys:
		return "missing group keys"
	default:
		return fmt.Sprintf("RejectReason(%d)", uint32(r))
	}
}

// RejectError is returned by Submit when a NodeBlock is refused.
type RejectError struct {
	Reason RejectReason
	Key    string
}

// NewRejectError builds a RejectError for the given reason and identifying
// key (typically the identifier's hex digest).
func NewRejectError(reason RejectReason, key string) RejectError {
	return RejectError{Reason: reason, Key: key}
}

// Error implements the error interface.
func (e RejectError) Error() string {
	return fmt.Sprintf("accumulator: %s, %s", e.Reason, e.Key)
}

// IsReject reports whether err is a RejectError with the given reason.
func IsReject(err error, reason RejectReason) bool {
	re, ok := err.(RejectError)
	return ok && re.Reason == reason
}
