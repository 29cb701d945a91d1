package chain

import "fmt"

// ErrType classifies why a DataChain operation refused to mutate the
// chain, mirroring babble's typed common.StoreErr: a fixed set of reasons
// callers can branch on rather than parsing error strings.
type ErrType uint32

const (
	// Signature means some proof in a block failed cryptographic
	// verification.
	Signature ErrType = iota
	// Majority means the rolling-quorum predicate failed between a pair of
	// blocks.
	Majority
	// EmptyMustBeLink means a non-link block was offered to seed an empty
	// chain.
	EmptyMustBeLink
	// LinkMismatch means a link block's signer set is not a subset of its
	// identifier's key set.
	LinkMismatch
	// LinkLoadBearing means a delete targeted a link that anchors
	// subsequent data blocks.
	LinkLoadBearing
	// NoCommonAnchor means merge could not find a quorum-equivalent shared
	// link between the two chains.
	NoCommonAnchor
	// MergeInvalid means a merged chain failed post-validation.
	MergeInvalid
	// NotFound means a delete target is absent from the chain.
	NotFound
)

func (t ErrType) String() string {
	switch t {
	case Signature:
		return "Signature"
	case Majority:
		return "Majority"
	case EmptyMustBeLink:
		return "EmptyMustBeLink"
	case LinkMismatch:
		return "LinkMismatch"
	case LinkLoadBearing:
		return "LinkLoadBearing"
	case NoCommonAnchor:
		return "NoCommonAnchor"
	case MergeInvalid:
		return "MergeInvalid"
	case NotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("ErrType(%d)", uint32(t))
	}
}

// Error is the error kind every failing chain operation returns.
type Error struct {
	Type ErrType
	Msg  string
}

// NewError builds an Error of the given type with a human-readable detail.
func NewError(t ErrType, msg string) Error {
	return Error{Type: t, Msg: msg}
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("chain: %s: %s", e.Type, e.Msg)
}

// IsErr reports whether err is a chain Error of the given type.
func IsErr(err error, t ErrType) bool {
	ce, ok := err.(Error)
	return ok && ce.Type == t
}
