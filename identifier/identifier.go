package identifier

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/dirvine/data-chain/keys"
)

// DigestLen is the fixed output width of the hash function used throughout
// this module.
const DigestLen = sha256.Size

// Digest is a fixed-width content hash.
type Digest [DigestLen]byte

// String returns the hexadecimal representation of the digest.
func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// Kind distinguishes the three shapes a BlockIdentifier can take. Values are
// explicit, stable integers: they are part of the canonical wire encoding.
type Kind uint8

const (
	// KindImmutable names a piece of immutable data by its content hash.
	KindImmutable Kind = 0
	// KindStructured names a structured data record by a fixed name and a
	// monotonically increasing version, alongside the hash of its current
	// content.
	KindStructured Kind = 1
	// KindLink names a close-group membership set by the hash of its
	// sorted member public keys. It carries no externally meaningful name.
	KindLink Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindImmutable:
		return "Immutable"
	case KindStructured:
		return "Structured"
	case KindLink:
		return "Link"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// BlockIdentifier is the tagged variant naming what a Block is about.
type BlockIdentifier struct {
	kind    Kind
	hash    Digest
	name    Digest
	version uint64
}

// NewImmutable builds an identifier for a piece of immutable data, named by
// its own content hash.
func NewImmutable(hash Digest) BlockIdentifier {
	return BlockIdentifier{kind: KindImmutable, hash: hash}
}

// NewStructured builds an identifier for a structured data record: hash is
// the hash of its current content, name is its fixed identity, version is
// its revision number.
func NewStructured(hash, name Digest, version uint64) BlockIdentifier {
	return BlockIdentifier{kind: KindStructured, hash: hash, name: name, version: version}
}

// NewLink builds a link identifier from an already-computed group digest.
// Most callers should use CreateLinkDescriptor instead.
func NewLink(digest Digest) BlockIdentifier {
	return BlockIdentifier{kind: KindLink, hash: digest}
}

// Kind reports which variant this identifier is.
func (b BlockIdentifier) Kind() Kind { return b.kind }

// IsLink reports whether this identifier is a link.
func (b BlockIdentifier) IsLink() bool { return b.kind == KindLink }

// Hash returns the identifier's content hash: the data's own hash for
// Immutable and Structured identifiers, the group digest for Link
// identifiers.
func (b BlockIdentifier) Hash() Digest { return b.hash }

// Name returns the identifier's externally meaningful name and whether it
// has one. Immutable data's name is its hash; Structured data's name is its
// fixed name field; Link identifiers have no name.
func (b BlockIdentifier) Name() (Digest, bool) {
	switch b.kind {
	case KindImmutable:
		return b.hash, true
	case KindStructured:
		return b.name, true
	default:
		return Digest{}, false
	}
}

// Version returns the version of a Structured identifier, or 0 for other
// kinds.
func (b BlockIdentifier) Version() uint64 { return b.version }

// Equal reports whether two identifiers are semantically identical.
func (b BlockIdentifier) Equal(o BlockIdentifier) bool {
	return b.kind == o.kind && b.hash == o.hash && b.name == o.name && b.version == o.version
}

// Encode produces the canonical, deterministic binary encoding of b. This is
// the byte string that gets signed, so it must be byte-identical for
// semantically equal identifiers across any implementation: the variant tag
// is one explicit byte, digests are emitted at their fixed width with no
// length prefix, and the version is 8 bytes little-endian.
func (b BlockIdentifier) Encode() []byte {
	switch b.kind {
	case KindImmutable:
		out := make([]byte, 1+DigestLen)
		out[0] = byte(KindImmutable)
		copy(out[1:], b.hash[:])
		return out
	case KindStructured:
		out := make([]byte, 1+DigestLen+DigestLen+8)
		out[0] = byte(KindStructured)
		copy(out[1:1+DigestLen], b.hash[:])
		copy(out[1+DigestLen:1+2*DigestLen], b.name[:])
		binary.LittleEndian.PutUint64(out[1+2*DigestLen:], b.version)
		return out
	case KindLink:
		out := make([]byte, 1+DigestLen)
		out[0] = byte(KindLink)
		copy(out[1:], b.hash[:])
		return out
	default:
		return nil
	}
}

// Decode is the inverse of Encode.
func Decode(data []byte) (BlockIdentifier, error) {
	if len(data) == 0 {
		return BlockIdentifier{}, fmt.Errorf("identifier: empty encoding")
	}
	kind := Kind(data[0])
	switch kind {
	case KindImmutable, KindLink:
		if len(data) != 1+DigestLen {
			return BlockIdentifier{}, fmt.Errorf("identifier: bad length %d for kind %s", len(data), kind)
		}
		var d Digest
		copy(d[:], data[1:])
		if kind == KindImmutable {
			return NewImmutable(d), nil
		}
		return NewLink(d), nil
	case KindStructured:
		want := 1 + DigestLen + DigestLen + 8
		if len(data) != want {
			return BlockIdentifier{}, fmt.Errorf("identifier: bad length %d for kind %s, want %d", len(data), kind, want)
		}
		var hash, name Digest
		copy(hash[:], data[1:1+DigestLen])
		copy(name[:], data[1+DigestLen:1+2*DigestLen])
		version := binary.LittleEndian.Uint64(data[1+2*DigestLen:])
		return NewStructured(hash, name, version), nil
	default:
		return BlockIdentifier{}, fmt.Errorf("identifier: unknown kind tag %d", data[0])
	}
}

// CreateLinkDescriptor hashes the canonical-sorted concatenation of group
// keys and returns the resulting Link identifier. It is idempotent under
// permutation of the input set, since the keys are sorted before hashing.
func CreateLinkDescriptor(group []keys.PublicKey) BlockIdentifier {
	sorted := make([]keys.PublicKey, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Compare(sorted[j]) < 0
	})

	h := sha256.New()
	for _, k := range sorted {
		h.Write(k)
	}

	var digest Digest
	copy(digest[:], h.Sum(nil))
	return NewLink(digest)
}
