// Package block implements Block, the committed unit of a DataChain: an
// identifier together with the set of member signatures that attest to it.
// A Block is produced once an accumulator.Accumulator reaches quorum for a
// given identifier; from that point on it is immutable except for the
// tombstone Deleted bit.
package block

import (
	"fmt"

	"github.com/dirvine/data-chain/identifier"
	"github.com/dirvine/data-chain/keys"
)

// Block is a quorum-certified attestation for an identifier. Proofs maps a
// signer's hex-encoded public key to its signature over the identifier's
// canonical encoding, following the same [validator hex] => signature shape
// babble uses for its own block signatures.
//
// GroupKeys is only meaningful when Identifier.IsLink(): it carries the full
// candidate membership set that produced the link's hash, since the hash
// itself cannot be reversed into its member keys. It lets CheckLinkSubset
// verify that every signer in Proofs is actually a member of the group the
// link names, and that the group hashes to Identifier.
type Block struct {
	Identifier identifier.BlockIdentifier
	Proofs     map[string]keys.Signature
	GroupKeys  []keys.PublicKey
	Deleted    bool
}

// New builds an empty, unsigned Block for identifier id. Link identifiers
// must supply their full candidate group; other kinds must not.
func New(id identifier.BlockIdentifier, groupKeys []keys.PublicKey) (*Block, error) {
	if id.IsLink() {
		if len(groupKeys) == 0 {
			return nil, fmt.Errorf("block: link identifier requires a non-empty group key set")
		}
		if !identifier.CreateLinkDescriptor(groupKeys).Equal(id) {
			return nil, fmt.Errorf("block: group keys do not hash to the given link identifier")
		}
	} else if len(groupKeys) != 0 {
		return nil, fmt.Errorf("block: non-link identifier must not carry group keys")
	}

	return &Block{
		Identifier: id,
		Proofs:     make(map[string]keys.Signature),
		GroupKeys:  groupKeys,
	}, nil
}

// AddProof records a signer's signature over the block's identifier. It does
// not itself verify the signature; callers that build a Block from untrusted
// NodeBlocks should call VerifyProofs afterwards.
func (b *Block) AddProof(signer keys.PublicKey, sig keys.Signature) {
	b.Proofs[signer.String()] = sig
}

// SignerCount returns the number of distinct signers attesting to this
// block.
func (b *Block) SignerCount() int {
	return len(b.Proofs)
}

// SignerSet reconstructs the set of public keys that signed this block by
// decoding the hex-encoded Proofs keys.
func (b *Block) SignerSet() ([]keys.PublicKey, error) {
	out := make([]keys.PublicKey, 0, len(b.Proofs))
	for hexKey := range b.Proofs {
		k, err := keys.PublicKeyFromHex(hexKey)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// VerifyProofs checks that every recorded proof is a valid signature over
// the block's canonical identifier encoding, decoding each signer's public
// key from its hex-encoded Proofs key.
func (b *Block) VerifyProofs() bool {
	payload := b.Identifier.Encode()
	for hexKey, sig := range b.Proofs {
		k, err := keys.PublicKeyFromHex(hexKey)
		if err != nil {
			return false
		}
		if !keys.Verify(k, payload, sig) {
			return false
		}
	}
	return true
}

// CheckCardinality reports whether the number of signers falls within
// [quorum, groupSize], the bounds every committed Block must respect: a
// block certified by fewer than quorum signers was never actually agreed,
// and one certified by more than groupSize signers names more signers than
// the group could ever contain.
func (b *Block) CheckCardinality(quorum, groupSize int) bool {
	n := b.SignerCount()
	return n >= quorum && n <= groupSize
}

// CheckLinkSubset verifies the link-block invariant: GroupKeys must hash to
// Identifier, and every signer recorded in Proofs must be a member of
// GroupKeys. It is a no-op success for non-link blocks.
func (b *Block) CheckLinkSubset() bool {
	if !b.Identifier.IsLink() {
		return true
	}
	if !identifier.CreateLinkDescriptor(b.GroupKeys).Equal(b.Identifier) {
		return false
	}
	members := make(map[string]struct{}, len(b.GroupKeys))
	for _, k := range b.GroupKeys {
		members[k.String()] = struct{}{}
	}
	for hexKey := range b.Proofs {
		if _, ok := members[hexKey]; !ok {
			return false
		}
	}
	return true
}

// Validate runs every structural and cryptographic check a committed Block
// must pass: valid proofs, cardinality within [quorum, groupSize], and (for
// link blocks) signer membership in the group the link names.
func (b *Block) Validate(quorum, groupSize int) error {
	if !b.VerifyProofs() {
		return fmt.Errorf("block: one or more proofs failed signature verification")
	}
	if !b.CheckCardinality(quorum, groupSize) {
		return fmt.Errorf("block: signer count %d outside bounds [%d, %d]", b.SignerCount(), quorum, groupSize)
	}
	if !b.CheckLinkSubset() {
		return fmt.Errorf("block: link block signers are not a subset of its group")
	}
	return nil
}
