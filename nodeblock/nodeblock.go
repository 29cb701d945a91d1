// Package nodeblock implements NodeBlock, an untrusted vote cast by one
// group member for a BlockIdentifier. NodeBlocks are the raw material fed
// into a Proof accumulator (package accumulator); they are never themselves
// part of a committed chain.
package nodeblock

import (
	"github.com/dirvine/data-chain/identifier"
	"github.com/dirvine/data-chain/keys"
)

// NodeBlock is a single (identifier, signer public key, signature) triple,
// as emitted by one group member observing a data or churn event.
type NodeBlock struct {
	Identifier identifier.BlockIdentifier
	Signer     keys.PublicKey
	Signature  keys.Signature
}

// New signs data_identifier's canonical encoding with priv and returns the
// resulting vote.
func New(priv *keys.PrivateKey, dataIdentifier identifier.BlockIdentifier) (NodeBlock, error) {
	sig, err := keys.Sign(priv, dataIdentifier.Encode())
	if err != nil {
		return NodeBlock{}, err
	}
	return NodeBlock{
		Identifier: dataIdentifier,
		Signer:     priv.Public(),
		Signature:  sig,
	}, nil
}

// Verify recomputes the identifier's canonical encoding and checks the
// signature against it. A well-formed NodeBlock is one for which Verify
// returns true.
func (nb NodeBlock) Verify() bool {
	return keys.Verify(nb.Signer, nb.Identifier.Encode(), nb.Signature)
}
