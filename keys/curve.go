package keys

import (
	"crypto/elliptic"

	"github.com/btcsuite/btcd/btcec"
)

// Curve returns the elliptic.Curve used throughout this package. We use
// btcsuite's implementation of secp256k1.
func Curve() elliptic.Curve {
	return btcec.S256()
}

// keyByteLen is the fixed byte width of a padded scalar (r, s, or D) on
// secp256k1.
const keyByteLen = 32

// PublicKeyLen is the fixed byte width of the uncompressed point encoding
// produced by FromPublicKey.
const PublicKeyLen = 1 + 2*keyByteLen

// SignatureLen is the fixed byte width of an encoded Signature (r || s).
const SignatureLen = 2 * keyByteLen
