package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// PublicKey is the uncompressed point encoding of an ECDSA public key. It is
// fixed-width and order-comparable, as required by the canonical link
// descriptor derivation (sorted concatenation of group member keys).
type PublicKey []byte

// Signature is a detached signature, encoded as the fixed-width
// concatenation of the padded r and s scalars.
type Signature []byte

// PrivateKey wraps an ecdsa.PrivateKey on the secp256k1 curve.
type PrivateKey struct {
	inner *ecdsa.PrivateKey
}

// GenerateKey creates a new random key pair.
func GenerateKey() (*PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(Curve(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{inner: priv}, nil
}

// Public returns the public key corresponding to priv.
func (priv *PrivateKey) Public() PublicKey {
	return FromECDSAPublicKey(&priv.inner.PublicKey)
}

// FromECDSAPublicKey encodes an *ecdsa.PublicKey in uncompressed point form.
func FromECDSAPublicKey(pub *ecdsa.PublicKey) PublicKey {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return PublicKey(elliptic.Marshal(Curve(), pub.X, pub.Y))
}

// ToECDSAPublicKey decodes a PublicKey back into an *ecdsa.PublicKey.
func ToECDSAPublicKey(pub PublicKey) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	if x == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// Compare gives a's canonical sort order relative to b. It is the order
// used to sort group members before deriving a link descriptor, so it must
// be total and stable across implementations: plain byte-wise comparison.
func (a PublicKey) Compare(b PublicKey) int {
	return bytes.Compare(a, b)
}

// String returns the hexadecimal representation of the key.
func (a PublicKey) String() string {
	return fmt.Sprintf("%x", []byte(a))
}

// PublicKeyFromHex decodes the hexadecimal representation produced by
// PublicKey.String back into a PublicKey.
func PublicKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("keys: invalid hex public key: %w", err)
	}
	return PublicKey(b), nil
}

// Sign signs data (expected to be the canonical encoding of a
// BlockIdentifier) with priv, using the standard library's pseudo-random
// source. The signature is taken over the SHA-256 digest of data, so every
// byte of data is covered.
func Sign(priv *PrivateKey, data []byte) (Signature, error) {
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv.inner, digest[:])
	if err != nil {
		return nil, err
	}
	return encodeSignature(r, s), nil
}

// Verify reports whether sig is a valid signature of data under pub.
func Verify(pub PublicKey, data []byte, sig Signature) bool {
	ecdsaPub := ToECDSAPublicKey(pub)
	if ecdsaPub == nil {
		return false
	}
	r, s, err := decodeSignature(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return ecdsa.Verify(ecdsaPub, digest[:], r, s)
}

func encodeSignature(r, s *big.Int) Signature {
	out := make([]byte, SignatureLen)
	paddedBigBytes(r, out[:keyByteLen])
	paddedBigBytes(s, out[keyByteLen:])
	return out
}

func decodeSignature(sig Signature) (r, s *big.Int, err error) {
	if len(sig) != SignatureLen {
		return nil, nil, fmt.Errorf("keys: invalid signature length %d, want %d", len(sig), SignatureLen)
	}
	r = new(big.Int).SetBytes(sig[:keyByteLen])
	s = new(big.Int).SetBytes(sig[keyByteLen:])
	return r, s, nil
}

// paddedBigBytes writes the big-endian bytes of bigint into out, which must
// be exactly the desired width; it left-pads with zeroes.
func paddedBigBytes(bigint *big.Int, out []byte) {
	b := bigint.Bytes()
	if len(b) > len(out) {
		b = b[len(b)-len(out):]
	}
	copy(out[len(out)-len(b):], b)
}
