// Package keys implements the abstract digital-signature contract consumed
// by the rest of this module: key-pair generation, detached signing, and
// verification. The concrete scheme is ECDSA over the secp256k1 curve, the
// same choice babble makes for its validator keys, because it is a well
// understood curve with a mature pure-Go implementation and keeps public
// keys and signatures as plain, fixed-width, order-comparable byte strings.
package keys
