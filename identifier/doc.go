// Package identifier implements BlockIdentifier, the tagged variant naming
// what a Block is about: an immutable-data hash, a (hash, name, version)
// tuple for structured data, or a link descriptor derived from a close-group
// membership set.
//
// The canonical encoding produced by Encode is the byte string that gets
// signed: it is deliberately hand-written on top of encoding/binary rather
// than routed through a general-purpose codec, because two semantically
// equal identifiers must produce byte-identical encodings across
// implementations, which rules out anything that treats field layout as an
// implementation detail.
package identifier
