// Package persist implements the on-disk representations a node uses to
// survive a restart: the chain file (an ordered block.Block sequence behind
// a fixed binary header), the peer-memory file (a length-prefixed sorted
// list of every public key previously observed, per spec §6), and a
// Badger-backed mirror of that same peer set for fast point lookups without
// re-parsing the file. Block encoding follows the same
// Marshal/Unmarshal/Hash shape the teacher's hashgraph.Frame uses, swapping
// its canonical JSON handle for a canonical CBOR handle: this payload is
// binary-heavy (hashes, keys, signatures) where CBOR avoids base64/hex
// bloat. The peer file itself is plain length-prefixed binary, not CBOR: it
// is a flat list with no nested structure to gain from a self-describing
// codec.
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/ugorji/go/codec"

	"github.com/dirvine/data-chain/block"
	"github.com/dirvine/data-chain/identifier"
	"github.com/dirvine/data-chain/keys"
)

const (
	chainFileMagic   = "DCF1"
	chainFileVersion = uint32(1)
)

// blockWire is the on-disk shape of a block.Block. BlockIdentifier's fields
// are unexported, so it travels as its own canonical binary encoding rather
// than as a struct the codec could reflect over directly.
type blockWire struct {
	Identifier []byte
	Proofs     map[string]keys.Signature
	GroupKeys  []keys.PublicKey
	Deleted    bool
}

func toWire(b *block.Block) blockWire {
	return blockWire{
		Identifier: b.Identifier.Encode(),
		Proofs:     b.Proofs,
		GroupKeys:  b.GroupKeys,
		Deleted:    b.Deleted,
	}
}

func fromWire(w blockWire) (*block.Block, error) {
	id, err := identifier.Decode(w.Identifier)
	if err != nil {
		return nil, fmt.Errorf("persist: decoding block identifier: %w", err)
	}
	return &block.Block{
		Identifier: id,
		Proofs:     w.Proofs,
		GroupKeys:  w.GroupKeys,
		Deleted:    w.Deleted,
	}, nil
}

func cborHandle() *codec.CborHandle {
	ch := new(codec.CborHandle)
	ch.Canonical = true
	return ch
}

// MarshalBlock canonically encodes a single block.
func MarshalBlock(b *block.Block) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := codec.NewEncoder(buf, cborHandle())
	if err := enc.Encode(toWire(b)); err != nil {
		return nil, fmt.Errorf("persist: encoding block: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBlock is the inverse of MarshalBlock.
func UnmarshalBlock(data []byte) (*block.Block, error) {
	var w blockWire
	dec := codec.NewDecoder(bytes.NewReader(data), cborHandle())
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("persist: decoding block: %w", err)
	}
	return fromWire(w)
}

const (
	peerFileMagic   = "DCP1"
	peerFileVersion = uint32(1)
)

// EncodePeerFile serializes the literal peer-memory file format: a 4-byte
// magic, a little-endian uint32 version, a little-endian uint32 entry
// count, then that many length-prefixed public keys in sorted order —
// sorted so the file is deterministic regardless of the order keys were
// remembered in, and length-prefixed rather than fixed-width so the format
// does not silently break if PublicKeyLen ever changes.
func EncodePeerFile(peers []keys.PublicKey) ([]byte, error) {
	sorted := make([]keys.PublicKey, len(peers))
	copy(sorted, peers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Compare(sorted[j]) < 0
	})

	out := new(bytes.Buffer)
	out.WriteString(peerFileMagic)
	if err := binary.Write(out, binary.LittleEndian, peerFileVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(len(sorted))); err != nil {
		return nil, err
	}
	for _, pub := range sorted {
		if err := binary.Write(out, binary.LittleEndian, uint32(len(pub))); err != nil {
			return nil, err
		}
		out.Write(pub)
	}
	return out.Bytes(), nil
}

// DecodePeerFile is the inverse of EncodePeerFile.
func DecodePeerFile(data []byte) ([]keys.PublicKey, error) {
	headerLen := len(peerFileMagic) + 4 + 4
	if len(data) < headerLen {
		return nil, fmt.Errorf("persist: peer file shorter than its header")
	}
	if string(data[:len(peerFileMagic)]) != peerFileMagic {
		return nil, fmt.Errorf("persist: bad peer file magic")
	}

	r := bytes.NewReader(data[len(peerFileMagic):])

	var fileVersion uint32
	if err := binary.Read(r, binary.LittleEndian, &fileVersion); err != nil {
		return nil, err
	}
	if fileVersion != peerFileVersion {
		return nil, fmt.Errorf("persist: unsupported peer file version %d", fileVersion)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	peers := make([]keys.PublicKey, count)
	for i := range peers {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("persist: reading peer file entry %d length: %w", i, err)
		}
		pub := make(keys.PublicKey, n)
		if _, err := io.ReadFull(r, pub); err != nil {
			return nil, fmt.Errorf("persist: reading peer file entry %d: %w", i, err)
		}
		peers[i] = pub
	}
	return peers, nil
}

// EncodeChainFile serializes an ordered block sequence behind a fixed
// binary header: a 4-byte magic, a little-endian uint32 version, and a
// little-endian uint32 group size, followed by the canonical-CBOR-encoded
// block sequence.
func EncodeChainFile(groupSize int, blocks []*block.Block) ([]byte, error) {
	wires := make([]blockWire, len(blocks))
	for i, b := range blocks {
		wires[i] = toWire(b)
	}

	out := new(bytes.Buffer)
	out.WriteString(chainFileMagic)
	if err := binary.Write(out, binary.LittleEndian, chainFileVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(groupSize)); err != nil {
		return nil, err
	}

	enc := codec.NewEncoder(out, cborHandle())
	if err := enc.Encode(wires); err != nil {
		return nil, fmt.Errorf("persist: encoding chain file body: %w", err)
	}

	return out.Bytes(), nil
}

// DecodeChainFile is the inverse of EncodeChainFile.
func DecodeChainFile(data []byte) (groupSize int, blocks []*block.Block, err error) {
	headerLen := len(chainFileMagic) + 4 + 4
	if len(data) < headerLen {
		return 0, nil, fmt.Errorf("persist: chain file shorter than its header")
	}
	if string(data[:len(chainFileMagic)]) != chainFileMagic {
		return 0, nil, fmt.Errorf("persist: bad chain file magic")
	}

	r := bytes.NewReader(data[len(chainFileMagic):])

	var fileVersion uint32
	if err := binary.Read(r, binary.LittleEndian, &fileVersion); err != nil {
		return 0, nil, err
	}
	if fileVersion != chainFileVersion {
		return 0, nil, fmt.Errorf("persist: unsupported chain file version %d", fileVersion)
	}

	var gs uint32
	if err := binary.Read(r, binary.LittleEndian, &gs); err != nil {
		return 0, nil, err
	}

	var wires []blockWire
	dec := codec.NewDecoder(r, cborHandle())
	if err := dec.Decode(&wires); err != nil {
		return 0, nil, fmt.Errorf("persist: decoding chain file body: %w", err)
	}

	blocks = make([]*block.Block, len(wires))
	for i, w := range wires {
		b, err := fromWire(w)
		if err != nil {
			return 0, nil, err
		}
		blocks[i] = b
	}
	return int(gs), blocks, nil
}
