// Package accumulator implements the proof accumulator: the per-identifier
// state machine that collects untrusted nodeblock.NodeBlock votes until a
// quorum of distinct signers is reached, at which point it hands back a
// certified block.Block exactly once. It is the bridge between raw network
// gossip and the committed DataChain.
package accumulator

import (
	"container/list"
	"sync"

	"github.com/dirvine/data-chain/block"
	"github.com/dirvine/data-chain/identifier"
	"github.com/dirvine/data-chain/keys"
	"github.com/dirvine/data-chain/nodeblock"
)

// Status reports the outcome of a Submit call.
type Status uint8

const (
	// Pending means the vote was accepted but quorum has not yet been
	// reached for this identifier.
	Pending Status = iota
	// Ready means this vote brought the identifier to quorum; Submit's
	// returned Block is the certified result and should be appended to the
	// chain. The identifier is retained as a committed tombstone and will
	// refuse any further votes with AlreadyCommitted until Purge is called
	// for it.
	Ready
)

type entry struct {
	identifier identifier.BlockIdentifier
	groupKeys  []keys.PublicKey
	signers    map[string]keys.Signature
	committed  bool
	elem       *list.Element
}

// Accumulator collects NodeBlock votes per identifier and emits certified
// Blocks once quorum is reached. It is safe for concurrent use.
type Accumulator struct {
	mu       sync.Mutex
	quorum   int
	capacity int
	entries  map[string]*entry
	lru      *list.List // front = most recently touched
}

// New builds an Accumulator requiring quorum distinct signers per
// identifier before it is considered certified, bounded to capacity
// concurrently-pending identifiers. When capacity is reached, the least
// recently touched non-committed entry is evicted to make room. Committed
// entries are never subject to this bound: once an identifier reaches
// quorum it is held as a tombstone, regardless of capacity, until the
// caller explicitly calls Purge for it (typically once the corresponding
// Block has actually been appended to the chain).
func New(quorum, capacity int) *Accumulator {
	return &Accumulator{
		quorum:   quorum,
		capacity: capacity,
		entries:  make(map[string]*entry),
		lru:      list.New(),
	}
}

// Submit records nb's vote. groupSize bounds the number of distinct signers
// an identifier may accumulate before further votes are rejected, matching
// the upper bound block.CheckCardinality enforces on a committed Block.
// groupKeys must be supplied (and non-empty) whenever nb.Identifier is a
// link identifier, since a NodeBlock itself carries no group information and
// the link's hash cannot be reversed into its member keys; it must be
// omitted for non-link identifiers.
//
// On success it returns either Pending (quorum not yet reached) or Ready
// together with the certified Block, in which case the identifier is held
// as a committed tombstone and any further Submit for it is rejected with
// AlreadyCommitted until Purge is called.
func (a *Accumulator) Submit(nb nodeblock.NodeBlock, groupSize int, groupKeys ...keys.PublicKey) (Status, *block.Block, error) {
	if !nb.Verify() {
		return Pending, nil, NewRejectError(InvalidSignature, nb.Identifier.Hash().String())
	}
	if nb.Identifier.IsLink() && len(groupKeys) == 0 {
		return Pending, nil, NewRejectError(MissingGroupKeys, nb.Identifier.Hash().String())
	}
	if nb.Identifier.IsLink() {
		member := false
		for _, k := range groupKeys {
			if k.Compare(nb.Signer) == 0 {
				member = true
				break
			}
		}
		if !member {
			return Pending, nil, NewRejectError(NotInGroup, nb.Signer.String())
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := string(nb.Identifier.Encode())

	e, ok := a.entries[key]
	if !ok {
		e = &entry{
			identifier: nb.Identifier,
			groupKeys:  groupKeys,
			signers:    make(map[string]keys.Signature),
		}
		a.entries[key] = e
		e.elem = a.lru.PushFront(key)
		a.evictIfNeeded()
	} else {
		if e.committed {
			return Pending, nil, NewRejectError(AlreadyCommitted, nb.Identifier.Hash().String())
		}
		a.lru.MoveToFront(e.elem)
	}

	signerHex := nb.Signer.String()
	if _, dup := e.signers[signerHex]; dup {
		return Pending, nil, NewRejectError(DuplicateSigner, signerHex)
	}
	if len(e.signers) >= groupSize {
		return Pending, nil, NewRejectError(NotInGroup, signerHex)
	}
	e.signers[signerHex] = nb.Signature

	if len(e.signers) < a.quorum {
		return Pending, nil, nil
	}

	blk, err := block.New(nb.Identifier, e.groupKeys)
	if err != nil {
		return Pending, nil, err
	}
	for hexKey, sig := range e.signers {
		blk.Proofs[hexKey] = sig
	}

	e.committed = true
	a.lru.Remove(e.elem)
	e.elem = nil

	return Ready, blk, nil
}

// Purge removes any trace of id from the accumulator, pending or committed.
// Callers should call this once a certified Block has actually been
// appended to the chain, freeing the tombstone Ready leaves behind; calling
// it on an unknown identifier is a harmless no-op.
func (a *Accumulator) Purge(id identifier.BlockIdentifier) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := string(id.Encode())
	e, ok := a.entries[key]
	if !ok {
		return
	}
	if e.elem != nil {
		a.lru.Remove(e.elem)
	}
	delete(a.entries, key)
}

// Pending reports how many distinct signers have voted so far for id, and
// whether it is known at all.
func (a *Accumulator) Pending(id identifier.BlockIdentifier) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[string(id.Encode())]
	if !ok {
		return 0, false
	}
	return len(e.signers), true
}

// Len returns the number of identifiers the accumulator currently knows
// about, pending or committed — committed identifiers remain counted until
// Purge is called for them.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// evictIfNeeded drops the least recently touched pending entry once the
// accumulator is tracking more than capacity of them. Committed tombstones
// are never in the LRU list (see Submit/Purge) and so never count against
// this bound. Called with a.mu held.
func (a *Accumulator) evictIfNeeded() {
	if a.capacity <= 0 {
		return
	}
	for a.lru.Len() > a.capacity {
		oldest := a.lru.Back()
		if oldest == nil {
			return
		}
		key := oldest.Value.(string)
		a.lru.Remove(oldest)
		delete(a.entries, key)
	}
}
