// Package chain implements DataChain: the ordered, append-mostly sequence
// of certified block.Block values that forms a self-validating ledger of
// data and group-membership attestations. It is grounded on babble's
// Hashgraph store/validate idiom, generalized from an event DAG to a
// linear, signer-set-linked sequence.
package chain

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/dirvine/data-chain/accumulator"
	"github.com/dirvine/data-chain/block"
	"github.com/dirvine/data-chain/identifier"
	"github.com/dirvine/data-chain/keys"
	"github.com/dirvine/data-chain/nodeblock"
	"github.com/dirvine/data-chain/peerset"
)

// DataChain is an ordered sequence of certified blocks plus the scalar
// group size they were certified against. The owning node is its sole
// writer; readers may hold an immutable snapshot safely.
type DataChain struct {
	groupSize int
	blocks    []*block.Block
}

// New creates an empty DataChain for a group of the given size.
func New(groupSize int) *DataChain {
	return &DataChain{groupSize: groupSize}
}

// GroupSize returns the chain's configured group size.
func (c *DataChain) GroupSize() int { return c.groupSize }

// Len returns the number of blocks currently held.
func (c *DataChain) Len() int { return len(c.blocks) }

// IsEmpty reports whether the chain holds no blocks at all.
func (c *DataChain) IsEmpty() bool { return len(c.blocks) == 0 }

// Blocks returns the chain's blocks in order. Callers must not mutate the
// returned slice or its elements.
func (c *DataChain) Blocks() []*block.Block { return c.blocks }

// quorum returns the strict-majority threshold for this chain's group
// size: group_size/2 + 1.
func (c *DataChain) quorum() int { return peerset.Quorum(c.groupSize) }

// rollingQuorumHolds reports whether a and b's signer sets intersect in
// strictly more than group_size/2 members — the "chained majority" tying
// each block to its predecessor.
func (c *DataChain) rollingQuorumHolds(a, b *block.Block) (bool, error) {
	aSet, err := a.SignerSet()
	if err != nil {
		return false, err
	}
	bSet, err := b.SignerSet()
	if err != nil {
		return false, err
	}
	return peerset.Intersect(aSet, bSet)*2 > c.groupSize, nil
}

// Validate holistically checks every block's signatures, link discipline
// (a non-empty chain's first block must be a link, per spec §3.4), and the
// rolling-quorum predicate across every adjacent pair. An empty chain is
// valid. Signature verification across blocks is independent (spec §5), so
// it runs over a bounded worker pool before the strictly sequential
// cardinality/link/rolling-quorum checks.
func (c *DataChain) Validate() error {
	if err := c.verifyProofsConcurrently(); err != nil {
		return err
	}

	if len(c.blocks) > 0 && !c.blocks[0].Identifier.IsLink() {
		return NewError(EmptyMustBeLink, "chain's first block must be a link")
	}

	for i, b := range c.blocks {
		if !b.CheckCardinality(c.quorum(), c.groupSize) {
			return NewError(Majority, "block at index has signer count outside quorum bounds")
		}
		if !b.CheckLinkSubset() {
			return NewError(LinkMismatch, "link block's signers are not a subset of its group")
		}
		if i == 0 {
			continue
		}
		ok, err := c.rollingQuorumHolds(c.blocks[i-1], b)
		if err != nil {
			return NewError(Signature, err.Error())
		}
		if !ok {
			return NewError(Majority, "adjacent blocks fail the rolling-quorum predicate")
		}
	}
	return nil
}

// verifyProofsConcurrently checks every block's proof set in parallel,
// bounded to GOMAXPROCS workers, since no block's signature verification
// depends on any other's (spec §5: "order-insensitive, so fork/join across
// blocks is sound"). Pass/fail is deterministic regardless of scheduling:
// it reports the lowest-indexed failing block, matching what a sequential
// left-to-right scan would report first.
func (c *DataChain) verifyProofsConcurrently() error {
	n := len(c.blocks)
	if n == 0 {
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	failed := make([]bool, n)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, b := range c.blocks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, b *block.Block) {
			defer wg.Done()
			defer func() { <-sem }()
			failed[i] = !b.VerifyProofs()
		}(i, b)
	}
	wg.Wait()

	for i, bad := range failed {
		if bad {
			return NewError(Signature, fmt.Sprintf("block at index %d has an invalid proof", i))
		}
	}
	return nil
}

// Add appends b to the chain. On failure the chain is left byte-for-byte
// unchanged and a chain.Error of a precise kind is returned.
func (c *DataChain) Add(b *block.Block) error {
	if !b.VerifyProofs() {
		return NewError(Signature, "block proofs failed verification")
	}
	if !b.CheckCardinality(c.quorum(), c.groupSize) {
		return NewError(Majority, "block signer count outside quorum bounds")
	}
	if !b.CheckLinkSubset() {
		return NewError(LinkMismatch, "link block's signers are not a subset of its group")
	}

	if len(c.blocks) == 0 {
		if !b.Identifier.IsLink() {
			return NewError(EmptyMustBeLink, "first block appended to an empty chain must be a link")
		}
		c.blocks = append(c.blocks, b)
		return nil
	}

	ok, err := c.rollingQuorumHolds(c.blocks[len(c.blocks)-1], b)
	if err != nil {
		return NewError(Signature, err.Error())
	}
	if !ok {
		return NewError(Majority, "new block does not share rolling quorum with the current tail")
	}

	c.blocks = append(c.blocks, b)
	return nil
}

// AddNodeBlock feeds a single untrusted NodeBlock vote into acc on this
// chain's behalf. Once acc reaches quorum for nb's identifier it yields a
// certified Block, which is immediately appended via Add; acc's tombstone
// for that identifier is then purged, completing the
// Pending -> Ready -> Committed state machine (spec §4.5). This is the
// "lazy accumulation" original_source's DataChain::add_node_block performs
// inline, generalized here to go through the explicit accumulator/chain
// split spec.md calls for rather than mutating chain state from unverified
// votes directly. groupKeys must be supplied only when nb.Identifier is a
// link identifier, per accumulator.Accumulator.Submit.
func (c *DataChain) AddNodeBlock(acc *accumulator.Accumulator, nb nodeblock.NodeBlock, groupKeys ...keys.PublicKey) (accumulator.Status, error) {
	status, blk, err := acc.Submit(nb, c.groupSize, groupKeys...)
	if err != nil {
		return status, err
	}
	if status == accumulator.Ready {
		if err := c.Add(blk); err != nil {
			return status, err
		}
		acc.Purge(blk.Identifier)
	}
	return status, nil
}

// Prune drops every block that no longer holds: an invalid proof set, a
// signer count outside [quorum, group_size], a link whose signers are not a
// subset of its group, or a break in rolling quorum with the nearest
// preceding block retained so far. A leading run of data blocks with no
// link ahead of them is dropped entirely, mirroring original_source's
// validate_all clearing the chain when no link block can anchor it. Unlike
// Delete, Prune never tombstones: a block either survives intact or is
// physically removed.
func (c *DataChain) Prune() {
	kept := make([]*block.Block, 0, len(c.blocks))
	for _, b := range c.blocks {
		if !b.VerifyProofs() || !b.CheckCardinality(c.quorum(), c.groupSize) || !b.CheckLinkSubset() {
			continue
		}
		if len(kept) == 0 {
			if !b.Identifier.IsLink() {
				continue
			}
			kept = append(kept, b)
			continue
		}
		ok, err := c.rollingQuorumHolds(kept[len(kept)-1], b)
		if err != nil || !ok {
			continue
		}
		kept = append(kept, b)
	}
	c.blocks = kept
}

// find returns the index of the block whose identifier equals id, or -1
// if absent.
func (c *DataChain) find(id identifier.BlockIdentifier) int {
	for i, b := range c.blocks {
		if b.Identifier.Equal(id) {
			return i
		}
	}
	return -1
}

// linkLoadBearing reports whether the link block at index idx is still
// needed to anchor rolling quorum for any data block after it, or to
// preserve link discipline (spec §3.4: the chain's first block must be a
// link) once it is gone. The tail is never load-bearing: Delete only
// tombstones it, so it stays in place. The head is load-bearing whenever the block that
// would become the new head is not itself a link — removing it would
// otherwise leave a data block anchoring nothing. An interior link is
// load-bearing when removing it would break rolling quorum between its
// current neighbours.
func (c *DataChain) linkLoadBearing(idx int) (bool, error) {
	if idx == len(c.blocks)-1 {
		return false, nil
	}
	if idx == 0 {
		return !c.blocks[idx+1].Identifier.IsLink(), nil
	}
	ok, err := c.rollingQuorumHolds(c.blocks[idx-1], c.blocks[idx+1])
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Delete removes the block whose identifier is id. Head and
// quorum-preserving interior blocks are physically removed; other blocks
// are tombstoned in place (Deleted set true) so they keep participating in
// signature/quorum verification while their payload may be discarded
// externally. The tail is always tombstoned, never removed, to preserve
// forward extensibility. Link blocks that still anchor quorum for a later
// block refuse deletion with LinkLoadBearing.
func (c *DataChain) Delete(id identifier.BlockIdentifier) error {
	idx := c.find(id)
	if idx < 0 {
		return NewError(NotFound, "no block with the given identifier")
	}

	target := c.blocks[idx]
	if target.Identifier.IsLink() {
		loadBearing, err := c.linkLoadBearing(idx)
		if err != nil {
			return NewError(Signature, err.Error())
		}
		if loadBearing {
			return NewError(LinkLoadBearing, "link anchors rolling quorum for a later block")
		}
	}

	head := 0
	tail := len(c.blocks) - 1

	if idx == tail {
		target.Deleted = true
		return nil
	}

	if idx == head {
		c.blocks = append(c.blocks[:idx], c.blocks[idx+1:]...)
		return nil
	}

	ok, err := c.rollingQuorumHolds(c.blocks[idx-1], c.blocks[idx+1])
	if err != nil {
		return NewError(Signature, err.Error())
	}
	if ok {
		c.blocks = append(c.blocks[:idx], c.blocks[idx+1:]...)
		return nil
	}

	target.Deleted = true
	return nil
}

// Split produces two independently-valid chains at at_index: prefix holds
// blocks [0, at_index), suffix starts with the block at at_index. If that
// block is not a link, the nearest preceding link is cloned into the
// suffix's head so the suffix remains valid on its own.
func (c *DataChain) Split(atIndex int) (*DataChain, *DataChain, error) {
	if atIndex < 0 || atIndex >= len(c.blocks) {
		return nil, nil, NewError(NotFound, "split index out of range")
	}

	prefix := &DataChain{groupSize: c.groupSize, blocks: append([]*block.Block{}, c.blocks[:atIndex]...)}

	var suffixBlocks []*block.Block
	if !c.blocks[atIndex].Identifier.IsLink() {
		link := c.nearestPrecedingLink(atIndex)
		if link == nil {
			return nil, nil, NewError(EmptyMustBeLink, "no preceding link available to seed the suffix")
		}
		suffixBlocks = append(suffixBlocks, link)
	}
	suffixBlocks = append(suffixBlocks, c.blocks[atIndex:]...)
	suffix := &DataChain{groupSize: c.groupSize, blocks: suffixBlocks}

	if err := suffix.Validate(); err != nil {
		return nil, nil, NewError(MergeInvalid, "suffix failed validation after split: "+err.Error())
	}

	return prefix, suffix, nil
}

// nearestPrecedingLink returns the last link block at or before idx, or nil
// if none exists.
func (c *DataChain) nearestPrecedingLink(idx int) *block.Block {
	for i := idx; i >= 0; i-- {
		if c.blocks[i].Identifier.IsLink() {
			return c.blocks[i]
		}
	}
	return nil
}

// commonAnchor finds, among every pair of quorum-equivalent same-identifier
// links shared by self and other, the one whose combined prefix (the
// longer of the two chains' histories before the link) plus combined
// suffix (the longer of the two chains' futures from the link onward)
// covers the most total history. This makes the choice independent of
// argument order: swapping self and other can only swap which side
// contributes the winning prefix and suffix, never the totals being
// compared. Ties are broken by the earliest-occurring anchor in self's own
// order, maximising historical coverage per the spec's tie-break rule.
func (c *DataChain) commonAnchor(other *DataChain) (selfIdx, otherIdx int, found bool, err error) {
	bestTotal := -1
	for i, sb := range c.blocks {
		if !sb.Identifier.IsLink() {
			continue
		}
		for j, ob := range other.blocks {
			if !ob.Identifier.IsLink() || !sb.Identifier.Equal(ob.Identifier) {
				continue
			}
			equivalent, ierr := c.rollingQuorumHolds(sb, ob)
			if ierr != nil {
				return 0, 0, false, ierr
			}
			if !equivalent {
				continue
			}
			prefixLen := i
			if j > prefixLen {
				prefixLen = j
			}
			suffixLen := len(c.blocks) - i
			if otherSuffix := len(other.blocks) - j; otherSuffix > suffixLen {
				suffixLen = otherSuffix
			}
			total := prefixLen + suffixLen
			if total > bestTotal {
				bestTotal = total
				selfIdx, otherIdx, found = i, j, true
			}
		}
	}
	return selfIdx, otherIdx, found, nil
}

// Merge finds, among the links shared by self and other with
// quorum-equivalent proof sets, the one that maximizes combined historical
// coverage, and produces a single chain: whichever side has the longer
// prefix before that link, followed by whichever side has the longer
// suffix from it onward. This is symmetric in self and other — swapping
// the receiver and the argument yields the same merged chain. Fails with
// NoCommonAnchor if no common link exists, or MergeInvalid if the merged
// result does not validate.
func (c *DataChain) Merge(other *DataChain) (*DataChain, error) {
	selfIdx, otherIdx, found, err := c.commonAnchor(other)
	if err != nil {
		return nil, NewError(Signature, err.Error())
	}
	if !found {
		return nil, NewError(NoCommonAnchor, "no quorum-equivalent shared link between the two chains")
	}

	var prefix []*block.Block
	if selfIdx >= otherIdx {
		prefix = c.blocks[:selfIdx]
	} else {
		prefix = other.blocks[:otherIdx]
	}

	var suffix []*block.Block
	if len(c.blocks)-selfIdx >= len(other.blocks)-otherIdx {
		suffix = c.blocks[selfIdx:]
	} else {
		suffix = other.blocks[otherIdx:]
	}

	merged := make([]*block.Block, 0, len(prefix)+len(suffix))
	merged = append(merged, prefix...)
	merged = append(merged, suffix...)

	result := &DataChain{groupSize: c.groupSize, blocks: merged}
	if err := result.Validate(); err != nil {
		return nil, NewError(MergeInvalid, "merged chain failed validation: "+err.Error())
	}
	return result, nil
}

// ExtendHistory is a weaker form of Merge: other may be prepended even if
// it does not overlap self at all, as long as other's last block is a link
// that shares quorum with a subsequent link self holds. Same validation
// requirement as Merge.
func (c *DataChain) ExtendHistory(other *DataChain) (*DataChain, error) {
	if merged, err := c.Merge(other); err == nil {
		return merged, nil
	}

	if len(other.blocks) == 0 || len(c.blocks) == 0 {
		return nil, NewError(NoCommonAnchor, "empty chain cannot be extended")
	}

	otherTail := other.blocks[len(other.blocks)-1]
	if !otherTail.Identifier.IsLink() {
		return nil, NewError(NoCommonAnchor, "other's last block is not a link")
	}

	for _, sb := range c.blocks {
		if !sb.Identifier.IsLink() {
			continue
		}
		ok, err := c.rollingQuorumHolds(otherTail, sb)
		if err != nil {
			return nil, NewError(Signature, err.Error())
		}
		if ok {
			merged := make([]*block.Block, 0, len(other.blocks)+len(c.blocks))
			merged = append(merged, other.blocks...)
			merged = append(merged, c.blocks...)
			result := &DataChain{groupSize: c.groupSize, blocks: merged}
			if err := result.Validate(); err != nil {
				return nil, NewError(MergeInvalid, "extended chain failed validation: "+err.Error())
			}
			return result, nil
		}
	}
	return nil, NewError(NoCommonAnchor, "no quorum-linked join point between other's tail and self")
}

// ValidateInHistory reports whether b is weakly believable given this
// chain: either localKeyHex names a signer in b's own proofs, or witnesses
// forms a chain of blocks, each quorum-linked to the next, running from b
// to this chain's current tail. This is witnessed belief, not transferable
// proof: callers must not forward it as evidence to other nodes.
func (c *DataChain) ValidateInHistory(b *block.Block, localKeyHex string, witnesses []*block.Block) (bool, error) {
	if _, ok := b.Proofs[localKeyHex]; ok {
		return true, nil
	}
	if len(c.blocks) == 0 {
		return false, nil
	}

	path := append([]*block.Block{b}, witnesses...)
	for i := 0; i < len(path)-1; i++ {
		linked, err := c.rollingQuorumHolds(path[i], path[i+1])
		if err != nil {
			return false, err
		}
		if !linked {
			return false, nil
		}
	}

	tail := c.blocks[len(c.blocks)-1]
	ok, err := c.rollingQuorumHolds(path[len(path)-1], tail)
	if err != nil {
		return false, err
	}
	return ok, nil
}
