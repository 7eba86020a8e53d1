// Package block implements the immutable, ordered transaction bundle
// described in spec §3/§4.3: an author, a previous-block link, a
// Merkle commitment over its transactions, and a proof-of-work nonce
// binding it all together.
package block

import (
	"sort"
	"strconv"

	"github.com/quantcoin/quantcoind/internal/crypto"
	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/transaction"
	"github.com/quantcoin/quantcoind/pkg/helpers"
)

// GenesisPrevious is the sentinel "previous" value for the first
// block in a chain.
var GenesisPrevious = []byte("genesis_block")

// Block is an immutable, mined bundle of transactions. Build with New,
// mine with ProofOfWork, then treat every field as read-only.
type Block struct {
	Author       string
	Transactions []*transaction.Transaction // kept sorted by sender, nil-sender first
	Previous     []byte
	Nonce        *uint64
	Digest       []byte
}

// New constructs an unmined block: sorts the transaction set by
// sender address (creation transaction first), and records the
// author/previous link. Returns ConfigError if author or previous is
// missing, matching §7's construction-error contract.
func New(author string, txs []*transaction.Transaction, previous []byte) (*Block, error) {
	if author == "" {
		return nil, nodeerrors.ConfigError("block author is required")
	}
	if previous == nil {
		return nil, nodeerrors.ConfigError("block previous digest is required")
	}
	sorted := append([]*transaction.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return senderKey(sorted[i]) < senderKey(sorted[j])
	})
	return &Block{Author: author, Transactions: sorted, Previous: previous}, nil
}

// senderKey orders a nil sender (creation transaction) before every
// real address.
func senderKey(t *transaction.Transaction) string {
	if t.FromWallet == nil {
		return ""
	}
	return "\x01" + *t.FromWallet
}

// MerkleRoot computes the §4.3 Merkle root over this block's
// (already sender-sorted) transactions: leaves are
// SHA256(canonical_json(tx)), an odd leaf count is padded with one
// empty-byte sentinel leaf, and pairs are folded as SHA256(L||R)
// until one digest remains.
func (b *Block) MerkleRoot() []byte {
	leaves := make([][]byte, len(b.Transactions))
	for i, t := range b.Transactions {
		leaves[i] = t.Leaf()
	}
	if len(leaves)%2 == 1 {
		leaves = append(leaves, []byte{})
	}
	if len(leaves) == 0 {
		return crypto.Hash(nil)
	}

	level := leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// The leaf level is even after the sentinel pad, but a
				// higher level can still be odd (6 leaves -> 3 nodes):
				// its last node is paired with SHA256("").
				next = append(next, crypto.Hash(append(append([]byte{}, level[i]...), emptyLeaf()...)))
				continue
			}
			combined := append(append([]byte{}, level[i]...), level[i+1]...)
			next = append(next, crypto.Hash(combined))
		}
		level = next
	}
	return level[0]
}

func emptyLeaf() []byte { return crypto.Hash(nil) }

// asciiNonce formats nonce as unpadded decimal ASCII, per §4.3.
func asciiNonce(nonce uint64) []byte {
	return []byte(strconv.FormatUint(nonce, 10))
}

// computeDigest is SHA256(author || previous || merkle_root ||
// ascii(nonce)), the authoritative PoW input layout per §9.2.
func (b *Block) computeDigest(nonce uint64) []byte {
	buf := append([]byte{}, []byte(b.Author)...)
	buf = append(buf, b.Previous...)
	buf = append(buf, b.MerkleRoot()...)
	buf = append(buf, asciiNonce(nonce)...)
	return crypto.Hash(buf)
}

// ProofOfWork searches the half-open nonce window [start, end) for a
// nonce whose digest has `difficulty` leading zero bytes. On success
// it sets Nonce and Digest and returns true; on exhaustion it leaves
// the block unmined and returns false so the caller may resume with a
// later window (§4.3/§4.8's "windowed PoW").
func (b *Block) ProofOfWork(difficulty int, start, end uint64) bool {
	for n := start; n < end; n++ {
		digest := b.computeDigest(n)
		if leadingZeroBytes(digest) >= difficulty {
			nonce := n
			b.Nonce = &nonce
			b.Digest = digest
			return true
		}
	}
	return false
}

func leadingZeroBytes(digest []byte) int {
	count := 0
	for _, byt := range digest {
		if byt != 0 {
			break
		}
		count++
	}
	return count
}

// Valid re-derives the digest and checks the structural rules of
// §4.3 that don't require chain context: a nonce must be set, the
// digest must match, the digest must meet difficulty, and at most one
// transaction may be a creation transaction. Balance/signature/
// self-send/previous-link checks live in internal/validator, which
// needs the chain to evaluate them.
func (b *Block) Valid(difficulty int) error {
	if b.Nonce == nil {
		return nodeerrors.ValidationError(nodeerrors.ReasonMissingNonce, "block has no nonce")
	}
	want := b.computeDigest(*b.Nonce)
	if !helpers.ConstantTimeCompare(want, b.Digest) {
		return nodeerrors.ValidationError(nodeerrors.ReasonBadDigest, "digest does not match author/previous/merkle/nonce")
	}
	if leadingZeroBytes(b.Digest) < difficulty {
		return nodeerrors.ValidationError(nodeerrors.ReasonBadProofOfWork, "digest does not meet difficulty target")
	}

	creationCount := 0
	for _, t := range b.Transactions {
		if t.IsCreationTransaction() {
			creationCount++
		}
	}
	if creationCount > 1 {
		return nodeerrors.ValidationError(nodeerrors.ReasonMultipleCreation, "more than one creation transaction")
	}
	return nil
}

// CreationTransaction returns the block's creation transaction, if
// any.
func (b *Block) CreationTransaction() *transaction.Transaction {
	for _, t := range b.Transactions {
		if t.IsCreationTransaction() {
			return t
		}
	}
	return nil
}

// Commission is the total commission paid to this block's author
// across all of its transactions (normally at most one transaction
// carries a commission, but §4.4's amount_owned sums across all of
// them for robustness).
func (b *Block) Commission() float64 {
	var total float64
	for _, t := range b.Transactions {
		total += t.Commission()
	}
	return total
}

// ContainsTransaction reports whether tx (by canonical payload +
// signature) is present in this block — used by the miner to drop
// queued transactions that a newly arrived block already includes.
func (b *Block) ContainsTransaction(tx *transaction.Transaction) bool {
	for _, t := range b.Transactions {
		if t.Equal(tx) {
			return true
		}
	}
	return false
}
