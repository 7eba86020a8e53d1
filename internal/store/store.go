// Package store holds the in-memory chain and peer state a node
// needs to answer protocol requests and validate new blocks. It is
// the generalization of §4.4's "shared store", expressed per
// SPEC_FULL.md's REDESIGN FLAG (d) as lock-per-collection rather than
// one global mutex guarding everything.
package store

import (
	"sync"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/netaddr"
	"github.com/quantcoin/quantcoind/internal/wallet"
	"github.com/quantcoin/quantcoind/pkg/helpers"
)

// Store is safe for concurrent use. Each collection (blocks, peers,
// wallets) is guarded by its own RWMutex so a block append never
// blocks a peer lookup.
type Store struct {
	blocksMu sync.RWMutex
	blocks   []*block.Block

	peersMu sync.RWMutex
	peers   map[netaddr.Addr]struct{}

	walletsMu sync.RWMutex
	wallets   map[string]wallet.Wallet
}

// New returns an empty store.
func New() *Store {
	return &Store{
		peers:   make(map[netaddr.Addr]struct{}),
		wallets: make(map[string]wallet.Wallet),
	}
}

// Blocks returns a snapshot of every stored block, in arrival order.
// There is no fork choice (SPEC_FULL.md Open Question decision): every
// structurally valid block that arrives is kept.
func (s *Store) Blocks() []*block.Block {
	s.blocksMu.RLock()
	defer s.blocksMu.RUnlock()
	out := make([]*block.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// BlockRange returns the half-open range of blocks [start, end),
// clamped to the available length.
func (s *Store) BlockRange(start, end int) []*block.Block {
	s.blocksMu.RLock()
	defer s.blocksMu.RUnlock()
	if start < 0 {
		start = 0
	}
	if end > len(s.blocks) {
		end = len(s.blocks)
	}
	if start >= end {
		return nil
	}
	out := make([]*block.Block, end-start)
	copy(out, s.blocks[start:end])
	return out
}

// LastBlock returns the most recently stored block, or nil if the
// chain is empty.
func (s *Store) LastBlock() *block.Block {
	s.blocksMu.RLock()
	defer s.blocksMu.RUnlock()
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Height returns the number of stored blocks.
func (s *Store) Height() int {
	s.blocksMu.RLock()
	defer s.blocksMu.RUnlock()
	return len(s.blocks)
}

// StoreBlock appends b if its digest isn't already present. It
// returns true when the block was newly added, false when it was a
// duplicate.
func (s *Store) StoreBlock(b *block.Block) bool {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()
	for _, existing := range s.blocks {
		if helpers.BytesEqual(existing.Digest, b.Digest) {
			return false
		}
	}
	s.blocks = append(s.blocks, b)
	return true
}

// AllPeers returns every known peer address.
func (s *Store) AllPeers() []netaddr.Addr {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	out := make([]netaddr.Addr, 0, len(s.peers))
	for p := range s.peers {
		out = append(out, p)
	}
	return out
}

// StorePeer records addr as a known peer, returning true if it was
// new.
func (s *Store) StorePeer(addr netaddr.Addr) bool {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	if _, ok := s.peers[addr]; ok {
		return false
	}
	s.peers[addr] = struct{}{}
	return true
}

// Wallets returns every wallet this node manages locally, keyed by
// address. Unlike PublicWallets, these carry private key material and
// must never be sent to a peer.
func (s *Store) Wallets() []wallet.Wallet {
	s.walletsMu.RLock()
	defer s.walletsMu.RUnlock()
	out := make([]wallet.Wallet, 0, len(s.wallets))
	for _, v := range s.wallets {
		out = append(out, v)
	}
	return out
}

// PublicWallets returns the public projection of every locally
// managed wallet, safe to hand to a peer or serialize.
func (s *Store) PublicWallets() []wallet.Public {
	s.walletsMu.RLock()
	defer s.walletsMu.RUnlock()
	out := make([]wallet.Public, 0, len(s.wallets))
	for _, v := range s.wallets {
		out = append(out, v.ToPublic())
	}
	return out
}

// StoreWallet records a locally managed wallet.
func (s *Store) StoreWallet(w wallet.Wallet) {
	s.walletsMu.Lock()
	defer s.walletsMu.Unlock()
	s.wallets[w.Address] = w
}

// AmountOwned computes address's balance by scanning every stored
// block, per §4.4: it gains every payee amount addressed to it
// (creation transactions included), loses every amount it sent
// (including commission), and, as a block's author, gains each
// positive commission paid in that block.
func (s *Store) AmountOwned(address string) float64 {
	s.blocksMu.RLock()
	defer s.blocksMu.RUnlock()

	var balance float64
	for _, b := range s.blocks {
		for _, t := range b.Transactions {
			if t.FromWallet != nil && *t.FromWallet == address {
				balance -= t.AmountSpent()
			}
			for _, p := range t.ToWallets {
				if p.Address != nil && *p.Address == address {
					balance += p.Amount
				}
			}
			// The block author collects every transaction's commission
			// (the nil-address first payee), on top of any amount
			// explicitly addressed to them above.
			if t.Commission() > 0 && b.Author == address {
				balance += t.Commission()
			}
		}
	}
	return balance
}
