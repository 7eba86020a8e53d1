package monitor

import (
	"github.com/quantcoin/quantcoind/internal/miner"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/validator"
)

// NodeSource adapts a chain store and an optional miner into a Source,
// so cmd/quantcoind can wire a Hub without either package depending on
// monitor's interface shape.
type NodeSource struct {
	Chain *store.Store
	Miner *miner.Miner // nil when this node isn't mining
}

func (s NodeSource) PeerCount() int { return len(s.Chain.AllPeers()) }

func (s NodeSource) TipHeight() int { return s.Chain.Height() }

func (s NodeSource) IsMining() bool {
	if s.Miner == nil {
		return false
	}
	return s.Miner.IsMining()
}

func (s NodeSource) Difficulty() int {
	return validator.Difficulty(s.Chain.Height())
}
