// Package validator enforces the consensus rules of §4.3/§4.4/§7 that
// need chain context: balance sufficiency, self-send rejection,
// signature authentication, the previous-block link, and the
// creation-transaction subsidy bound.
package validator

import (
	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/pkg/helpers"
)

// BlockSubsidy is the fixed amount a creation transaction may mint,
// per SPEC_FULL.md's Open Question decision (a flat constant rather
// than a halving schedule, since §4 never describes one).
const BlockSubsidy = 50.0

// Difficulty returns the required leading-zero-byte count for a
// block at the given chain height, per SPEC_FULL.md's
// difficulty formula: 52 - 50/(1 + height/100000), floored to an int.
func Difficulty(height int) int {
	d := 52.0 - 50.0/(1.0+float64(height)/100000.0)
	return int(d)
}

// Validate checks b against the full consensus rule set for a block
// about to be appended at chain's current height, given the network
// difficulty that applied when it was mined. It returns a
// *nodeerrors.Error (Kind == KindValidation) describing the first
// violation found, or nil if b may be appended.
func Validate(chain *store.Store, difficulty int, b *block.Block) error {
	if err := b.Valid(difficulty); err != nil {
		return err
	}

	last := chain.LastBlock()
	wantPrevious := block.GenesisPrevious
	if last != nil {
		wantPrevious = last.Digest
	}
	if !helpers.BytesEqual(b.Previous, wantPrevious) {
		return nodeerrors.ValidationError(nodeerrors.ReasonBadPrevious, "previous digest does not match chain tip")
	}

	creationSeen := false
	for _, t := range b.Transactions {
		if t.IsCreationTransaction() {
			if creationSeen {
				return nodeerrors.ValidationError(nodeerrors.ReasonMultipleCreation, "more than one creation transaction")
			}
			creationSeen = true
			if t.AmountSpent() > BlockSubsidy {
				return nodeerrors.ValidationError(nodeerrors.ReasonExcessCreation, "creation transaction exceeds block subsidy")
			}
			continue
		}

		if !t.Verify() {
			return nodeerrors.ValidationError(nodeerrors.ReasonUnauthenticated, "transaction signature does not verify")
		}
		sender := t.SignerAddress()
		if t.FromWallet == nil || sender != *t.FromWallet {
			return nodeerrors.ValidationError(nodeerrors.ReasonUnauthenticated, "signature does not match claimed sender")
		}
		for _, p := range t.ToWallets {
			if p.Address != nil && *p.Address == sender {
				return nodeerrors.ValidationError(nodeerrors.ReasonSelfSend, "sender may not also be a receiver")
			}
		}

		balance := chain.AmountOwned(sender)
		if t.AmountSpent() > balance {
			return nodeerrors.ValidationError(nodeerrors.ReasonOverdraw, "transaction spends more than the sender owns")
		}
	}
	return nil
}
