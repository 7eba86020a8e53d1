package block

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/transaction"
)

// Wire is the §6 "Block object" wire shape. Nonce travels as 8 raw
// bytes, big-endian, base64-encoded — the Open Question decision
// recorded in SPEC_FULL.md that replaces the legacy truncating
// single-byte encoding.
type Wire struct {
	Author       string                     `json:"author"`
	Transactions []*json.RawMessage         `json:"transactions"`
	Previous     string                     `json:"previous"`
	Nonce        *string                    `json:"nonce"`
	Digest       string                     `json:"digest"`
}

// ToWire converts a Block to its wire representation. The block need
// not be mined; if unset, Nonce encodes as null and Digest as "".
func (b *Block) ToWire() (*Wire, error) {
	w := &Wire{
		Author:   b.Author,
		Previous: base64.StdEncoding.EncodeToString(b.Previous),
	}
	w.Transactions = make([]*json.RawMessage, len(b.Transactions))
	for i, t := range b.Transactions {
		raw, err := t.MarshalJSON()
		if err != nil {
			return nil, err
		}
		rm := json.RawMessage(raw)
		w.Transactions[i] = &rm
	}
	if b.Nonce != nil {
		nonceBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(nonceBytes, *b.Nonce)
		s := base64.StdEncoding.EncodeToString(nonceBytes)
		w.Nonce = &s
	}
	if b.Digest != nil {
		w.Digest = base64.StdEncoding.EncodeToString(b.Digest)
	}
	return w, nil
}

// MarshalJSON serializes a Block directly to its wire object.
func (b *Block) MarshalJSON() ([]byte, error) {
	w, err := b.ToWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// FromJSON parses a block from its wire object. The resulting block's
// Transactions are already in wire order; callers that need the
// canonical sender-sorted order should reconstruct via New.
func FromJSON(raw []byte) (*Block, error) {
	var w Wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, nodeerrors.ProtocolError("malformed block JSON", err)
	}
	return w.Block()
}

// Block reconstructs a *Block from its wire form.
func (w *Wire) Block() (*Block, error) {
	previous, err := base64.StdEncoding.DecodeString(w.Previous)
	if err != nil {
		return nil, nodeerrors.ProtocolError("malformed previous digest base64", err)
	}

	txs := make([]*transaction.Transaction, len(w.Transactions))
	for i, raw := range w.Transactions {
		t, err := transaction.FromJSON(*raw)
		if err != nil {
			return nil, err
		}
		txs[i] = t
	}

	b := &Block{Author: w.Author, Transactions: txs, Previous: previous}

	if w.Nonce != nil {
		nonceBytes, err := base64.StdEncoding.DecodeString(*w.Nonce)
		if err != nil {
			return nil, nodeerrors.ProtocolError("malformed nonce base64", err)
		}
		if len(nonceBytes) != 8 {
			return nil, nodeerrors.ProtocolError("nonce must be 8 bytes", nil)
		}
		nonce := binary.BigEndian.Uint64(nonceBytes)
		b.Nonce = &nonce
	}
	if w.Digest != "" {
		digest, err := base64.StdEncoding.DecodeString(w.Digest)
		if err != nil {
			return nil, nodeerrors.ProtocolError("malformed digest base64", err)
		}
		b.Digest = digest
	}
	return b, nil
}
