package transaction

import (
	"encoding/base64"
	"encoding/json"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
)

// Wire is the §6 "Transaction object" wire shape.
type Wire struct {
	Body struct {
		From *string        `json:"from"`
		To   [][2]rawAmount `json:"to"`
	} `json:"body"`
	Signature *string `json:"signature"`
	PublicKey *string `json:"public_key"`
}

// rawAmount decodes either a bare number or a null/string address; we
// use json.RawMessage-backed decode so the [addr-or-null, amount] pair
// round-trips losslessly through interface{} without numeric drift.
type rawAmount = json.RawMessage

// ToWire converts a Transaction to its wire representation.
func (t *Transaction) ToWire() (*Wire, error) {
	w := &Wire{}
	w.Body.From = t.FromWallet
	w.Body.To = make([][2]rawAmount, len(t.ToWallets))
	for i, p := range t.ToWallets {
		addrJSON, err := json.Marshal(p.Address)
		if err != nil {
			return nil, err
		}
		amtJSON, err := json.Marshal(p.Amount)
		if err != nil {
			return nil, err
		}
		w.Body.To[i] = [2]rawAmount{addrJSON, amtJSON}
	}
	if t.Signature != nil {
		s := base64.StdEncoding.EncodeToString(t.Signature)
		w.Signature = &s
	}
	if t.PublicKey != nil {
		s := base64.StdEncoding.EncodeToString(t.PublicKey)
		w.PublicKey = &s
	}
	return w, nil
}

// MarshalJSON serializes a Transaction directly to its wire object.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	w, err := t.ToWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// FromJSON parses a transaction from raw bytes that are either the
// wire object directly, or (per §6's "send" command quirk) a
// JSON-encoded string containing that object.
func FromJSON(raw []byte) (*Transaction, error) {
	trimmed := trimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, nodeerrors.ProtocolError("malformed string-encoded transaction", err)
		}
		trimmed = []byte(inner)
	}

	var w Wire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, nodeerrors.ProtocolError("malformed transaction JSON", err)
	}
	return w.Transaction()
}

// Transaction reconstructs a *Transaction from its wire form.
func (w *Wire) Transaction() (*Transaction, error) {
	toWallets := make([]Payee, len(w.Body.To))
	for i, pair := range w.Body.To {
		var addr *string
		if err := json.Unmarshal(pair[0], &addr); err != nil {
			return nil, nodeerrors.ProtocolError("malformed payee address", err)
		}
		var amount float64
		if err := json.Unmarshal(pair[1], &amount); err != nil {
			return nil, nodeerrors.ProtocolError("malformed payee amount", err)
		}
		toWallets[i] = Payee{Address: addr, Amount: amount}
	}

	t := &Transaction{FromWallet: w.Body.From, ToWallets: toWallets}

	if w.Signature != nil {
		sig, err := base64.StdEncoding.DecodeString(*w.Signature)
		if err != nil {
			return nil, nodeerrors.ProtocolError("malformed signature base64", err)
		}
		t.Signature = sig
	}
	if w.PublicKey != nil {
		pub, err := base64.StdEncoding.DecodeString(*w.PublicKey)
		if err != nil {
			return nil, nodeerrors.ProtocolError("malformed public key base64", err)
		}
		t.PublicKey = pub
	}
	return t, nil
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
