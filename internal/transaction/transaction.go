// Package transaction implements the immutable value-transfer record
// described in spec §3/§4.2: an optional sender, an ordered list of
// payees (the first of which may carry no address, marking it as the
// miner commission), and — once signed — a signature and the signer's
// public key.
package transaction

import (
	"encoding/base64"
	"encoding/json"

	"github.com/quantcoin/quantcoind/internal/crypto"
	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/wallet"
	"github.com/quantcoin/quantcoind/pkg/helpers"
)

// Payee is one entry of a transaction's receiver list. A nil Address
// in the first position marks the miner commission.
type Payee struct {
	Address *string
	Amount  float64
}

// Transaction is an immutable value-transfer record. Construct with
// New, then Sign; once signed, never mutate the exported fields.
type Transaction struct {
	FromWallet *string
	ToWallets  []Payee
	Signature  []byte
	PublicKey  []byte
}

// New builds an unsigned transaction. fromWallet is nil for a creation
// transaction. New enforces the §3 invariants that don't depend on a
// signature: the sender may not also appear as a receiver, and only
// the first payee may omit its address.
func New(fromWallet *string, toWallets []Payee) (*Transaction, error) {
	for i, p := range toWallets {
		if p.Address == nil && i != 0 {
			return nil, nodeerrors.ConfigError("only the first payee may omit an address")
		}
		if p.Address != nil && fromWallet != nil && *p.Address == *fromWallet {
			return nil, nodeerrors.ConfigError("sender may not appear as a receiver")
		}
	}
	return &Transaction{FromWallet: fromWallet, ToWallets: toWallets}, nil
}

// payeeWire is the [address-or-null, amount] pair shape used both on
// the wire (§6) and in the canonical signing payload (§4.2).
type payeeWire [2]interface{}

type canonicalBody struct {
	From *string     `json:"from"`
	To   []payeeWire `json:"to"`
}

// CanonicalPayload returns the deterministic JSON payload that gets
// signed: {"from": ..., "to": [...]}, field order fixed, "to" in
// construction order.
func (t *Transaction) CanonicalPayload() []byte {
	to := make([]payeeWire, len(t.ToWallets))
	for i, p := range t.ToWallets {
		var addr interface{}
		if p.Address != nil {
			addr = *p.Address
		}
		to[i] = payeeWire{addr, p.Amount}
	}
	body := canonicalBody{From: t.FromWallet, To: to}

	// encoding/json on a struct preserves declared field order, giving
	// us {"from":...,"to":...} deterministically without a custom
	// encoder.
	buf, _ := json.Marshal(body)
	return buf
}

// Sign attaches a signature over CanonicalPayload() and the signer's
// public key. priv/pub are the raw (non-base64) curve bytes.
func (t *Transaction) Sign(priv, pub []byte) error {
	sig, err := crypto.Sign(priv, t.CanonicalPayload())
	if err != nil {
		return err
	}
	t.Signature = sig
	t.PublicKey = pub
	return nil
}

// Verify reports whether the attached signature is valid over the
// canonical payload. A transaction with no attached signature/public
// key never verifies.
func (t *Transaction) Verify() bool {
	if t.Signature == nil || t.PublicKey == nil {
		return false
	}
	return crypto.Verify(t.PublicKey, t.Signature, t.CanonicalPayload())
}

// SignerAddress returns the address implied by the attached public
// key, or "" if unsigned.
func (t *Transaction) SignerAddress() string {
	if t.PublicKey == nil {
		return ""
	}
	return wallet.Address(t.PublicKey)
}

// Commission returns the first payee's amount if it has no address,
// else 0.
func (t *Transaction) Commission() float64 {
	if len(t.ToWallets) == 0 {
		return 0
	}
	if t.ToWallets[0].Address == nil {
		return t.ToWallets[0].Amount
	}
	return 0
}

// AmountSpent is the sum of every payee's amount, commission included.
func (t *Transaction) AmountSpent() float64 {
	var total float64
	for _, p := range t.ToWallets {
		total += p.Amount
	}
	return total
}

// IsCreationTransaction reports whether this transaction has no
// sender (it mints coins rather than moving them).
func (t *Transaction) IsCreationTransaction() bool {
	return t.FromWallet == nil
}

// PublicKeyBase64 / SignatureBase64 are the §3/§6 wire encodings.
func (t *Transaction) PublicKeyBase64() string {
	if t.PublicKey == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(t.PublicKey)
}

func (t *Transaction) SignatureBase64() string {
	if t.Signature == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(t.Signature)
}

// Equal reports whether two transactions sign the same canonical
// payload and carry the same signature; used for dedup comparisons.
func (t *Transaction) Equal(other *Transaction) bool {
	if other == nil {
		return false
	}
	return helpers.BytesEqual(t.CanonicalPayload(), other.CanonicalPayload()) &&
		helpers.ConstantTimeCompare(t.Signature, other.Signature)
}

// Leaf returns SHA256(canonical_json(t)), the Merkle-tree leaf for
// this transaction per §4.3 ("H_i = SHA256(canonical_json(tx_i))").
// canonical_json is the same deterministic {from,to} payload used for
// signing (§8 S3 pins this: a one-transaction block's root is
// SHA256(SHA256(canonical(t)) || "")).
func (t *Transaction) Leaf() []byte {
	return crypto.Hash(t.CanonicalPayload())
}
