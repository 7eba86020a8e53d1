// Package wallet holds the keypair and address types shared by every
// QuantCoin component: a Wallet is the private keypair a client signs
// with, a Public is the (address, public key) pair advertised to peers
// so they can verify signatures naming that address.
package wallet

import (
	"encoding/base64"
	"encoding/hex"

	"crypto/sha1"

	"github.com/quantcoin/quantcoind/internal/crypto"
	"github.com/quantcoin/quantcoind/internal/nodeerrors"
)

// AddressPrefix is the literal prefix of every QuantCoin address.
const AddressPrefix = "QC"

// Wallet is a private keypair. It never leaves the node that created
// it unencrypted; internal/walletstore is the only component allowed
// to persist one, and only in encrypted form.
type Wallet struct {
	Address    string
	PublicKey  []byte
	PrivateKey []byte
}

// Public is what a node advertises to its peers: an address and the
// public key that should verify signatures naming it.
type Public struct {
	Address   string
	PublicKey []byte
}

// Address derives the QuantCoin address for a raw public key: "QC"
// followed by the lowercase hex of SHA-1 over the key's raw bytes.
func Address(pubKey []byte) string {
	sum := sha1.Sum(pubKey)
	return AddressPrefix + hex.EncodeToString(sum[:])
}

// New generates a fresh wallet, optionally deterministic from seed
// (an empty seed draws cryptographically random entropy).
func New(seed string) (Wallet, error) {
	priv, pub, err := crypto.KeyGen(seed)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{
		Address:    Address(pub),
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// ToPublic strips the private key, yielding the record a node
// broadcasts to peers.
func (w Wallet) ToPublic() Public {
	return Public{Address: w.Address, PublicKey: w.PublicKey}
}

// PrivateKeyBase64 / PublicKeyBase64 match §3's on-disk/wire encoding:
// base64 of the raw curve-point/scalar bytes.
func (w Wallet) PrivateKeyBase64() string { return base64.StdEncoding.EncodeToString(w.PrivateKey) }
func (w Wallet) PublicKeyBase64() string  { return base64.StdEncoding.EncodeToString(w.PublicKey) }

// FromBase64 reconstructs a Wallet from its base64-encoded fields,
// re-deriving and verifying the address.
func FromBase64(address, pubB64, privB64 string) (Wallet, error) {
	pub, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		return Wallet{}, nodeerrors.CryptoError("malformed public key base64", err)
	}
	priv, err := base64.StdEncoding.DecodeString(privB64)
	if err != nil {
		return Wallet{}, nodeerrors.CryptoError("malformed private key base64", err)
	}
	if derived := Address(pub); derived != address {
		return Wallet{}, nodeerrors.CryptoError("address does not match public key", nil)
	}
	return Wallet{Address: address, PublicKey: pub, PrivateKey: priv}, nil
}
