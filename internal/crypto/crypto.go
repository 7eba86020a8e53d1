// Package crypto wraps secp256k1 ECDSA signing with SHA-256 message
// hashing behind the three operations a QuantCoin node needs: key
// generation, signing, and verification. It treats the curve
// arithmetic itself as a black box, delegating to
// github.com/btcsuite/btcd/btcec/v2 the same way the teacher's wallet
// package does for its Bitcoin-family key material.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
)

// seedAlphabet is the printable ASCII range keygen draws from when no
// seed is supplied.
const seedAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()-_=+"

const randomSeedLen = 50

// Hash returns SHA-256(msg).
func Hash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

// RandomSeed draws randomSeedLen printable characters from a
// cryptographically secure source, for use as a keygen seed.
func RandomSeed() (string, error) {
	out := make([]byte, randomSeedLen)
	idx := make([]byte, randomSeedLen)
	if _, err := rand.Read(idx); err != nil {
		return "", nodeerrors.CryptoError("failed to read random seed", err)
	}
	for i, b := range idx {
		out[i] = seedAlphabet[int(b)%len(seedAlphabet)]
	}
	return string(out), nil
}

// KeyGen derives a secp256k1 keypair from seed. If seed is empty, a
// fresh random seed is drawn first. The secret scalar is derived by
// try-and-increment modulo the curve order N, seeded by
// s = int(SHA256(seed), 16): d = (s+i) mod N for increasing i,
// skipping the (practically unreachable) d == 0 case.
func KeyGen(seed string) (priv []byte, pub []byte, err error) {
	if seed == "" {
		seed, err = RandomSeed()
		if err != nil {
			return nil, nil, err
		}
	}

	s := new(big.Int).SetBytes(Hash([]byte(seed)))
	n := btcec.S256().N

	d := new(big.Int)
	for i := int64(0); ; i++ {
		d.Mod(new(big.Int).Add(s, big.NewInt(i)), n)
		if d.Sign() != 0 {
			break
		}
	}

	privKey, pubKey := btcec.PrivKeyFromBytes(d.Bytes())
	return privKey.Serialize(), pubKey.SerializeCompressed(), nil
}

// Sign computes a deterministic (RFC6979) ECDSA-secp256k1 signature
// over SHA256(msg), DER-encoded for wire transport.
func Sign(privKeyBytes, msg []byte) ([]byte, error) {
	if len(privKeyBytes) == 0 {
		return nil, nodeerrors.CryptoError("empty private key", nil)
	}
	privKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	if privKey == nil {
		return nil, nodeerrors.CryptoError("malformed private key", nil)
	}
	sig := btcecdsa.Sign(privKey, Hash(msg))
	return sig.Serialize(), nil
}

// Verify reports whether sig is a valid secp256k1 signature over
// SHA256(msg) by the holder of pubKeyBytes. It never errors: any
// malformed input simply yields false.
func Verify(pubKeyBytes, sigBytes, msg []byte) bool {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	sig, err := btcecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	return sig.Verify(Hash(msg), pubKey)
}

// ParsePublicKey validates that pubKeyBytes is a well-formed
// secp256k1 public key encoding.
func ParsePublicKey(pubKeyBytes []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, nodeerrors.CryptoError("malformed public key", err)
	}
	return pub, nil
}

// ParsePrivateKey validates that privKeyBytes is a well-formed
// secp256k1 private scalar and returns the keypair.
func ParsePrivateKey(privKeyBytes []byte) (*btcec.PrivateKey, error) {
	if len(privKeyBytes) != 32 {
		return nil, nodeerrors.CryptoError(fmt.Sprintf("private key must be 32 bytes, got %d", len(privKeyBytes)), nil)
	}
	priv, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	return priv, nil
}
