// Package walletstore implements the §6 "Private store file" shape:
// an AES-256-CBC blob of `salt(4) || iv(16) || ciphertext`, keyed by
// scrypt(password, salt, N=16384, r=8, p=1, 32). It is the one piece
// of persistence this core carries, because signing needs a private
// key source somewhere; everything else in §6's file formats is left
// to an external collaborator (see SPEC_FULL.md).
//
// Grounded on the teacher's internal/wallet/crypto.go (salt
// generation, cipher construction, encrypt/decrypt-to-JSON shape),
// adapted from Argon2id+AES-GCM to the spec's scrypt+AES-CBC.
package walletstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/scrypt"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/wallet"
)

const (
	saltLen     = 4
	ivLen       = 16
	scryptN     = 16384
	scryptR     = 8
	scryptP     = 1
	scryptKeLen = 32
)

// deriveKey runs §6's exact scrypt parameters over password and salt.
func deriveKey(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeLen)
	if err != nil {
		return nil, nodeerrors.CryptoError("scrypt key derivation failed", err)
	}
	return key, nil
}

// pkcsPad appends N bytes of value N so the plaintext is a multiple
// of the AES block size, per §6's "PKCS-style pad".
func pkcsPad(data []byte) []byte {
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

// pkcsUnpad strips the trailing pad by reading its last byte as the
// pad length.
func pkcsUnpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nodeerrors.WrongPassword()
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, nodeerrors.WrongPassword()
	}
	return data[:len(data)-padLen], nil
}

type walletsFile struct {
	Wallets []storedWallet `json:"wallets"`
}

type storedWallet struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// Encrypt serializes wallets to JSON and encrypts them into the §6
// private-store blob: salt(4) || iv(16) || ciphertext.
func Encrypt(wallets []wallet.Wallet, password string) ([]byte, error) {
	stored := make([]storedWallet, len(wallets))
	for i, w := range wallets {
		stored[i] = storedWallet{
			Address:    w.Address,
			PublicKey:  w.PublicKeyBase64(),
			PrivateKey: w.PrivateKeyBase64(),
		}
	}
	plaintext, err := json.Marshal(walletsFile{Wallets: stored})
	if err != nil {
		return nil, nodeerrors.IOError("failed to marshal wallet file", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nodeerrors.CryptoError("failed to generate salt", err)
	}
	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nodeerrors.CryptoError("failed to construct cipher", err)
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, nodeerrors.CryptoError("failed to generate iv", err)
	}

	padded := pkcsPad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, saltLen+ivLen+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt reverses Encrypt. A wrong password (or any other plaintext
// that doesn't unmarshal as JSON) yields nodeerrors.WrongPassword.
func Decrypt(blob []byte, password string) ([]wallet.Wallet, error) {
	if len(blob) < saltLen+ivLen {
		return nil, nodeerrors.WrongPassword()
	}
	salt := blob[:saltLen]
	iv := blob[saltLen : saltLen+ivLen]
	ciphertext := blob[saltLen+ivLen:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, nodeerrors.WrongPassword()
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nodeerrors.CryptoError("failed to construct cipher", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcsUnpad(padded)
	if err != nil {
		return nil, err
	}

	var file walletsFile
	if err := json.Unmarshal(plaintext, &file); err != nil {
		return nil, nodeerrors.WrongPassword()
	}

	out := make([]wallet.Wallet, len(file.Wallets))
	for i, sw := range file.Wallets {
		w, err := wallet.FromBase64(sw.Address, sw.PublicKey, sw.PrivateKey)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// GenerateMnemonicSeed wraps bip39's entropy/mnemonic generation to
// produce a friendlier seed phrase for crypto.KeyGen, as an optional
// UX convenience layered over the spec's random-printable-characters
// keygen seed (§4.1); the consensus-critical derivation itself is
// unchanged.
func GenerateMnemonicSeed() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", nodeerrors.CryptoError("failed to generate mnemonic entropy", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nodeerrors.CryptoError("failed to generate mnemonic", err)
	}
	return mnemonic, nil
}
