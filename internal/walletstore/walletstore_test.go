package walletstore

import (
	"testing"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/wallet"
)

func mustWallet(t *testing.T, seed string) wallet.Wallet {
	t.Helper()
	w, err := wallet.New(seed)
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	return w
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	wallets := []wallet.Wallet{mustWallet(t, "seed-one"), mustWallet(t, "seed-two")}

	blob, err := Encrypt(wallets, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(blob, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if len(got) != len(wallets) {
		t.Fatalf("expected %d wallets, got %d", len(wallets), len(got))
	}
	for i, w := range wallets {
		if got[i].Address != w.Address {
			t.Fatalf("wallet %d address mismatch: got %s want %s", i, got[i].Address, w.Address)
		}
		if string(got[i].PrivateKey) != string(w.PrivateKey) {
			t.Fatalf("wallet %d private key mismatch", i)
		}
	}
}

func TestEncryptProducesSpecShapedBlob(t *testing.T) {
	wallets := []wallet.Wallet{mustWallet(t, "shape-seed")}
	blob, err := Encrypt(wallets, "a-password")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(blob) < saltLen+ivLen+16 {
		t.Fatalf("blob too short to hold salt+iv+ciphertext: %d bytes", len(blob))
	}
}

func TestDecryptRejectsWrongPassword(t *testing.T) {
	wallets := []wallet.Wallet{mustWallet(t, "right-password-seed")}
	blob, err := Encrypt(wallets, "right password")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, err = Decrypt(blob, "wrong password")
	if err == nil {
		t.Fatalf("expected an error decrypting with the wrong password")
	}
	if !nodeerrors.Is(err, nodeerrors.KindPassword) {
		t.Fatalf("expected a WrongPassword error, got %v", err)
	}
}

func TestDecryptRejectsTruncatedBlob(t *testing.T) {
	_, err := Decrypt([]byte("too short"), "whatever")
	if !nodeerrors.Is(err, nodeerrors.KindPassword) {
		t.Fatalf("expected a WrongPassword error for a truncated blob, got %v", err)
	}
}

func TestGenerateMnemonicSeedProducesUsableWords(t *testing.T) {
	mnemonic, err := GenerateMnemonicSeed()
	if err != nil {
		t.Fatalf("GenerateMnemonicSeed: %v", err)
	}
	if mnemonic == "" {
		t.Fatalf("expected a non-empty mnemonic")
	}

	w, err := wallet.New(mnemonic)
	if err != nil {
		t.Fatalf("wallet.New from mnemonic seed: %v", err)
	}
	if w.Address == "" {
		t.Fatalf("expected a derived address from the mnemonic seed")
	}
}
