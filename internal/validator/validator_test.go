package validator

import (
	"testing"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/nodeerrors"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/transaction"
	"github.com/quantcoin/quantcoind/internal/wallet"
)

func addr(s string) *string { return &s }

func mustWallet(t *testing.T, seed string) wallet.Wallet {
	t.Helper()
	w, err := wallet.New(seed)
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	return w
}

func mineBlock(t *testing.T, b *block.Block, difficulty int) {
	t.Helper()
	if !b.ProofOfWork(difficulty, 0, 2000000) {
		t.Fatalf("failed to mine test block")
	}
}

func creationBlock(t *testing.T, author string, amount float64) *block.Block {
	t.Helper()
	tx, err := transaction.New(nil, []transaction.Payee{{Address: addr(author), Amount: amount}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	b, err := block.New(author, []*transaction.Transaction{tx}, block.GenesisPrevious)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	mineBlock(t, b, 1)
	return b
}

func TestValidateAcceptsGenesisCreationBlock(t *testing.T) {
	chain := store.New()
	w := mustWallet(t, "genesis miner")
	b := creationBlock(t, w.Address, BlockSubsidy)
	if err := Validate(chain, 1, b); err != nil {
		t.Fatalf("expected genesis creation block to validate, got %v", err)
	}
}

func TestValidateRejectsExcessCreation(t *testing.T) {
	chain := store.New()
	w := mustWallet(t, "greedy miner")
	b := creationBlock(t, w.Address, BlockSubsidy+0.01)
	if err := Validate(chain, 1, b); !nodeerrors.Is(err, nodeerrors.KindValidation) {
		t.Fatalf("expected validation error for excess creation, got %v", err)
	}
}

func TestValidateRejectsBadPrevious(t *testing.T) {
	chain := store.New()
	w := mustWallet(t, "miner")
	tx, err := transaction.New(nil, []transaction.Payee{{Address: addr(w.Address), Amount: BlockSubsidy}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	b, err := block.New(w.Address, []*transaction.Transaction{tx}, []byte("not_genesis"))
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	mineBlock(t, b, 1)
	if err := Validate(chain, 1, b); !nodeerrors.Is(err, nodeerrors.KindValidation) {
		t.Fatalf("expected validation error for bad previous digest, got %v", err)
	}
}

func TestValidateAcceptsChainedSpend(t *testing.T) {
	chain := store.New()
	miner := mustWallet(t, "chain miner")
	genesis := creationBlock(t, miner.Address, BlockSubsidy)
	chain.StoreBlock(genesis)

	recipient := mustWallet(t, "chain recipient")
	tx, err := transaction.New(addr(miner.Address), []transaction.Payee{{Address: addr(recipient.Address), Amount: 10}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	if err := tx.Sign(miner.PrivateKey, miner.PublicKey); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	b, err := block.New(miner.Address, []*transaction.Transaction{tx}, genesis.Digest)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	mineBlock(t, b, 1)
	if err := Validate(chain, 1, b); err != nil {
		t.Fatalf("expected spend within balance to validate, got %v", err)
	}
}

func TestValidateRejectsOverdraw(t *testing.T) {
	chain := store.New()
	miner := mustWallet(t, "overdraw miner")
	genesis := creationBlock(t, miner.Address, BlockSubsidy)
	chain.StoreBlock(genesis)

	recipient := mustWallet(t, "overdraw recipient")
	tx, err := transaction.New(addr(miner.Address), []transaction.Payee{{Address: addr(recipient.Address), Amount: BlockSubsidy + 1}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	if err := tx.Sign(miner.PrivateKey, miner.PublicKey); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	b, err := block.New(miner.Address, []*transaction.Transaction{tx}, genesis.Digest)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	mineBlock(t, b, 1)
	if err := Validate(chain, 1, b); !nodeerrors.Is(err, nodeerrors.KindValidation) {
		t.Fatalf("expected overdraw to fail validation, got %v", err)
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	chain := store.New()
	miner := mustWallet(t, "tamper sig miner")
	genesis := creationBlock(t, miner.Address, BlockSubsidy)
	chain.StoreBlock(genesis)

	recipient := mustWallet(t, "tamper sig recipient")
	tx, err := transaction.New(addr(miner.Address), []transaction.Payee{{Address: addr(recipient.Address), Amount: 5}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	if err := tx.Sign(miner.PrivateKey, miner.PublicKey); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Signature[0] ^= 0xFF
	b, err := block.New(miner.Address, []*transaction.Transaction{tx}, genesis.Digest)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	mineBlock(t, b, 1)
	if err := Validate(chain, 1, b); !nodeerrors.Is(err, nodeerrors.KindValidation) {
		t.Fatalf("expected tampered signature to fail validation, got %v", err)
	}
}

func TestDifficultyIncreasesWithHeight(t *testing.T) {
	if Difficulty(100000) <= Difficulty(0) {
		t.Fatalf("expected difficulty to increase with height")
	}
	if Difficulty(0) != 2 {
		t.Fatalf("expected genesis-era difficulty of 2, got %d", Difficulty(0))
	}
}
