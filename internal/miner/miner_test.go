package miner

import (
	"context"
	"testing"
	"time"

	"github.com/quantcoin/quantcoind/internal/netclient"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/transaction"
	"github.com/quantcoin/quantcoind/internal/wallet"
)

func addr(s string) *string { return &s }

func TestMineProducesGenesisBlock(t *testing.T) {
	chain := store.New()
	client := netclient.New(chain)
	w, err := wallet.New("mining wallet")
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	m := New(w.Address, chain, client)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go m.Mine(ctx, 0, 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if chain.Height() > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	m.StopMining()

	if chain.Height() == 0 {
		t.Fatalf("expected miner to produce at least one block")
	}
	if chain.AmountOwned(w.Address) <= 0 {
		t.Fatalf("expected miner to own a positive balance after mining, got %v", chain.AmountOwned(w.Address))
	}
}

func TestOnSendEnqueuesVerifiedTransaction(t *testing.T) {
	chain := store.New()
	client := netclient.New(chain)
	w, err := wallet.New("queue wallet")
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	m := New(w.Address, chain, client)

	recipient := "QCrecipient00000000000000000000000000000"
	tx, err := transaction.New(addr(w.Address), []transaction.Payee{{Address: &recipient, Amount: 1}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	if err := tx.Sign(w.PrivateKey, w.PublicKey); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := m.onSend(tx); err != nil {
		t.Fatalf("onSend: %v", err)
	}
	if m.queue.len() != 1 {
		t.Fatalf("expected transaction to be enqueued, queue length=%d", m.queue.len())
	}
}

func TestOnSendDropsUnverifiedTransaction(t *testing.T) {
	chain := store.New()
	client := netclient.New(chain)
	w, err := wallet.New("drop wallet")
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	m := New(w.Address, chain, client)

	recipient := "QCrecipient00000000000000000000000000000"
	tx, err := transaction.New(addr(w.Address), []transaction.Payee{{Address: &recipient, Amount: 1}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	// never signed

	if err := m.onSend(tx); err != nil {
		t.Fatalf("onSend: %v", err)
	}
	if m.queue.len() != 0 {
		t.Fatalf("expected unsigned transaction to be dropped, queue length=%d", m.queue.len())
	}
}

func TestDifficultyMatchesValidatorFormula(t *testing.T) {
	if Difficulty(0) != 2 {
		t.Fatalf("expected difficulty 2 at height 0, got %d", Difficulty(0))
	}
	if Difficulty(100000) <= Difficulty(0) {
		t.Fatalf("expected difficulty to increase with height")
	}
}
