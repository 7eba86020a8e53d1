package pubstore

import (
	"testing"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/netaddr"
	"github.com/quantcoin/quantcoind/internal/transaction"
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

func minedBlock(t *testing.T, author string) *block.Block {
	t.Helper()
	amount := float64(50)
	tx, err := transaction.New(nil, []transaction.Payee{{Address: &author, Amount: amount}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	b, err := block.New(author, []*transaction.Transaction{tx}, block.GenesisPrevious)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if !b.ProofOfWork(1, 0, 1<<20) {
		t.Fatalf("failed to mine block within search window")
	}
	return b
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	w := mustWallet(t, "pubstore-seed")
	b := minedBlock(t, w.Address)

	f := File{
		Blocks: []*block.Block{b},
		Peers:  []netaddr.Addr{{IP: "127.0.0.1", Port: 65345}, {IP: "10.0.0.2", Port: 9000}},
	}

	data, err := Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(got.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(got.Blocks))
	}
	if got.Blocks[0].Author != b.Author {
		t.Fatalf("author mismatch: got %s want %s", got.Blocks[0].Author, b.Author)
	}
	if string(got.Blocks[0].Digest) != string(b.Digest) {
		t.Fatalf("digest mismatch after round trip")
	}

	if len(got.Peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(got.Peers))
	}
	if got.Peers[0] != f.Peers[0] || got.Peers[1] != f.Peers[1] {
		t.Fatalf("peer mismatch after round trip: got %+v want %+v", got.Peers, f.Peers)
	}
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	if err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestMarshalEmptyFile(t *testing.T) {
	data, err := Marshal(File{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Blocks) != 0 || len(got.Peers) != 0 {
		t.Fatalf("expected empty file to round-trip empty, got %+v", got)
	}
}
