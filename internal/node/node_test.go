package node

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/protocol"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/transaction"
	"github.com/quantcoin/quantcoind/internal/wallet"
)

func addr(s string) *string { return &s }

func startTestNode(t *testing.T, chain *store.Store, handlers HandlerSet) *Node {
	t.Helper()
	n, err := New("127.0.0.1:0", chain, handlers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go n.Serve()
	t.Cleanup(func() { n.Close() })
	return n
}

func dialAndSend(t *testing.T, addr net.Addr, payload []byte, wantResponse bool) []byte {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !wantResponse {
		return nil
	}
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return line
}

func TestRegisterStoresPeer(t *testing.T) {
	chain := store.New()
	n := startTestNode(t, chain, DefaultHandlers(chain, 1))

	raw, err := protocol.Encode(protocol.RegisterCmd{Address: "10.0.0.5", Port: 9999})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Close without reading a response; register has none.
	conn, err := net.DialTimeout("tcp", n.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write(raw)
	conn.Close()

	time.Sleep(100 * time.Millisecond)
	peers := chain.AllPeers()
	if len(peers) != 1 || peers[0].IP != "10.0.0.5" || peers[0].Port != 9999 {
		t.Fatalf("expected registered peer to be stored, got %+v", peers)
	}
}

func TestGetNodesReturnsKnownPeers(t *testing.T) {
	chain := store.New()
	n := startTestNode(t, chain, DefaultHandlers(chain, 1))

	raw, err := protocol.Encode(protocol.RegisterCmd{Address: "1.2.3.4", Port: 1234})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	conn, _ := net.DialTimeout("tcp", n.Addr().String(), 2*time.Second)
	conn.Write(raw)
	conn.Close()
	time.Sleep(100 * time.Millisecond)

	getNodesRaw, err := protocol.Encode(protocol.GetNodesCmd{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	resp := dialAndSend(t, n.Addr(), getNodesRaw, true)

	var pairs [][2]interface{}
	if err := json.Unmarshal(resp, &pairs); err != nil {
		t.Fatalf("unmarshal get_nodes response: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one known peer, got %d", len(pairs))
	}
}

func TestNewBlockValidatesAndStores(t *testing.T) {
	chain := store.New()
	n := startTestNode(t, chain, DefaultHandlers(chain, 1))

	w, err := wallet.New("node test miner")
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	tx, err := transaction.New(nil, []transaction.Payee{{Address: addr(w.Address), Amount: 50}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	b, err := block.New(w.Address, []*transaction.Transaction{tx}, block.GenesisPrevious)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if !b.ProofOfWork(1, 0, 2000000) {
		t.Fatalf("failed to mine test block")
	}
	blockJSON, err := b.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	raw, err := protocol.Encode(protocol.NewBlockCmd{Block: blockJSON})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	conn, err := net.DialTimeout("tcp", n.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write(raw)
	conn.Close()

	time.Sleep(100 * time.Millisecond)
	if chain.Height() != 1 {
		t.Fatalf("expected block to be stored, height=%d", chain.Height())
	}
}

func TestNewBlockRejectsBadPrevious(t *testing.T) {
	chain := store.New()
	n := startTestNode(t, chain, DefaultHandlers(chain, 1))

	w, err := wallet.New("bad previous miner")
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	tx, err := transaction.New(nil, []transaction.Payee{{Address: addr(w.Address), Amount: 50}})
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	b, err := block.New(w.Address, []*transaction.Transaction{tx}, []byte("not_genesis_not_32_bytes"))
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if !b.ProofOfWork(1, 0, 2000000) {
		t.Fatalf("failed to mine test block")
	}
	blockJSON, err := b.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	raw, err := protocol.Encode(protocol.NewBlockCmd{Block: blockJSON})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	conn, err := net.DialTimeout("tcp", n.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write(raw)
	conn.Close()

	time.Sleep(100 * time.Millisecond)
	if chain.Height() != 0 {
		t.Fatalf("expected block with bad previous to be rejected, height=%d", chain.Height())
	}
}
