// Package node implements the raw-TCP protocol endpoint of §5/§6: a
// listener that accepts one connection per goroutine, reads a single
// JSON command object bounded at 10,000 bytes, decodes it with
// protocol.Decode, dispatches it, and
// always closes the socket on every exit path.
//
// Per SPEC_FULL.md's REDESIGN FLAG on subclassing, a Node takes a
// HandlerSet capability struct at construction instead of being
// subclassed by a miner: a miner installs its own OnNewBlock/OnSend
// closures rather than overriding methods.
package node

import (
	"encoding/json"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/logging"
	"github.com/quantcoin/quantcoind/internal/netaddr"
	"github.com/quantcoin/quantcoind/internal/protocol"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/transaction"
	"github.com/quantcoin/quantcoind/internal/validator"
)

// MaxFrameBytes bounds a single inbound command's size (§4.6/§5
// "resource discipline"): a misbehaving or malicious peer cannot make
// a handler read an unbounded amount of memory.
const MaxFrameBytes = 10000

// HandlerSet bundles the two behaviors a node's owner may customize.
// A plain node uses DefaultHandlers; miner.Miner builds its own set
// closing over its transaction queue.
type HandlerSet struct {
	OnNewBlock func(b *block.Block) error
	OnSend     func(tx *transaction.Transaction) error
}

// DefaultHandlers returns the HandlerSet a plain (non-mining) node
// uses: new blocks are validated and stored, sent transactions are a
// no-op (§4.5: "send is a no-op for a plain Node; Miner overrides").
func DefaultHandlers(chain *store.Store, difficulty int) HandlerSet {
	return HandlerSet{
		OnNewBlock: func(b *block.Block) error {
			if err := validator.Validate(chain, difficulty, b); err != nil {
				return err
			}
			chain.StoreBlock(b)
			return nil
		},
		OnSend: func(tx *transaction.Transaction) error {
			return nil
		},
	}
}

// Node is a raw-TCP protocol endpoint.
type Node struct {
	listener net.Listener
	chain    *store.Store
	handlers HandlerSet
	log      *logging.Logger
}

// New binds a listener on addr (e.g. ":65345") and returns a Node
// ready to Serve.
func New(addr string, chain *store.Store, handlers HandlerSet) (*Node, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Node{
		listener: ln,
		chain:    chain,
		handlers: handlers,
		log:      logging.GetDefault().Component("node"),
	}, nil
}

// Addr returns the listener's bound address.
func (n *Node) Addr() net.Addr {
	return n.listener.Addr()
}

// Close stops accepting new connections.
func (n *Node) Close() error {
	return n.listener.Close()
}

// Serve accepts connections until the listener is closed. Each
// connection is handled on its own goroutine.
func (n *Node) Serve() error {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			return err
		}
		go n.handleConn(conn)
	}
}

func (n *Node) handleConn(conn net.Conn) {
	connID := uuid.New().String()
	defer conn.Close()

	// Decode exactly one JSON object rather than reading to EOF, so a
	// get_* requester can wait for the reply on the same connection.
	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(conn, MaxFrameBytes)).Decode(&raw); err != nil {
		n.log.Debug("failed to read connection", "conn", connID, "error", err)
		return
	}

	cmd, err := protocol.Decode(raw)
	if err != nil {
		n.log.Debug("malformed command", "conn", connID, "error", err)
		return
	}

	switch c := cmd.(type) {
	case protocol.RegisterCmd:
		n.handleRegister(connID, c)
	case protocol.GetNodesCmd:
		n.handleGetNodes(connID, conn)
	case protocol.GetBlocksCmd:
		n.handleGetBlocks(connID, conn, c)
	case protocol.NewBlockCmd:
		n.handleNewBlock(connID, c)
	case protocol.SendCmd:
		n.handleSend(connID, c)
	default:
		panic("unhandled command type")
	}
}

func (n *Node) handleRegister(connID string, c protocol.RegisterCmd) {
	n.chain.StorePeer(netaddr.Addr{IP: c.Address, Port: c.Port})
	n.log.Debug("registered peer", "conn", connID, "address", c.Address, "port", c.Port)
}

func (n *Node) handleGetNodes(connID string, conn net.Conn) {
	peers := n.chain.AllPeers()
	pairs := make([][2]interface{}, len(peers))
	for i, p := range peers {
		pairs[i] = p.Pair()
	}
	if err := json.NewEncoder(conn).Encode(pairs); err != nil {
		n.log.Debug("failed to write get_nodes response", "conn", connID, "error", err)
	}
}

func (n *Node) handleGetBlocks(connID string, conn net.Conn, c protocol.GetBlocksCmd) {
	var blocks []*block.Block
	if c.Range != nil {
		blocks = n.chain.BlockRange(c.Range[0], c.Range[1])
	} else {
		blocks = n.chain.Blocks()
	}

	wires := make([]*block.Wire, len(blocks))
	for i, b := range blocks {
		w, err := b.ToWire()
		if err != nil {
			n.log.Warn("failed to encode block for get_blocks", "conn", connID, "error", err)
			return
		}
		wires[i] = w
	}
	if err := json.NewEncoder(conn).Encode(wires); err != nil {
		n.log.Debug("failed to write get_blocks response", "conn", connID, "error", err)
	}
}

func (n *Node) handleNewBlock(connID string, c protocol.NewBlockCmd) {
	b, err := block.FromJSON(c.Block)
	if err != nil {
		n.log.Debug("malformed new_block payload", "conn", connID, "error", err)
		return
	}
	if err := n.handlers.OnNewBlock(b); err != nil {
		n.log.Debug("rejected new block", "conn", connID, "error", err)
	}
}

func (n *Node) handleSend(connID string, c protocol.SendCmd) {
	tx, err := transaction.FromJSON(c.Transaction)
	if err != nil {
		n.log.Debug("malformed send payload", "conn", connID, "error", err)
		return
	}
	if err := n.handlers.OnSend(tx); err != nil {
		n.log.Debug("rejected sent transaction", "conn", connID, "error", err)
	}
}
