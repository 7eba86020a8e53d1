// Package netclient is the fan-out protocol client described in §4.5
// (the spec's "Network"): it snapshots the current peer set, visits
// peers in random order, and dials each in isolation so one
// unreachable peer never blocks or fails the others. Grounded on the
// teacher's message_sender.go broadcast pattern (per-peer isolation,
// swallow-and-continue on failure), adapted from libp2p streams to
// raw TCP dial.
package netclient

import (
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/logging"
	"github.com/quantcoin/quantcoind/internal/netaddr"
	"github.com/quantcoin/quantcoind/internal/protocol"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/transaction"
)

// MaxResponseBytes bounds a single peer's response, matching node's
// inbound frame cap.
const MaxResponseBytes = 10000

// ConnectTimeout bounds how long a single peer dial may block.
const ConnectTimeout = 5 * time.Second

// Client fans a command out to every known peer.
type Client struct {
	chain *store.Store
	log   *logging.Logger
}

// New returns a Client that reads its peer set from chain.
func New(chain *store.Store) *Client {
	return &Client{chain: chain, log: logging.GetDefault().Component("netclient")}
}

// ResponseHandler is invoked once per peer that returns a response,
// possibly concurrently from multiple peers; implementations must be
// thread-safe.
type ResponseHandler func(resp json.RawMessage, peer netaddr.Addr)

// SendCmd dispatches cmd to every known peer in a random order, each
// on its own connection. It returns immediately; the fan-out runs on
// a background goroutine so the caller never blocks (§4.5). If
// onResponse is non-nil, each peer's response (up to
// MaxResponseBytes) is parsed and handed to it.
func (c *Client) SendCmd(cmd protocol.Command, onResponse ResponseHandler) {
	go c.sendCmd(cmd, onResponse)
}

func (c *Client) sendCmd(cmd protocol.Command, onResponse ResponseHandler) {
	raw, err := protocol.Encode(cmd)
	if err != nil {
		c.log.Warn("failed to encode outbound command", "error", err)
		return
	}

	peers := c.chain.AllPeers()
	order := rand.Perm(len(peers))
	for _, i := range order {
		peer := peers[i]
		c.visit(peer, raw, onResponse)
	}
}

func (c *Client) visit(peer netaddr.Addr, raw []byte, onResponse ResponseHandler) {
	conn, err := net.DialTimeout("tcp", peer.String(), ConnectTimeout)
	if err != nil {
		c.log.Debug("failed to dial peer", "peer", peer.String(), "error", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write(raw); err != nil {
		c.log.Debug("failed to write to peer", "peer", peer.String(), "error", err)
		return
	}
	if onResponse == nil {
		return
	}

	body, err := io.ReadAll(io.LimitReader(conn, MaxResponseBytes))
	if err != nil {
		c.log.Debug("failed to read peer response", "peer", peer.String(), "error", err)
		return
	}
	var parsed json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log.Debug("malformed peer response", "peer", peer.String(), "error", err)
		return
	}
	onResponse(parsed, peer)
}

// Register announces this node's own listen address to every peer.
func (c *Client) Register(address string, port int) {
	c.SendCmd(protocol.RegisterCmd{Address: address, Port: port}, nil)
}

// NewBlock announces a newly mined or received block to every peer.
func (c *Client) NewBlock(b *block.Block) error {
	raw, err := b.MarshalJSON()
	if err != nil {
		return err
	}
	c.SendCmd(protocol.NewBlockCmd{Block: raw}, nil)
	return nil
}

// Send broadcasts a transaction to every peer.
func (c *Client) Send(tx *transaction.Transaction) error {
	raw, err := tx.MarshalJSON()
	if err != nil {
		return err
	}
	c.SendCmd(protocol.SendCmd{Transaction: raw}, nil)
	return nil
}

// GetNodes requests each peer's known peer set and hands every
// response to cb.
func (c *Client) GetNodes(cb ResponseHandler) {
	c.SendCmd(protocol.GetNodesCmd{}, cb)
}

// GetBlocks requests each peer's full block list.
func (c *Client) GetBlocks(cb ResponseHandler) {
	c.SendCmd(protocol.GetBlocksCmd{}, cb)
}

// GetRangeBlocks requests each peer's blocks in [start, end).
func (c *Client) GetRangeBlocks(start, end int, cb ResponseHandler) {
	r := [2]int{start, end}
	c.SendCmd(protocol.GetBlocksCmd{Range: &r}, cb)
}
