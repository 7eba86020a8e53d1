// Package miner composes a node.Node with a transaction queue and a
// mining loop, per §4.8 and SPEC_FULL.md's REDESIGN FLAG: composition
// via a node.HandlerSet, never a Node subclass.
package miner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/logging"
	"github.com/quantcoin/quantcoind/internal/netclient"
	"github.com/quantcoin/quantcoind/internal/node"
	"github.com/quantcoin/quantcoind/internal/store"
	"github.com/quantcoin/quantcoind/internal/transaction"
	"github.com/quantcoin/quantcoind/internal/validator"
)

// windowSize bounds each ProofOfWork search so the mining loop can
// check for a new tip between windows (§4.8).
const windowSize = 101

// gateSleep is how long Mine waits before re-checking its gates when
// the queue doesn't yet meet minTxCount/minCommission.
const gateSleep = 5 * time.Second

// Difficulty returns the required leading-zero-byte count at the
// given chain height, per SPEC_FULL.md's "newer formula"
// 52 - 50/(1+height/100_000). The legacy `2+sqrt(height)` variant is
// superseded and intentionally not implemented.
func Difficulty(height int64) int {
	return validator.Difficulty(int(height))
}

// queue is a mutex-protected, drainable pending-transaction list.
type queue struct {
	mu  sync.Mutex
	txs []*transaction.Transaction
}

func (q *queue) push(tx *transaction.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.txs = append(q.txs, tx)
}

// drain atomically empties the queue and returns everything it held.
func (q *queue) drain() []*transaction.Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.txs
	q.txs = nil
	return out
}

// requeue pushes every transaction in txs back onto the front of the
// queue, used when a candidate block is abandoned mid-mine (§9.7: the
// re-queuing REDESIGN FLAG, superseding the legacy discard-on-cancel
// behavior).
func (q *queue) requeue(txs []*transaction.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.txs = append(txs, q.txs...)
}

// removeIncluded drops every queued transaction that b already
// contains, so a block the miner mines elsewhere doesn't get
// re-offered.
func (q *queue) removeIncluded(b *block.Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	remaining := q.txs[:0]
	for _, tx := range q.txs {
		if !b.ContainsTransaction(tx) {
			remaining = append(remaining, tx)
		}
	}
	q.txs = remaining
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.txs)
}

func (q *queue) commission() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	var total float64
	for _, tx := range q.txs {
		total += tx.Commission()
	}
	return total
}

// Miner wraps a node.Node with its own transaction queue and mining
// loop. It never subclasses node.Node; it installs a HandlerSet that
// closes over its own state.
type Miner struct {
	wallet  string
	chain   *store.Store
	client  *netclient.Client
	queue   *queue
	log     *logging.Logger

	lastBlock         atomic.Pointer[block.Block]
	lastHeight        atomic.Int64
	mining            atomic.Bool
	networkDifficulty atomic.Int64
}

// New builds a Miner for author wallet address, over the given chain
// and outbound client. Call Handlers to obtain the node.HandlerSet to
// pass into node.New.
func New(wallet string, chain *store.Store, client *netclient.Client) *Miner {
	m := &Miner{
		wallet: wallet,
		chain:  chain,
		client: client,
		queue:  &queue{},
		log:    logging.GetDefault().Component("miner"),
	}
	m.lastBlock.Store(chain.LastBlock())
	m.lastHeight.Store(int64(chain.Height()))
	m.networkDifficulty.Store(int64(Difficulty(m.lastHeight.Load())))
	return m
}

// Handlers returns the HandlerSet a node.Node should be constructed
// with so that incoming blocks and transactions feed this miner's
// state instead of a plain node's default behavior.
func (m *Miner) Handlers() node.HandlerSet {
	return node.HandlerSet{
		OnNewBlock: m.onNewBlock,
		OnSend:     m.onSend,
	}
}

// onNewBlock validates and stores an arriving block, then removes any
// now-redundant transactions from the local queue and refreshes the
// atomics that gate/retarget the mining loop (§4.8's "Arrival of a
// remote block").
func (m *Miner) onNewBlock(b *block.Block) error {
	difficulty := int(m.networkDifficulty.Load())
	if err := validator.Validate(m.chain, difficulty, b); err != nil {
		return err
	}
	if !m.chain.StoreBlock(b) {
		return nil
	}

	m.queue.removeIncluded(b)
	m.lastBlock.Store(b)
	newHeight := int64(m.chain.Height())
	m.lastHeight.Store(newHeight)
	m.networkDifficulty.Store(int64(Difficulty(newHeight)))
	return nil
}

// onSend verifies an arriving transaction and enqueues it, dropping
// (and logging) anything that fails to verify (§4.8's "Arrival of a
// transaction").
func (m *Miner) onSend(tx *transaction.Transaction) error {
	if tx.IsCreationTransaction() {
		m.log.Debug("dropping creation transaction received over the wire")
		return nil
	}
	if !tx.Verify() {
		m.log.Debug("dropping transaction with invalid signature")
		return nil
	}
	m.queue.push(tx)
	return nil
}

// StopMining requests that an in-flight Mine loop exit at its next
// window boundary.
func (m *Miner) StopMining() {
	m.mining.Store(false)
}

// IsMining reports whether a Mine loop is currently running, for
// status reporting (internal/monitor).
func (m *Miner) IsMining() bool {
	return m.mining.Load()
}

// Mine runs the gated mining loop of §4.8 until ctx is canceled or
// StopMining is called: it waits for the queue to satisfy
// minTxCount/minCommission, builds a candidate block over the current
// tip, and searches windowSize-nonce windows for a valid proof of
// work, checking between windows whether a new tip has arrived. On
// success it stores the block locally and announces it via netclient;
// on an abandoned candidate (a competing block arrived mid-search) it
// re-queues the candidate's transactions and retargets.
func (m *Miner) Mine(ctx context.Context, minTxCount int, minCommission float64) {
	m.mining.Store(true)
	for m.mining.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.queue.len() < minTxCount || m.queue.commission() < minCommission {
			select {
			case <-ctx.Done():
				return
			case <-time.After(gateSleep):
			}
			continue
		}

		startHeight := m.lastHeight.Load()
		txs := m.queue.drain()

		commission, err := transaction.New(nil, []transaction.Payee{{Address: strPtr(m.wallet), Amount: validator.BlockSubsidy}})
		if err != nil {
			m.log.Error("failed to build creation transaction", "error", err)
			m.queue.requeue(txs)
			continue
		}
		candidateTxs := append([]*transaction.Transaction{commission}, txs...)

		previous := block.GenesisPrevious
		if last := m.lastBlock.Load(); last != nil {
			previous = last.Digest
		}
		candidate, err := block.New(m.wallet, candidateTxs, previous)
		if err != nil {
			m.log.Error("failed to build candidate block", "error", err)
			m.queue.requeue(txs)
			continue
		}

		difficulty := int(m.networkDifficulty.Load())
		abandoned := false
		var nonce uint64
		for {
			if !m.mining.Load() {
				abandoned = true
				break
			}
			select {
			case <-ctx.Done():
				m.queue.requeue(txs)
				return
			default:
			}
			if m.lastHeight.Load() != startHeight {
				abandoned = true
				break
			}
			if candidate.ProofOfWork(difficulty, nonce, nonce+windowSize) {
				break
			}
			nonce += windowSize
		}

		if abandoned || candidate.Digest == nil {
			m.queue.requeue(txs)
			continue
		}

		if !m.chain.StoreBlock(candidate) {
			m.queue.requeue(txs)
			continue
		}
		m.lastBlock.Store(candidate)
		newHeight := int64(m.chain.Height())
		m.lastHeight.Store(newHeight)
		m.networkDifficulty.Store(int64(Difficulty(newHeight)))

		if err := m.client.NewBlock(candidate); err != nil {
			m.log.Warn("failed to announce mined block", "error", err)
		}
	}
}

func strPtr(s string) *string { return &s }
