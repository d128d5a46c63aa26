package full_node

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsoubelet/toychain/config"
	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
	"github.com/jinzhu/copier"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"
)

// ErrInvalidAmount is returned for a NaN, infinite or negative amount.
var ErrInvalidAmount = errors.New("amount must be a finite non negative number")

// ErrStaleTip is returned when a block was mined on a tail that is no longer
// the tail of the chain.
var ErrStaleTip = errors.New("chain tail changed while mining")

// A full node maintains the blockchain and the pool of pending transactions.
type FullNode struct {
	// The blockchain it needs to maintain.
	blockchain model.Blockchain
	// Transaction pool it need to maintain. Incoming transaction are added to this pool.
	txPool model.TransactionPool
	// Blockchain config.
	config config.AppConfig
	// A single mutex for changing internal state.
	m sync.RWMutex
	// A unique indentifier of this Fullnode, fresh on every start. Mining
	// rewards are paid to it.
	uuid string
	logger *zap.Logger
}

// Tip is the tail block together with the chain version it was read from.
type Tip struct {
	Block   model.Block
	Version uint64
}

// Create a brand new full node, which contains a genesis block in the chain.
func NewFullNode(c config.AppConfig, logger *zap.Logger) *FullNode {
	myuuid := uuid.NewV4()
	f := &FullNode{
		blockchain: model.NewBlockChain(),
		txPool:     model.NewTransactionPool(),
		config:     c,
		m:          sync.RWMutex{},
		uuid:       strings.ReplaceAll(myuuid.String(), "-", ""),
		logger:     logger,
	}
	f.AppendBlock(model.GENESIS_PROOF, model.GENESIS_PREV_HASH)
	f.logger.Info("full node created", zap.String("node_id", f.uuid))
	return f
}

func (f *FullNode) GetUUID() string {
	return f.uuid
}

// AppendBlock forges a block out of every pending transaction and appends it.
// An empty previousHash means the hash of the current tail. The proof is not
// checked, mining correctness is the caller's business.
func (f *FullNode) AppendBlock(proof int64, previousHash string) model.Block {
	f.m.Lock()
	defer f.m.Unlock()
	return f.appendBlockLocked(proof, previousHash)
}

func (f *FullNode) appendBlockLocked(proof int64, previousHash string) model.Block {
	ts := float64(time.Now().UnixNano()) / float64(time.Second)
	if tail := f.blockchain.Tail(); tail != nil {
		if previousHash == "" {
			previousHash = utils.HashBlock(tail)
		}
		// Timestamps never go backwards along the chain.
		if ts < tail.Timestamp {
			ts = tail.Timestamp
		}
	}
	block := model.Block{
		Index:        int64(f.blockchain.Len() + 1),
		Timestamp:    ts,
		Transactions: f.txPool.Drain(),
		Proof:        proof,
		PreviousHash: previousHash,
	}
	f.blockchain.Blocks = append(f.blockchain.Blocks, block)
	f.logger.Debug("block appended",
		zap.Int64("index", block.Index),
		zap.Int64("proof", block.Proof),
		zap.Int("transactions", len(block.Transactions)))
	return copyBlock(block)
}

// AddTransaction queues a transaction and returns the index of the block that
// will hold it if nothing else happens first. Callers check the amount with
// utils.IsValidAmount, an invalid one panics as it would poison block hashes.
func (f *FullNode) AddTransaction(sender string, recipient string, amount float64) int64 {
	if !utils.IsValidAmount(amount) {
		panic(fmt.Sprintf("invalid transaction amount %v", amount))
	}
	f.m.Lock()
	defer f.m.Unlock()
	f.txPool.Pending = append(f.txPool.Pending, model.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	})
	return int64(f.blockchain.Len() + 1)
}

func (f *FullNode) LastBlock() model.Block {
	f.m.RLock()
	defer f.m.RUnlock()
	return copyBlock(*f.blockchain.Tail())
}

func (f *FullNode) GetTip() Tip {
	f.m.RLock()
	defer f.m.RUnlock()
	return Tip{
		Block:   copyBlock(*f.blockchain.Tail()),
		Version: f.blockchain.Version,
	}
}

func (f *FullNode) GetHeight() int {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.blockchain.Len()
}

// Return a deep copy of the whole chain.
func (f *FullNode) GetChain() []model.Block {
	f.m.RLock()
	defer f.m.RUnlock()
	chain := make([]model.Block, 0, f.blockchain.Len())
	copier.CopyWithOption(&chain, &f.blockchain.Blocks, copier.Option{DeepCopy: true})
	return chain
}

// Return a deep copy of the pending pool.
func (f *FullNode) GetPendingTransactions() []model.Transaction {
	f.m.RLock()
	defer f.m.RUnlock()
	txs := make([]model.Transaction, 0, len(f.txPool.Pending))
	copier.Copy(&txs, &f.txPool.Pending)
	return txs
}

// ForgeBlock appends a block mined against tip. The reward is queued and the
// block forged under one lock, so nothing can slip in between. If the chain
// moved since tip was read, nothing changes and ErrStaleTip is returned.
func (f *FullNode) ForgeBlock(tip Tip, proof int64, reward model.Transaction) (model.Block, error) {
	f.m.Lock()
	defer f.m.Unlock()

	tail := f.blockchain.Tail()
	if f.blockchain.Version != tip.Version || tail.Index != tip.Block.Index {
		return model.Block{}, ErrStaleTip
	}
	f.txPool.Pending = append(f.txPool.Pending, reward)
	return f.appendBlockLocked(proof, utils.HashBlock(tail)), nil
}

// ReplaceChain swaps the local chain for candidate if candidate is still
// strictly longer. The check and the swap happen under the write lock, so a
// block appended while peers were being queried is taken into account.
func (f *FullNode) ReplaceChain(candidate []model.Block) bool {
	f.m.Lock()
	defer f.m.Unlock()

	if len(candidate) <= f.blockchain.Len() {
		return false
	}

	blocks := make([]model.Block, 0, len(candidate))
	copier.CopyWithOption(&blocks, &candidate, copier.Option{DeepCopy: true})
	f.blockchain.Blocks = blocks
	f.blockchain.Version++

	before := len(f.txPool.Pending)
	switch f.config.PENDING_ON_REPLACE {
	case config.PENDING_DISCARD:
		f.txPool.Drain()
	case config.PENDING_PRUNE:
		f.txPool.Pending = utils.PruneTransactions(f.txPool.Pending, f.blockchain.Blocks)
	}
	f.logger.Info("chain replaced",
		zap.Int("length", f.blockchain.Len()),
		zap.Uint64("version", f.blockchain.Version),
		zap.String("pending_policy", f.config.PENDING_ON_REPLACE),
		zap.Int("pending_before", before),
		zap.Int("pending_after", len(f.txPool.Pending)))
	return true
}

func copyBlock(b model.Block) model.Block {
	txs := make([]model.Transaction, len(b.Transactions))
	copy(txs, b.Transactions)
	b.Transactions = txs
	return b
}
