package full_node

import (
	"context"
	"errors"

	"github.com/fsoubelet/toychain/commands"
	"github.com/fsoubelet/toychain/config"
	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
	"github.com/fsoubelet/toychain/visualize"
	"go.uber.org/zap"
)

// ChainFetcher asks a peer (host:port) for its whole chain.
// client.FullNodeClient implements it over HTTP.
type ChainFetcher interface {
	FetchChain(ctx context.Context, peer string) (*model.ChainResponse, error)
}

// This server owns everything one node needs: its ledger, its peers and the
// way it talks to them. Several servers can live in one process.
type FullNodeServer struct {
	fullNode *FullNode
	peers    *PeerSet
	fetcher  ChainFetcher
	config   config.AppConfig
	logger   *zap.Logger

	// A command channel to pass command to other part of the system.
	// For now, the only use is the interrupt mining process on chain replacement.
	cmd chan commands.Command
}

// RegisterResult tells which addresses were accepted and which were not.
type RegisterResult struct {
	// Normalized host:port of every newly added peer.
	Added []string
	// Raw addresses that could not be parsed.
	Rejected []string
}

// Create a new full node server. cmd may be nil when nothing listens for
// mining interrupts.
func NewFullNodeServer(c config.AppConfig, peers *PeerSet, fetcher ChainFetcher, cmd chan commands.Command, logger *zap.Logger) *FullNodeServer {
	return &FullNodeServer{
		fullNode: NewFullNode(c, logger),
		peers:    peers,
		fetcher:  fetcher,
		config:   c,
		logger:   logger,
		cmd:      cmd,
	}
}

// Mine one block on top of the current tail and append it, together with the
// reward for this node. If the chain changes under the miner, the search
// starts over on the new tail. ctl may interrupt the search at any time, in
// which case the interrupting command is returned.
func (sev *FullNodeServer) Mine(ctl chan commands.Command) (model.Block, commands.Command, error) {
	for {
		tip := sev.fullNode.GetTip()
		proof, c, err := utils.Mine(tip.Block.Proof, sev.config.MAX_PROOF_ITERATIONS, ctl)
		if err != nil {
			if errors.Is(err, utils.ErrMiningInterrupted) && c.Op == commands.RESTART {
				sev.logger.Info("mining restarted", zap.Int64("on_index", tip.Block.Index))
				continue
			}
			return model.Block{}, c, err
		}

		reward := utils.CreateRewardTx(sev.fullNode.GetUUID(), sev.config.MINING_REWARD)
		block, err := sev.fullNode.ForgeBlock(tip, proof, reward)
		if errors.Is(err, ErrStaleTip) {
			sev.logger.Info("tail changed while mining, mining again", zap.Int64("stale_index", tip.Block.Index))
			continue
		}
		if err != nil {
			return model.Block{}, commands.NewDefaultCommand(), err
		}
		sev.logger.Info("new block forged",
			zap.Int64("index", block.Index),
			zap.Int64("proof", block.Proof),
			zap.Int("transactions", len(block.Transactions)))
		return block, commands.NewDefaultCommand(), nil
	}
}

// AddTransaction queues a transaction and returns the index of the block it
// is headed for, or ErrInvalidAmount.
func (sev *FullNodeServer) AddTransaction(sender string, recipient string, amount float64) (int64, error) {
	if !utils.IsValidAmount(amount) {
		sev.logger.Warn("transaction rejected", zap.Float64("amount", amount))
		return 0, ErrInvalidAmount
	}
	index := sev.fullNode.AddTransaction(sender, recipient, amount)
	sev.logger.Debug("transaction queued",
		zap.String("sender", sender),
		zap.String("recipient", recipient),
		zap.Float64("amount", amount),
		zap.Int64("block", index))
	return index, nil
}

// RegisterPeers registers every address. A malformed one is reported back
// instead of failing the whole batch.
func (sev *FullNodeServer) RegisterPeers(addresses []string) RegisterResult {
	res := RegisterResult{Added: []string{}, Rejected: []string{}}
	for _, address := range addresses {
		peer, added, err := sev.peers.Register(address)
		if err != nil {
			res.Rejected = append(res.Rejected, address)
			continue
		}
		if added {
			res.Added = append(res.Added, peer)
		}
	}
	return res
}

// Return all current peers.
func (sev *FullNodeServer) GetAllPeers() []string {
	return sev.peers.List()
}

func (sev *FullNodeServer) GetChain() []model.Block {
	return sev.fullNode.GetChain()
}

func (sev *FullNodeServer) GetPendingTransactions() []model.Transaction {
	return sev.fullNode.GetPendingTransactions()
}

func (sev *FullNodeServer) GetUUID() string {
	return sev.fullNode.GetUUID()
}

func (sev *FullNodeServer) GetFullNode() *FullNode {
	return sev.fullNode
}

func (sev *FullNodeServer) GetConfig() config.AppConfig {
	return sev.config
}

// Render the last d blocks as a graph.
func (sev *FullNodeServer) Show(d int) error {
	return visualize.Render(sev.fullNode.GetChain(), d, sev.fullNode.GetUUID())
}

// Tell an in-flight miner to start over. Never blocks, a command already
// waiting on the channel is enough.
func (sev *FullNodeServer) interruptMining() {
	if sev.cmd == nil {
		return
	}
	select {
	case sev.cmd <- commands.Command{Op: commands.RESTART}:
	default:
		sev.logger.Debug("command channel busy, restart not sent")
	}
}
