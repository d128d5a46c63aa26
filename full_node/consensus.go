package full_node

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
	"go.uber.org/zap"
)

type Outcome int

const (
	// Our chain stays, no peer had a valid strictly longer one.
	AUTHORITATIVE Outcome = iota
	// A peer's chain replaced ours.
	ADOPTED
)

func (o Outcome) String() string {
	if o == ADOPTED {
		return "adopted"
	}
	return "authoritative"
}

// PeerReport explains why a peer's chain was not considered. Reason starts
// with one of "fetch failed", "empty response", "reported length" or
// "invalid chain".
type PeerReport struct {
	Peer   string `json:"peer"`
	Reason string `json:"reason"`
}

type ResolveResult struct {
	Outcome Outcome
	// The chain held once resolution is over, whichever it is.
	Chain []model.Block
	// Peer whose chain was adopted, empty unless Outcome is ADOPTED.
	From    string
	Skipped []PeerReport
}

type fetchResult struct {
	peer string
	res  *model.ChainResponse
	err  error
}

// ResolveConflicts implements the longest valid chain rule. Every peer is asked
// for its chain concurrently. The answers are then walked in peer order and the
// longest valid chain strictly longer than ours is adopted. A peer is skipped
// and reported when it cannot be reached, sends no body, holds an invalid
// chain, or reports a length that differs from the number of blocks it sent.
// Length is never trusted on its own, so such an answer is dropped even when
// its blocks would form a valid longer chain.
func (sev *FullNodeServer) ResolveConflicts(ctx context.Context) ResolveResult {
	peers := sev.peers.List()
	results := make([]fetchResult, len(peers))

	var wg sync.WaitGroup
	for i, peer := range peers {
		wg.Add(1)
		go func(i int, peer string) {
			defer wg.Done()
			res, err := sev.fetcher.FetchChain(ctx, peer)
			results[i] = fetchResult{peer: peer, res: res, err: err}
		}(i, peer)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].peer < results[j].peer })

	skipped := []PeerReport{}
	skip := func(peer string, reason string) {
		sev.logger.Warn("peer chain skipped", zap.String("peer", peer), zap.String("reason", reason))
		skipped = append(skipped, PeerReport{Peer: peer, Reason: reason})
	}

	maxLength := sev.fullNode.GetHeight()
	var best []model.Block
	from := ""
	for _, r := range results {
		if r.err != nil {
			skip(r.peer, fmt.Sprintf("fetch failed: %v", r.err))
			continue
		}
		if r.res == nil {
			skip(r.peer, "empty response")
			continue
		}
		if r.res.Length != len(r.res.Chain) {
			skip(r.peer, fmt.Sprintf("reported length %d but sent %d blocks", r.res.Length, len(r.res.Chain)))
			continue
		}
		if r.res.Length <= maxLength {
			continue
		}
		if err := utils.ValidateChain(r.res.Chain); err != nil {
			skip(r.peer, fmt.Sprintf("invalid chain: %v", err))
			continue
		}
		maxLength = r.res.Length
		best = r.res.Chain
		from = r.peer
	}

	if best != nil && sev.fullNode.ReplaceChain(best) {
		sev.logger.Info("chain replaced by consensus", zap.String("from", from), zap.Int("length", len(best)))
		if sev.config.REMINE_ON_CHAIN_REPLACE {
			sev.interruptMining()
		}
		return ResolveResult{
			Outcome: ADOPTED,
			Chain:   sev.fullNode.GetChain(),
			From:    from,
			Skipped: skipped,
		}
	}
	if best != nil {
		sev.logger.Info("local chain grew past the candidate, keeping it", zap.String("from", from))
	}
	return ResolveResult{
		Outcome: AUTHORITATIVE,
		Chain:   sev.fullNode.GetChain(),
		Skipped: skipped,
	}
}
