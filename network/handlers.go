package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fsoubelet/toychain/commands"
	"github.com/fsoubelet/toychain/full_node"
	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
	"go.uber.org/zap"
)

// Cap on request bodies.
const MAX_BODY_BYTES = 1 << 20

type handler struct {
	sev    *full_node.FullNodeServer
	logger *zap.Logger
}

// Pointer fields tell a missing field from a zero value.
type transactionRequest struct {
	Sender    *string  `json:"sender"`
	Recipient *string  `json:"recipient"`
	Amount    *float64 `json:"amount"`
}

type registerRequest struct {
	Nodes *[]string `json:"nodes"`
}

type mineResponse struct {
	Message      string              `json:"message"`
	Index        int64               `json:"index"`
	Transactions []model.Transaction `json:"transactions"`
	Proof        int64               `json:"proof"`
	PreviousHash string              `json:"previous_hash"`
}

type registerResponse struct {
	Message    string   `json:"message"`
	TotalNodes []string `json:"total_nodes"`
	Rejected   []string `json:"rejected"`
}

type resolveResponse struct {
	Message  string                 `json:"message"`
	NewChain []model.Block          `json:"new_chain,omitempty"`
	Chain    []model.Block          `json:"chain,omitempty"`
	Skipped  []full_node.PeerReport `json:"skipped"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "This is a running toychain node.",
		"node_id": h.sev.GetUUID(),
	})
}

func (h *handler) mine(w http.ResponseWriter, r *http.Request) {
	// A client going away stops the search.
	ctl := make(chan commands.Command, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-r.Context().Done():
			ctl <- commands.Command{Op: commands.STOP}
		case <-done:
		}
	}()

	block, _, err := h.sev.Mine(ctl)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, utils.ErrProofSearchExhausted) || errors.Is(err, utils.ErrMiningInterrupted) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Warn("mining failed", zap.Error(err))
		h.writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, mineResponse{
		Message:      "New Block Forged",
		Index:        block.Index,
		Transactions: nonNil(block.Transactions),
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
	})
}

func (h *handler) newTransaction(w http.ResponseWriter, r *http.Request) {
	req := transactionRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, MAX_BODY_BYTES)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if req.Sender == nil || req.Recipient == nil || req.Amount == nil {
		h.writeError(w, http.StatusBadRequest, "Missing Values")
		return
	}
	index, err := h.sev.AddTransaction(*req.Sender, *req.Recipient, *req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Transaction will be added to Block %d", index),
	})
}

func (h *handler) pendingTransactions(w http.ResponseWriter, r *http.Request) {
	txs := nonNil(h.sev.GetPendingTransactions())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"length":       len(txs),
	})
}

func (h *handler) nodes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{
		"total_nodes": h.sev.GetAllPeers(),
	})
}

func (h *handler) registerNodes(w http.ResponseWriter, r *http.Request) {
	req := registerRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, MAX_BODY_BYTES)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if req.Nodes == nil {
		h.writeError(w, http.StatusBadRequest, "Error: Please supply a valid list of nodes")
		return
	}

	res := h.sev.RegisterPeers(*req.Nodes)
	h.writeJSON(w, http.StatusCreated, registerResponse{
		Message:    fmt.Sprintf("%d new nodes have been successfully added", len(res.Added)),
		TotalNodes: h.sev.GetAllPeers(),
		Rejected:   res.Rejected,
	})
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.sev.GetConfig().ResolveTimeout())
	defer cancel()
	res := h.sev.ResolveConflicts(ctx)
	resp := resolveResponse{Skipped: res.Skipped}
	chain := nonNilBlocks(res.Chain)
	if res.Outcome == full_node.ADOPTED {
		resp.Message = "Our chain was replaced"
		resp.NewChain = chain
	} else {
		resp.Message = "Our chain is authoritative"
		resp.Chain = chain
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) chain(w http.ResponseWriter, r *http.Request) {
	chain := nonNilBlocks(h.sev.GetChain())
	h.writeJSON(w, http.StatusOK, model.ChainResponse{
		Chain:  chain,
		Length: len(chain),
	})
}

// Empty transaction lists go out as [] rather than null.
func nonNil(txs []model.Transaction) []model.Transaction {
	if txs == nil {
		return []model.Transaction{}
	}
	return txs
}

func nonNilBlocks(chain []model.Block) []model.Block {
	for i := range chain {
		chain[i].Transactions = nonNil(chain[i].Transactions)
	}
	return chain
}
