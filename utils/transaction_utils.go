package utils

import (
	"math"

	"github.com/fsoubelet/toychain/model"
)

// CreateRewardTx creates the transaction that pays the miner for a new block.
func CreateRewardTx(recipient string, reward float64) model.Transaction {
	return model.Transaction{
		Sender:    model.MINT_SENDER,
		Recipient: recipient,
		Amount:    reward,
	}
}

// IsValidAmount reports whether amount can be transferred: finite and not negative.
func IsValidAmount(amount float64) bool {
	return amount >= 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

func IsRewardTx(tx *model.Transaction) bool {
	return tx.Sender == model.MINT_SENDER
}

// PruneTransactions returns the pending transactions that are not already
// committed somewhere in chain. Each committed copy cancels one pending copy,
// so a transfer legitimately queued twice survives once if only one made it.
func PruneTransactions(pending []model.Transaction, chain []model.Block) []model.Transaction {
	committed := make(map[model.Transaction]int)
	for i := 0; i < len(chain); i++ {
		for _, tx := range chain[i].Transactions {
			committed[tx]++
		}
	}
	kept := make([]model.Transaction, 0, len(pending))
	for _, tx := range pending {
		if committed[tx] > 0 {
			committed[tx]--
			continue
		}
		kept = append(kept, tx)
	}
	return kept
}
