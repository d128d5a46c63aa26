package model

// Sender used by the reward transaction a node credits itself after mining.
const MINT_SENDER = "0"

type Transaction struct {
	// Identifier of the sender, MINT_SENDER for freshly minted coins.
	Sender string `json:"sender"`
	// Identifier of the receiver.
	Recipient string `json:"recipient"`
	// How much value to transfer.
	Amount float64 `json:"amount"`
}

type TransactionPool struct {
	// Pending contains all transactions accepted since the last block, in
	// arrival order. It becomes the next block's transaction list.
	Pending []Transaction
}

// NewTransactionPool creates a new transaction pool with no transaction at all.
func NewTransactionPool() TransactionPool {
	return TransactionPool{
		Pending: make([]Transaction, 0),
	}
}

// Drain empties the pool and returns what it held.
func (p *TransactionPool) Drain() []Transaction {
	txs := p.Pending
	p.Pending = make([]Transaction, 0)
	return txs
}
