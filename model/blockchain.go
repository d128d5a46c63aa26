package model

const (
	// Previous hash carried by the genesis block, which has no predecessor.
	GENESIS_PREV_HASH = "1"
	// Proof of the genesis block. It is not checked against any predecessor.
	GENESIS_PROOF int64 = 100
)

type Block struct {
	// Position in the chain, starting at 1 for genesis.
	Index int64 `json:"index"`
	// Wall clock time of creation, in seconds since the Unix epoch.
	Timestamp float64 `json:"timestamp"`
	// Transactions drained from the pending pool when this block was forged.
	Transactions []Transaction `json:"transactions"`
	// Proof solving the puzzle against the previous block's proof.
	Proof int64 `json:"proof"`
	// Hash of the previous block in the hex format.
	PreviousHash string `json:"previous_hash"`
}

type Blockchain struct {
	// Blocks from genesis to tail. Blocks[i] has index i+1.
	Blocks []Block
	// Bumped every time the whole chain is replaced by consensus, so that a
	// miner working on an old tail can tell its work is stale.
	Version uint64
}

// Create an empty blockchain. The ledger store forges genesis right after.
func NewBlockChain() Blockchain {
	return Blockchain{
		Blocks: make([]Block, 0),
	}
}

// Tail returns the most recently appended block, nil if the chain is empty.
func (bc *Blockchain) Tail() *Block {
	if len(bc.Blocks) == 0 {
		return nil
	}
	return &bc.Blocks[len(bc.Blocks)-1]
}

func (bc *Blockchain) Len() int {
	return len(bc.Blocks)
}

// ChainResponse is what a node answers on GET /chain, and what the consensus
// resolver expects back from every peer.
type ChainResponse struct {
	Chain  []Block `json:"chain"`
	Length int     `json:"length"`
}
