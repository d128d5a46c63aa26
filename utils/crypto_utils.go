package utils

import (
	"crypto"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/fsoubelet/toychain/model"
)

// Hash message using SHA256
func SHA256(msg []byte) []byte {
	newhash := crypto.SHA256
	pssh := newhash.New()
	pssh.Write(msg)
	return pssh.Sum(nil)
}

// GetBlockBytes returns the canonical encoding of a block: JSON with keys
// sorted at every level. Struct field order never leaks into the digest
// because everything goes through maps, which encoding/json sorts by key.
func GetBlockBytes(block *model.Block) ([]byte, error) {
	txs := make([]map[string]interface{}, 0, len(block.Transactions))
	for i := 0; i < len(block.Transactions); i++ {
		tx := &block.Transactions[i]
		txs = append(txs, map[string]interface{}{
			"amount":    canonicalAmount(tx.Amount),
			"recipient": tx.Recipient,
			"sender":    tx.Sender,
		})
	}
	return json.Marshal(map[string]interface{}{
		"index":         block.Index,
		"previous_hash": block.PreviousHash,
		"proof":         block.Proof,
		"timestamp":     block.Timestamp,
		"transactions":  txs,
	})
}

// JSON has no NaN or Inf. Such amounts are rejected before they reach a
// block, but if one does it is spelled out so that the digest still tells
// blocks apart.
func canonicalAmount(amount float64) interface{} {
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return strconv.FormatFloat(amount, 'g', -1, 64)
	}
	return amount
}

// HashBlock returns the hex SHA256 digest of the block's canonical encoding.
func HashBlock(block *model.Block) string {
	blockBytes, err := GetBlockBytes(block)
	if err != nil {
		panic(fmt.Sprintf("encode block %d: %v", block.Index, err))
	}
	return BytesToHex(SHA256(blockBytes))
}
