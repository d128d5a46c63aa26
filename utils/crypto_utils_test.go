package utils

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/fsoubelet/toychain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBlock() model.Block {
	return model.Block{
		Index:     2,
		Timestamp: 1600000001.5,
		Transactions: []model.Transaction{
			{Sender: "a", Recipient: "b", Amount: 5},
		},
		Proof:        35293,
		PreviousHash: "00ab",
	}
}

func TestHashBlock(t *testing.T) {
	testBlock := createTestBlock()

	h := HashBlock(&testBlock)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashBlock(&testBlock))

	blockBytes, err := GetBlockBytes(&testBlock)
	require.Nil(t, err)
	assert.Equal(t, BytesToHex(SHA256(blockBytes)), h)
}

func TestGetBlockBytesIsSorted(t *testing.T) {
	testBlock := createTestBlock()
	blockBytes, err := GetBlockBytes(&testBlock)
	require.Nil(t, err)
	assert.Equal(t,
		`{"index":2,"previous_hash":"00ab","proof":35293,"timestamp":1600000001.5,`+
			`"transactions":[{"amount":5,"recipient":"b","sender":"a"}]}`,
		string(blockBytes))
}

func TestHashBlockIgnoresFieldOrder(t *testing.T) {
	testBlock := createTestBlock()

	// Same values, keys shuffled, as a peer might send them.
	raw := `{"proof":35293,"transactions":[{"recipient":"b","amount":5,"sender":"a"}],` +
		`"previous_hash":"00ab","timestamp":1600000001.5,"index":2}`
	var decoded model.Block
	require.Nil(t, json.Unmarshal([]byte(raw), &decoded))

	assert.Equal(t, HashBlock(&testBlock), HashBlock(&decoded))
}

func TestHashBlockChangesWithContent(t *testing.T) {
	testBlock := createTestBlock()
	h := HashBlock(&testBlock)

	other := createTestBlock()
	other.Proof++
	assert.NotEqual(t, h, HashBlock(&other))

	other = createTestBlock()
	other.PreviousHash = "00ac"
	assert.NotEqual(t, h, HashBlock(&other))

	other = createTestBlock()
	other.Transactions[0].Recipient = "c"
	assert.NotEqual(t, h, HashBlock(&other))
}

func TestHashBlockEmptyTransactions(t *testing.T) {
	// nil and empty transaction lists are the same block.
	a := createTestBlock()
	a.Transactions = nil
	b := createTestBlock()
	b.Transactions = []model.Transaction{}
	assert.Equal(t, HashBlock(&a), HashBlock(&b))
}

func TestHashBlockNonFiniteAmounts(t *testing.T) {
	pos := createTestBlock()
	pos.Transactions[0].Amount = math.Inf(1)
	neg := createTestBlock()
	neg.Transactions[0].Amount = math.Inf(-1)
	nan := createTestBlock()
	nan.Transactions[0].Amount = math.NaN()

	assert.NotEqual(t, HashBlock(&pos), HashBlock(&neg))
	assert.NotEqual(t, HashBlock(&pos), HashBlock(&nan))
	assert.NotEqual(t, HashBlock(&neg), HashBlock(&nan))
}
