package utils

import (
	"strings"
	"testing"

	"github.com/fsoubelet/toychain/commands"
	"github.com/fsoubelet/toychain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGenesisBlock() model.Block {
	return model.Block{
		Index:        1,
		Timestamp:    1600000000.25,
		Transactions: []model.Transaction{},
		Proof:        model.GENESIS_PROOF,
		PreviousHash: model.GENESIS_PREV_HASH,
	}
}

// Build a chain of n blocks, each one mined against the previous one.
func createTestChain(t *testing.T, n int) []model.Block {
	chain := []model.Block{createGenesisBlock()}
	for len(chain) < n {
		prev := chain[len(chain)-1]
		proof, _, err := Mine(prev.Proof, 0, nil)
		require.Nil(t, err)
		chain = append(chain, model.Block{
			Index:     prev.Index + 1,
			Timestamp: prev.Timestamp + 1,
			Transactions: []model.Transaction{
				{Sender: "a", Recipient: "b", Amount: float64(len(chain))},
				CreateRewardTx("miner", 1),
			},
			Proof:        proof,
			PreviousHash: HashBlock(&prev),
		})
	}
	return chain
}

func TestValidProof(t *testing.T) {
	for lastProof := int64(0); lastProof < 3; lastProof++ {
		for proof := int64(0); proof < 2000; proof++ {
			digest := BytesToHex(SHA256(ProofsToBytes(lastProof, proof)))
			assert.Equal(t, strings.HasPrefix(digest, "0000"), ValidProof(lastProof, proof))
		}
	}
}

func TestProofsToBytes(t *testing.T) {
	assert.Equal(t, []byte("10035293"), ProofsToBytes(100, 35293))
	assert.Equal(t, []byte("0-1"), ProofsToBytes(0, -1))
}

func TestMine(t *testing.T) {
	proof, c, err := Mine(model.GENESIS_PROOF, 0, nil)
	assert.Nil(t, err)
	assert.True(t, c.IsDefault())
	assert.True(t, ValidProof(model.GENESIS_PROOF, proof))

	// Must be the smallest one.
	for p := int64(0); p < proof; p++ {
		if ValidProof(model.GENESIS_PROOF, p) {
			t.Fatalf("proof %d is valid and smaller than mined proof %d", p, proof)
		}
	}
}

func TestMineInterruption(t *testing.T) {
	testChan := make(chan commands.Command, 1)
	testChan <- commands.Command{
		Op: commands.STOP,
	}

	_, c, actualErr := Mine(model.GENESIS_PROOF, 0, testChan)
	assert.ErrorIs(t, actualErr, ErrMiningInterrupted)
	assert.Equal(t, commands.Command{
		Op: commands.STOP,
	}, c)
}

func TestMineExhausted(t *testing.T) {
	proof, _, err := Mine(model.GENESIS_PROOF, 0, nil)
	require.Nil(t, err)
	require.True(t, proof > 0)

	_, _, err = Mine(model.GENESIS_PROOF, proof, nil)
	assert.ErrorIs(t, err, ErrProofSearchExhausted)

	found, _, err := Mine(model.GENESIS_PROOF, proof+1, nil)
	assert.Nil(t, err)
	assert.Equal(t, proof, found)
}

func TestValidateMinedChain(t *testing.T) {
	chain := createTestChain(t, 4)
	assert.Nil(t, ValidateChain(chain))
	assert.True(t, IsValidChain(chain))
}

func TestValidateTrivialChains(t *testing.T) {
	assert.True(t, IsValidChain(nil))
	assert.True(t, IsValidChain([]model.Block{createGenesisBlock()}))
}

func TestValidateTamperedPreviousHash(t *testing.T) {
	chain := createTestChain(t, 3)
	chain[2].PreviousHash = "nonsense"
	assert.False(t, IsValidChain(chain))
	assert.Contains(t, ValidateChain(chain).Error(), "previous hash")
}

func TestValidateTamperedProof(t *testing.T) {
	chain := createTestChain(t, 3)
	chain[2].Proof++
	assert.False(t, IsValidChain(chain))
	assert.Contains(t, ValidateChain(chain).Error(), "proof")
}

func TestValidateTamperedContent(t *testing.T) {
	chain := createTestChain(t, 3)
	// Rewriting history in block 2 breaks the link from block 3.
	chain[1].Transactions[0].Amount = 1000
	assert.False(t, IsValidChain(chain))
}

func TestValidateUnminedBlock(t *testing.T) {
	genesis := createGenesisBlock()
	chain := []model.Block{genesis, {
		Index:        2,
		Timestamp:    genesis.Timestamp,
		Proof:        10,
		PreviousHash: HashBlock(&genesis),
	}}
	assert.False(t, IsValidChain(chain))
}
