package full_node

import (
	"math"
	"testing"

	"github.com/fsoubelet/toychain/commands"
	"github.com/fsoubelet/toychain/config"
	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMine(t *testing.T) {
	c := config.DefaultAppConfig()
	c.MINING_REWARD = 2
	sev := createTestServer(t, c, &fakeFetcher{}, nil)
	index, err := sev.AddTransaction("a", "b", 5)
	require.Nil(t, err)
	assert.Equal(t, int64(2), index)

	block, cmd, err := sev.Mine(nil)
	require.Nil(t, err)
	assert.True(t, cmd.IsDefault())
	assert.Equal(t, int64(2), block.Index)
	assert.True(t, utils.ValidProof(model.GENESIS_PROOF, block.Proof))
	assert.Equal(t, []model.Transaction{
		{Sender: "a", Recipient: "b", Amount: 5},
		{Sender: model.MINT_SENDER, Recipient: sev.GetUUID(), Amount: 2},
	}, block.Transactions)

	// An empty pool still gets a block with the reward only.
	block, _, err = sev.Mine(nil)
	require.Nil(t, err)
	assert.Equal(t, int64(3), block.Index)
	assert.Len(t, block.Transactions, 1)
	assert.True(t, utils.IsValidChain(sev.GetChain()))
	assert.Empty(t, sev.GetPendingTransactions())
}

func TestMineInterrupted(t *testing.T) {
	sev := createTestServer(t, config.DefaultAppConfig(), &fakeFetcher{}, nil)
	ctl := make(chan commands.Command, 1)
	ctl <- commands.Command{Op: commands.STOP}

	_, cmd, err := sev.Mine(ctl)
	assert.ErrorIs(t, err, utils.ErrMiningInterrupted)
	assert.Equal(t, commands.Operation(commands.STOP), cmd.Op)
	assert.Equal(t, 1, sev.GetFullNode().GetHeight())
}

func TestMineRestarts(t *testing.T) {
	sev := createTestServer(t, config.DefaultAppConfig(), &fakeFetcher{}, nil)
	ctl := make(chan commands.Command, 1)
	ctl <- commands.Command{Op: commands.RESTART}

	block, cmd, err := sev.Mine(ctl)
	require.Nil(t, err)
	assert.True(t, cmd.IsDefault())
	assert.Equal(t, int64(2), block.Index)
}

func TestMineExhausted(t *testing.T) {
	c := config.DefaultAppConfig()
	// The smallest valid proof against the genesis proof is far above 10.
	c.MAX_PROOF_ITERATIONS = 10
	sev := createTestServer(t, c, &fakeFetcher{}, nil)

	_, _, err := sev.Mine(nil)
	assert.ErrorIs(t, err, utils.ErrProofSearchExhausted)
	assert.Equal(t, 1, sev.GetFullNode().GetHeight())
}

func TestRegisterPeers(t *testing.T) {
	sev := createTestServer(t, config.DefaultAppConfig(), &fakeFetcher{}, nil)

	res := sev.RegisterPeers([]string{"http://127.0.0.1:5001", "http//bad", "127.0.0.1:5001", "http://127.0.0.1:5002"})
	assert.Equal(t, []string{"127.0.0.1:5001", "127.0.0.1:5002"}, res.Added)
	assert.Equal(t, []string{"http//bad"}, res.Rejected)
	assert.Equal(t, []string{"127.0.0.1:5001", "127.0.0.1:5002"}, sev.GetAllPeers())

	res = sev.RegisterPeers([]string{})
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Rejected)
}

func TestAddTransactionRejectsInvalidAmount(t *testing.T) {
	sev := createTestServer(t, config.DefaultAppConfig(), &fakeFetcher{}, nil)
	for _, amount := range []float64{math.Inf(1), math.Inf(-1), math.NaN(), -5} {
		_, err := sev.AddTransaction("a", "b", amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Empty(t, sev.GetPendingTransactions())

	// The chain stays hashable and valid.
	_, _, err := sev.Mine(nil)
	require.Nil(t, err)
	assert.True(t, utils.IsValidChain(sev.GetChain()))
}
