package visualize

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os/exec"

	"github.com/bradleyjkemp/memviz"
	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
)

// We re-define the visualize model here so that the graph only carries what is
// worth looking at, with long hashes shortened.
type transaction struct {
	sender    string
	recipient string
	amount    float64
}

type block struct {
	index    int64
	hash     string
	prevHash string
	proof    int64
	txs      []transaction
	next     *block
}

// The string of node ids and hashes is just too long to render, instead we take only first 3 and last 3
// characters and replace the middle part with '...'. E.g. "abcdefghi" will be rendered as "abc...ghi"
func shortenString(s string) string {
	if len(s) < 9 {
		return s
	}
	return fmt.Sprintf("%s...%s", s[0:3], s[len(s)-3:])
}

// Return the last d+1 blocks of chain, d is clamped to the chain.
func lastBlocks(chain []model.Block, d int) []model.Block {
	if d < 0 {
		d = 0
	}
	start := len(chain) - 1 - d
	if start < 0 {
		start = 0
	}
	return chain[start:]
}

func blockToblock(b *model.Block) *block {
	n := &block{
		index:    b.Index,
		hash:     shortenString(utils.HashBlock(b)),
		prevHash: shortenString(b.PreviousHash),
		proof:    b.Proof,
	}
	for i := 0; i < len(b.Transactions); i++ {
		tx := &b.Transactions[i]
		n.txs = append(n.txs, transaction{
			sender:    shortenString(tx.Sender),
			recipient: shortenString(tx.Recipient),
			amount:    tx.Amount,
		})
	}
	return n
}

// Link the last d+1 blocks from the oldest to the tail, return the oldest.
func constructData(chain []model.Block, d int) *block {
	blocks := lastBlocks(chain, d)
	var root, prev *block
	for i := 0; i < len(blocks); i++ {
		n := blockToblock(&blocks[i])
		if prev == nil {
			root = n
		} else {
			prev.next = n
		}
		prev = n
	}
	return root
}

// Graph writes the dot graph of the last d+1 blocks to buf.
func Graph(buf *bytes.Buffer, chain []model.Block, d int) {
	root := constructData(chain, d)
	memviz.Map(buf, root)
}

// Entry to this package, where:
// chain: the whole chain as held by the full node.
// d: depth to render, counted back from the tail.
// id: unique id of the full node.
// The png lands in /tmp and is opened with the desktop viewer, which needs dot.
func Render(chain []model.Block, d int, id string) error {
	if len(chain) == 0 {
		return fmt.Errorf("nothing to render")
	}
	buf := &bytes.Buffer{}
	Graph(buf, chain, d)

	// Write the parsed data to disk
	fileName := "/tmp/chaindata-" + id
	outputName := "/tmp/rendered-chain-" + id + ".png"
	if err := ioutil.WriteFile(fileName, buf.Bytes(), 0644); err != nil {
		return err
	}

	cmd := exec.Command("dot", "-Tpng", fileName, "-o", outputName)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run dot: %w", err)
	}

	opCmd := exec.Command("open", outputName)
	opCmd.Run()
	return nil
}
