package visualize

import (
	"fmt"
	"strconv"

	"github.com/fsoubelet/toychain/model"
	"github.com/fsoubelet/toychain/utils"
	"github.com/pterm/pterm"
)

var chainHeader = []string{"Index", "Hash", "Previous", "Proof", "Txs", "Transfers"}

// ChainTableData lays out the last d+1 blocks, tail last, one row per block.
func ChainTableData(chain []model.Block, d int) pterm.TableData {
	data := pterm.TableData{chainHeader}
	blocks := lastBlocks(chain, d)
	for i := 0; i < len(blocks); i++ {
		b := &blocks[i]
		transfers := ""
		for j, tx := range b.Transactions {
			if j > 0 {
				transfers += ", "
			}
			transfers += fmt.Sprintf("%s->%s:%v", shortenString(tx.Sender), shortenString(tx.Recipient), tx.Amount)
		}
		data = append(data, []string{
			strconv.FormatInt(b.Index, 10),
			shortenString(utils.HashBlock(b)),
			shortenString(b.PreviousHash),
			strconv.FormatInt(b.Proof, 10),
			strconv.Itoa(len(b.Transactions)),
			transfers,
		})
	}
	return data
}

func RenderChainTable(chain []model.Block, d int) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithData(ChainTableData(chain, d)).Srender()
}

// RenderPeers renders peers as a bullet list.
func RenderPeers(peers []string) (string, error) {
	if len(peers) == 0 {
		return "no peers\n", nil
	}
	items := make([]pterm.BulletListItem, 0, len(peers))
	for _, p := range peers {
		items = append(items, pterm.BulletListItem{Level: 0, Text: p})
	}
	return pterm.DefaultBulletList.WithItems(items).Srender()
}
