package utils

import (
	"errors"
	"fmt"

	"github.com/fsoubelet/toychain/commands"
	"github.com/fsoubelet/toychain/model"
)

// How a valid proof's digest must start. Difficulty is fixed.
const PROOF_PREFIX = "0000"

var (
	ErrProofSearchExhausted = errors.New("no valid proof within the iteration budget")
	ErrMiningInterrupted    = errors.New("mining interrupted")
)

// ValidProof reports whether hash(lastProof, proof) has PROOF_PREFIX.
func ValidProof(lastProof int64, proof int64) bool {
	digest := BytesToHex(SHA256(ProofsToBytes(lastProof, proof)))
	return HexHasPrefix(digest, PROOF_PREFIX)
}

// Mine returns the smallest non-negative proof that is valid against lastProof.
// maxIterations caps the search, 0 means no cap.
// ctl is a channel that interrupts the mining process at any time, it may be nil.
func Mine(lastProof int64, maxIterations int64, ctl chan commands.Command) (int64, commands.Command, error) {
	for proof := int64(0); maxIterations <= 0 || proof < maxIterations; proof++ {
		select {
		case c := <-ctl:
			return 0, c, ErrMiningInterrupted
		default:
		}
		if ValidProof(lastProof, proof) {
			return proof, commands.NewDefaultCommand(), nil
		}
	}
	return 0, commands.NewDefaultCommand(), ErrProofSearchExhausted
}

// ValidateChain walks every adjacent pair of blocks and returns why the first
// broken pair is invalid. Genesis is never checked against a predecessor.
func ValidateChain(chain []model.Block) error {
	for i := 1; i < len(chain); i++ {
		prev := &chain[i-1]
		block := &chain[i]
		if block.PreviousHash != HashBlock(prev) {
			return fmt.Errorf("block %d: previous hash %q does not match block %d", block.Index, block.PreviousHash, prev.Index)
		}
		if !ValidProof(prev.Proof, block.Proof) {
			return fmt.Errorf("block %d: proof %d is not valid against previous proof %d", block.Index, block.Proof, prev.Proof)
		}
	}
	return nil
}

func IsValidChain(chain []model.Block) bool {
	return ValidateChain(chain) == nil
}
