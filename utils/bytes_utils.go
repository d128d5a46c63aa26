package utils

import (
	"encoding/hex"
	"strconv"
	"strings"
)

func BytesToHex(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

// Decimal concatenation of two proofs, the text the puzzle hashes.
func ProofsToBytes(lastProof int64, proof int64) []byte {
	b := make([]byte, 0, 40)
	b = strconv.AppendInt(b, lastProof, 10)
	b = strconv.AppendInt(b, proof, 10)
	return b
}

func HexHasPrefix(digest string, prefix string) bool {
	return strings.HasPrefix(digest, prefix)
}
