package block

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mezonai/powledger/transaction"
)

// EmptyMerkleRoot is the root of a block without transactions.
const EmptyMerkleRoot = "0"

// CalculateMerkleRoot folds the transactions' content hashes pairwise until one
// hash remains. An unpaired hash at the end of a level is combined with itself,
// so a single transaction yields sha256(h+h) rather than h.
func CalculateMerkleRoot(txs []*transaction.Transaction) string {
	if len(txs) == 0 {
		return EmptyMerkleRoot
	}

	hashes := make([]string, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.ContentHash()
	}

	for {
		next := make([]string, 0, (len(hashes)+1)/2)
		for i := 0; i < len(hashes); i += 2 {
			left := hashes[i]
			right := left
			if i+1 < len(hashes) {
				right = hashes[i+1]
			}
			next = append(next, combine(left, right))
		}
		hashes = next
		if len(hashes) == 1 {
			return hashes[0]
		}
	}
}

func combine(left, right string) string {
	sum := sha256.Sum256([]byte(left + right))
	return hex.EncodeToString(sum[:])
}
