package block

import (
	"context"
	"math"
	"strings"

	lerrors "github.com/mezonai/powledger/errors"
)

// MaxDifficulty is the length of a hex sha256 digest.
const MaxDifficulty = 64

// ctxCheckInterval bounds how many nonces are tried between context checks.
const ctxCheckInterval = 1 << 12

// Target returns the hash prefix required at difficulty.
func Target(difficulty uint32) string {
	return strings.Repeat("0", int(difficulty))
}

// MeetsDifficulty reports whether hash starts with difficulty '0' characters.
func MeetsDifficulty(hash string, difficulty uint32) bool {
	if difficulty > MaxDifficulty {
		return false
	}
	return strings.HasPrefix(hash, Target(difficulty))
}

// HasValidProof reports whether the stored hash is both current and sufficient.
func (b *Block) HasValidProof(difficulty uint32) bool {
	return b.Hash == b.CalculateHash() && MeetsDifficulty(b.Hash, difficulty)
}

// mine searches nonces from zero until the block hash meets difficulty.
func (b *Block) mine(ctx context.Context, difficulty uint32) error {
	return b.mineFrom(ctx, difficulty, 0)
}

func (b *Block) mineFrom(ctx context.Context, difficulty uint32, start uint64) error {
	if difficulty > MaxDifficulty {
		return lerrors.NewMiningError("difficulty %d exceeds hash length %d", difficulty, MaxDifficulty)
	}

	target := Target(difficulty)
	prefix := b.headerPrefix()
	ids := b.txIDs()
	done := ctx.Done()

	for nonce := start; ; nonce++ {
		if done != nil && (nonce-start)%ctxCheckInterval == 0 {
			select {
			case <-done:
				return lerrors.Wrap(lerrors.KindMining, ctx.Err(), lerrors.ErrMsgMiningAborted)
			default:
			}
		}

		hash := b.hashWithNonce(prefix, ids, nonce)
		if strings.HasPrefix(hash, target) {
			b.Nonce = nonce
			b.Hash = hash
			return nil
		}

		if nonce == math.MaxUint64 {
			return lerrors.NewMiningError(lerrors.ErrMsgNonceOverflow)
		}
	}
}
