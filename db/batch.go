package db

import (
	"github.com/pkg/errors"
)

// WithBatch collects the writes made by fn and commits them together. Nothing
// is written when fn fails.
func WithBatch(provider DatabaseProvider, fn func(batch DatabaseBatch) error) error {
	batch := provider.Batch()

	if err := fn(batch); err != nil {
		batch.Reset()
		return errors.Wrap(err, "batch aborted")
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "batch commit failed")
	}
	return nil
}
