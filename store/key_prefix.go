package store

// Declare database key prefix for objects
const (
	PrefixBlock     = "blk:"
	PrefixBlockHash = "blk_hash:"
	PrefixBlockMeta = "blk_meta:"
	PrefixTx        = "tx:"

	BlockMetaKeyCount = "count"
)
