package match

const (
	// EngineVersion is the current version of the matching engine
	EngineVersion = "v1.0.0"

	// DefaultMaxInstruments bounds the instrument slot table.
	DefaultMaxInstruments = 1024

	// DefaultMaxTickerLength is the longest ticker accepted by Submit, in bytes.
	DefaultMaxTickerLength = 16

	// defaultQueueCapacity is the initial slab size of each side queue.
	defaultQueueCapacity = 64
)
