package slotcache

// Hardcoded implementation limits.
//
// They keep snapshot header fields inside uint32 and bound the allocation a
// corrupt header can request. Violations return ErrInvalidInput on New and
// ErrCorrupt on decode.
const (
	// MaxCapacity is the largest slot capacity accepted by New.
	MaxCapacity = 1 << 24

	// Maximum key length (bytes) accepted by Insert and the decoder.
	maxKeyBytes = 4096

	// Maximum encoded value length (bytes) accepted by the decoder.
	maxValueBytes = 16 << 20

	// Maximum decompressed snapshot body (bytes).
	maxBodyBytes = 1 << 30
)
