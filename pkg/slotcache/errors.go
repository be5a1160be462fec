package slotcache

import "errors"

// Sentinel errors returned by slotcache operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, slotcache.ErrFull) {
//	    cache.Retain(stillValid)
//	}
var (
	// ErrDuplicateKey indicates an insert for a key that is already present.
	//
	// The stored entry is left unchanged.
	ErrDuplicateKey = errors.New("slotcache: duplicate key")

	// ErrFull indicates that no free slot exists.
	//
	// Recovery: free slots with [Cache.Remove] or [Cache.Retain].
	ErrFull = errors.New("slotcache: full")

	// ErrInvalidInput indicates invalid arguments, such as a capacity below 1.
	//
	// This is a programming error.
	ErrInvalidInput = errors.New("slotcache: invalid input")

	// ErrCorrupt indicates a snapshot that cannot be decoded.
	//
	// Recovery: delete the snapshot and rebuild the cache.
	ErrCorrupt = errors.New("slotcache: corrupt")

	// ErrIncompatible indicates a snapshot written with a different format
	// version or capacity than requested.
	//
	// Recovery: delete the snapshot and rebuild the cache.
	ErrIncompatible = errors.New("slotcache: incompatible")
)
