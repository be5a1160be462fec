// Package slotcache provides a fixed-capacity, key-addressed slot cache with
// binary snapshot persistence.
//
// A [Cache] owns a backing array of N slots and a lookup map from key to slot
// index. Every key in the lookup map addresses an occupied slot; removing a
// key and clearing its slot happen in the same step.
//
// # Basic Usage
//
//	cache, err := slotcache.New[*meta.Entry](1200)
//	if err != nil {
//	    return err
//	}
//
//	err = cache.Insert("/music/a.flac", entry)
//	if errors.Is(err, slotcache.ErrFull) {
//	    // evict with Retain or Remove, then retry
//	}
//
//	entry, ok := cache.Get("/music/a.flac")
//
// # Persistence
//
// [Commit] writes a snapshot atomically (temp file, fsync, rename). [Load]
// reads it back; a missing file is only turned into a fresh cache when
// [LoadOptions.CreateIfAbsent] is set:
//
//	cache, err := slotcache.Load(fsys, path, 1200, codec, slotcache.LoadOptions{
//	    CreateIfAbsent: true,
//	})
//	if errors.Is(err, slotcache.ErrCorrupt) || errors.Is(err, slotcache.ErrIncompatible) {
//	    // delete the snapshot and start over
//	}
//
// # Concurrency
//
// A Cache is not safe for concurrent use. Callers that share one across
// goroutines need a single-writer discipline: one mutation at a time with
// reads excluded while it runs.
package slotcache
