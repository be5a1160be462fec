// Package dispatch maps file extensions to the capability that extracts
// their metadata.
package dispatch

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/calvinalkan/buo/internal/meta"
)

// Capability extracts metadata from one file.
//
// TryGetMeta returns (nil, nil) when the file was understood but carries no
// metadata.
type Capability interface {
	TryGetMeta(ctx context.Context, path string) (*meta.Entry, error)
}

// Stamper is implemented by capabilities whose result depends on more files
// than the one inspected. Stamp returns a time that changes whenever the
// result of TryGetMeta for path may change. Without a Stamper the file's
// modification time is used.
type Stamper interface {
	Stamp(ctx context.Context, path string) (time.Time, error)
}

// CapabilityFunc adapts a function to [Capability].
type CapabilityFunc func(ctx context.Context, path string) (*meta.Entry, error)

// TryGetMeta calls f.
func (f CapabilityFunc) TryGetMeta(ctx context.Context, path string) (*meta.Entry, error) {
	return f(ctx, path)
}

// Registry resolves paths to capabilities. It is immutable after
// [NewRegistry] and safe for concurrent use.
type Registry struct {
	byCategory map[Category]Capability
}

// NewRegistry copies caps into a new registry. Nil capabilities and
// [CategoryNone] are ignored.
func NewRegistry(caps map[Category]Capability) *Registry {
	r := &Registry{byCategory: make(map[Category]Capability, len(caps))}

	for category, capability := range caps {
		if capability == nil || category == CategoryNone {
			continue
		}

		r.byCategory[category] = capability
	}

	return r
}

// Dispatch returns the capability for path's extension. It returns false
// when path has no extension, the extension is unknown, or no capability is
// registered for its category.
func (r *Registry) Dispatch(path string) (Capability, bool) {
	ext, ok := ExtOf(path)
	if !ok {
		return nil, false
	}

	capability, ok := r.byCategory[ext.Category()]

	return capability, ok
}

// Supports reports whether [Registry.Dispatch] would succeed for path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.Dispatch(path)

	return ok
}

// Categories returns the registered categories in ascending order.
func (r *Registry) Categories() []Category {
	return slices.Sorted(maps.Keys(r.byCategory))
}

// Extensions returns the names of all extensions that dispatch to a
// registered capability.
func (r *Registry) Extensions() []string {
	var out []string

	for _, ext := range Extensions() {
		if _, ok := r.byCategory[ext.Category()]; ok {
			out = append(out, ext.String())
		}
	}

	return out
}
