package extract

import (
	"github.com/calvinalkan/buo/internal/dispatch"
	"github.com/calvinalkan/buo/pkg/fs"
)

// DefaultCapabilities returns the capability table used by the CLI: audio to
// [Audio], video to [Video] and dev to [Code]. maxDepth bounds the tree
// [Code] counts; 0 means unlimited.
func DefaultCapabilities(fsys fs.FS, ffprobeBinary string, maxDepth int) map[dispatch.Category]dispatch.Capability {
	return map[dispatch.Category]dispatch.Capability{
		dispatch.CategoryAudio: Audio{FS: fsys},
		dispatch.CategoryVideo: Video{Binary: ffprobeBinary},
		dispatch.CategoryDev:   Code{FS: fsys, MaxDepth: maxDepth},
	}
}
