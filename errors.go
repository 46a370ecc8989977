package grove3d

import "github.com/pkg/errors"

// ErrInvalidArgument is returned for arguments that cannot be meaningfully
// clamped or defaulted, like zero-length direction vectors or negative blend
// weights. Missing collaborators (no bounding volume, no parent, no animation
// on a track) are never errors; those resolve to documented neutral defaults.
var ErrInvalidArgument = errors.New("invalid argument")
