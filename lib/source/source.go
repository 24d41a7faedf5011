package source

import (
	"github.com/fosdem/framexform/lib/encdec"
)

// Source produces frames for the pipeline. Frame returns the latest frame
// or nil when the source has nothing to offer yet; the returned planes must
// not be retained past the conversion that reads them.
type Source interface {
	Name() string
	Start() bool
	Frame() encdec.ImagePlaneSource
	Close() error
}
