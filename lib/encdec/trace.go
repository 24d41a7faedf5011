package encdec

import "time"

// Tracer receives tick/tock pairs around the expensive stages of a
// conversion. Implementations must be safe for concurrent use when a
// Converter is shared between goroutines.
type Tracer interface {
	Tick(stage string)
	Tock(stage string) time.Duration
}

type nopTracer struct{}

func (nopTracer) Tick(string)               {}
func (nopTracer) Tock(string) time.Duration { return 0 }
