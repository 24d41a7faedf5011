package encdec

import (
	"sync"
	"time"
)

// nv21Ramp returns a w×h NV21 buffer whose bytes count up from zero.
func nv21Ramp(w, h int) []byte {
	buf := make([]byte, NV21Size(w, h))
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func solidNV21(w, h int, y, u, v byte) []byte {
	buf := make([]byte, NV21Size(w, h))
	luma := w * h
	for i := 0; i < luma; i++ {
		buf[i] = y
	}
	for i := luma; i < len(buf); i += 2 {
		buf[i] = v
		buf[i+1] = u
	}
	return buf
}

type recordingTracer struct {
	mu     sync.Mutex
	stages []string
}

func (r *recordingTracer) Tick(string) {}

func (r *recordingTracer) Tock(stage string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	return time.Millisecond
}
