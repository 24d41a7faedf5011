package stats

import (
	"sync"
	"time"

	"github.com/fosdem/framexform/lib/metrics"
)

type StageStats struct {
	Count   uint64  `json:"count"`
	LastMs  float64 `json:"last_ms"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
}

// Stats collects pipeline counters and stage timings. It implements
// encdec.Tracer; ticks are keyed by stage name, so concurrent conversions
// of the same stage should each use their own Stats.
type Stats struct {
	Uptime          float64               `json:"uptime"`
	FramesConverted uint64                `json:"frames_converted"`
	FramesFailed    uint64                `json:"frames_failed"`
	WsClients       int                   `json:"ws_clients"`
	Stages          map[string]StageStats `json:"stages"`

	mu    sync.Mutex
	ticks map[string]time.Time
	start time.Time
	now   func() time.Time
}

func New() *Stats {
	s := &Stats{
		Stages: make(map[string]StageStats),
		ticks:  make(map[string]time.Time),
		now:    time.Now,
	}
	s.start = s.now()
	return s
}

func (s *Stats) Tick(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[stage] = s.now()
}

// Tock closes the stage opened by Tick and returns its duration. A Tock
// without a matching Tick returns zero and records nothing.
func (s *Stats) Tock(stage string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	started, ok := s.ticks[stage]
	if !ok {
		return 0
	}
	delete(s.ticks, stage)
	d := s.now().Sub(started)

	st := s.Stages[stage]
	st.Count++
	st.LastMs = float64(d.Microseconds()) / 1000
	st.TotalMs += st.LastMs
	st.AvgMs = st.TotalMs / float64(st.Count)
	s.Stages[stage] = st

	metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	return d
}

func (s *Stats) FrameDone(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.FramesConverted++
	} else {
		s.FramesFailed++
	}
}

func (s *Stats) SetWsClients(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WsClients = n
}

// Snapshot returns a copy that is safe to encode while conversions run.
func (s *Stats) Snapshot() *Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Stats{
		Uptime:          float64(s.now().Sub(s.start).Nanoseconds()) / 1e9,
		FramesConverted: s.FramesConverted,
		FramesFailed:    s.FramesFailed,
		WsClients:       s.WsClients,
		Stages:          make(map[string]StageStats, len(s.Stages)),
	}
	for k, v := range s.Stages {
		c.Stages[k] = v
	}
	return c
}
