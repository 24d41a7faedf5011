package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fosdem/framexform/lib/metrics"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestStats() (*Stats, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := New()
	s.now = clock.now
	s.start = clock.t
	return s, clock
}

func TestTickTock(t *testing.T) {
	s, clock := newTestStats()

	s.Tick("rotate")
	clock.t = clock.t.Add(4 * time.Millisecond)
	assert.Equal(t, 4*time.Millisecond, s.Tock("rotate"))

	s.Tick("rotate")
	clock.t = clock.t.Add(2 * time.Millisecond)
	s.Tock("rotate")

	st := s.Stages["rotate"]
	assert.Equal(t, uint64(2), st.Count)
	assert.InDelta(t, 2.0, st.LastMs, 1e-9)
	assert.InDelta(t, 6.0, st.TotalMs, 1e-9)
	assert.InDelta(t, 3.0, st.AvgMs, 1e-9)

	assert.Positive(t, testutil.CollectAndCount(metrics.StageDuration))
}

func TestTockWithoutTick(t *testing.T) {
	s, _ := newTestStats()
	assert.Zero(t, s.Tock("jpeg"))
	assert.NotContains(t, s.Stages, "jpeg")
}

func TestSnapshot(t *testing.T) {
	s, clock := newTestStats()
	s.FrameDone(true)
	s.FrameDone(true)
	s.FrameDone(false)
	s.SetWsClients(3)
	s.Tick("jpeg")
	s.Tock("jpeg")
	clock.t = clock.t.Add(1500 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.FramesConverted)
	assert.Equal(t, uint64(1), snap.FramesFailed)
	assert.Equal(t, 3, snap.WsClients)
	assert.InDelta(t, 1.5, snap.Uptime, 1e-9)
	assert.Contains(t, snap.Stages, "jpeg")

	// the snapshot does not follow later updates
	s.FrameDone(true)
	assert.Equal(t, uint64(2), snap.FramesConverted)
}
