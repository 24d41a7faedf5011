package pipeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/encdec"
	"github.com/fosdem/framexform/lib/log"
	"github.com/fosdem/framexform/lib/xform"
)

const frameW, frameH = 8, 4

func rampFrame() []byte {
	data := make([]byte, encdec.NV21Size(frameW, frameH))
	for i := range data {
		data[i] = byte(i * 3)
	}
	return data
}

func quality(q int) *int {
	return &q
}

type fixture struct {
	dir  string
	raw  []byte
	cfg  *config.Config
	pipe *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	raw := rampFrame()
	rawPath := filepath.Join(dir, "cam.nv21")
	require.NoError(t, os.WriteFile(rawPath, raw, 0o644))

	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	imgPath := filepath.Join(dir, "still.png")
	require.NoError(t, os.WriteFile(imgPath, pngBuf.Bytes(), 0o644))

	cfg := &config.Config{
		Sources: map[string]*config.SourceCfg{
			"cam": {
				SourceCfgStub: config.SourceCfgStub{Type: "raw"},
				Cfg: &config.RawSourceCfg{
					FrameCfg: encdec.FrameCfg{Width: frameW, Height: frameH},
					Path:     config.CfgPath(rawPath),
					Format:   "nv21",
				},
			},
			"cam-cropped": {
				SourceCfgStub: config.SourceCfgStub{Type: "raw"},
				Cfg: &config.RawSourceCfg{
					FrameCfg: encdec.FrameCfg{Width: frameW, Height: frameH},
					Path:     config.CfgPath(rawPath),
					Format:   "nv21",
					Crop:     &encdec.CropRect{Left: 2, Width: 4, Height: 4},
				},
			},
			"still": {
				SourceCfgStub: config.SourceCfgStub{Type: "image"},
				Cfg:           &config.ImgSourceCfg{Path: config.CfgPath(imgPath)},
			},
		},
		Jobs: map[string]*config.JobCfg{
			"rotated": {
				Source:   "cam",
				Rotation: 90,
				Output:   config.OutputNV21,
				Path:     config.CfgPath(filepath.Join(dir, "rotated.nv21")),
			},
			"preview": {Source: "cam", Output: config.OutputJPEG},
			"argb":    {Source: "cam", Rotation: 180, Output: config.OutputARGB},
			"still":   {Source: "still", Output: config.OutputPNG},
			"cropped": {Source: "cam-cropped", Output: config.OutputNV21},
			"detector": {
				Source:    "cam",
				Rotation:  -90,
				Output:    config.OutputNV21,
				Transform: &config.TransformCfg{Width: 300, Height: 300},
			},
			"broken": {Source: "cam", Output: config.OutputJPEG, Quality: quality(101)},
		},
	}

	p, err := New(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, p.Start())
	t.Cleanup(p.Close)

	return &fixture{dir: dir, raw: raw, cfg: cfg, pipe: p}
}

func TestRunRotatedNV21(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipe.Run("rotated")
	require.NoError(t, err)

	want, err := encdec.Rotate90(f.raw, frameW, frameH)
	require.NoError(t, err)
	assert.Equal(t, want, res.Data)
	assert.Equal(t, frameH, res.Width)
	assert.Equal(t, frameW, res.Height)
	assert.Equal(t, len(want), res.Bytes)
	assert.NotEmpty(t, res.ID)
	assert.Nil(t, res.Transform)
	assert.Equal(t, filepath.Join(f.dir, "rotated.nv21"), res.Path)

	written, err := os.ReadFile(filepath.Join(f.dir, "rotated.nv21"))
	require.NoError(t, err)
	assert.Equal(t, want, written)
}

func TestRunJPEG(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipe.Run("preview")
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, frameW, frameH), img.Bounds())
}

func TestRunARGB(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipe.Run("argb")
	require.NoError(t, err)
	assert.Len(t, res.Data, frameW*frameH*4)

	rotated, err := encdec.Rotate180(f.raw, frameW, frameH)
	require.NoError(t, err)
	rgb, err := encdec.NV21ToARGB(rotated, frameW, frameH, nil)
	require.NoError(t, err)
	assert.Equal(t, rgb.Pix[0], binary.BigEndian.Uint32(res.Data))
	assert.Equal(t, uint32(0xff), binary.BigEndian.Uint32(res.Data)>>24)
}

func TestRunPNGFromImage(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipe.Run("still")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())

	c := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA)
	assert.InDelta(t, 255, c.R, 2)
	assert.InDelta(t, 255, c.G, 2)
	assert.InDelta(t, 255, c.B, 2)
}

func TestRunCropped(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipe.Run("cropped")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Width)
	assert.Equal(t, 4, res.Height)

	planes, err := encdec.NV21Planes(f.raw, frameW, frameH)
	require.NoError(t, err)
	want, err := encdec.ExtractCroppedNV21(planes.Planes(), frameW, frameH, encdec.CropRect{Left: 2, Width: 4, Height: 4}, encdec.NV21, nil)
	require.NoError(t, err)
	assert.Equal(t, want, res.Data)
}

func TestRunWithTransform(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipe.Run("detector")
	require.NoError(t, err)
	require.NotNil(t, res.Transform)

	want, err := xform.Build(frameW, frameH, 300, 300, -90, false)
	require.NoError(t, err)
	assert.Equal(t, want.Coefficients(), *res.Transform)
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipe.Run("nope")
	assert.ErrorIs(t, err, ErrNoSuchJob)

	_, err = f.pipe.Run("broken")
	assert.ErrorIs(t, err, encdec.ErrInvalidArgument)

	snap := f.pipe.Stats.Snapshot()
	assert.Equal(t, uint64(1), snap.FramesFailed)
	assert.Zero(t, snap.FramesConverted)
}

func TestRunAll(t *testing.T) {
	f := newFixture(t)
	results, err := f.pipe.RunAll()
	assert.ErrorIs(t, err, encdec.ErrInvalidArgument)
	assert.Len(t, results, len(f.cfg.Jobs)-1)

	snap := f.pipe.Stats.Snapshot()
	assert.Equal(t, uint64(len(f.cfg.Jobs)-1), snap.FramesConverted)
	assert.Contains(t, snap.Stages, "rotate")
	assert.Contains(t, snap.Stages, "jpeg")
	assert.Contains(t, snap.Stages, "pack_nv21")
	assert.Contains(t, snap.Stages, "extract_nv21")
}

func TestJobDoneEvent(t *testing.T) {
	f := newFixture(t)
	events := make(chan EventDataJobDone, 2)
	f.pipe.AddEventListener(EventJobDone, func(p *Pipeline, data interface{}) {
		events <- data.(EventDataJobDone)
	})

	res, err := f.pipe.Run("preview")
	require.NoError(t, err)
	_, err = f.pipe.Run("broken")
	require.Error(t, err)

	got := map[string]EventDataJobDone{}
	for range 2 {
		select {
		case ev := <-events:
			got[ev.Job] = ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for job-done event")
		}
	}
	assert.Equal(t, res.ID, got["preview"].Result.ID)
	assert.Empty(t, got["preview"].Error)
	assert.NotEmpty(t, got["broken"].Error)
	assert.Nil(t, got["broken"].Result)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	buf, w, h, err := f.pipe.Preview("rotated")
	require.NoError(t, err)
	assert.Equal(t, frameH, w)
	assert.Equal(t, frameW, h)
	want, err := encdec.Rotate90(f.raw, frameW, frameH)
	require.NoError(t, err)
	assert.Equal(t, want, buf)

	_, _, _, err = f.pipe.Preview("nope")
	assert.True(t, errors.Is(err, ErrNoSuchJob))
}

func TestPreviewDoesNotShareJobBuffers(t *testing.T) {
	f := newFixture(t)
	first, _, _, err := f.pipe.Preview("cropped")
	require.NoError(t, err)
	_, err = f.pipe.Run("cropped")
	require.NoError(t, err)
	second, _, _, err := f.pipe.Preview("cropped")
	require.NoError(t, err)

	require.Equal(t, first, second)
	assert.NotSame(t, &first[0], &second[0])
	first[0]++
	assert.NotEqual(t, first[0], second[0])
}

func TestCloseWaitsForRunningJob(t *testing.T) {
	f := newFixture(t)

	f.pipe.runMu.Lock()
	done := make(chan struct{})
	go func() {
		f.pipe.Close()
		close(done)
	}()
	closed := func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	assert.Never(t, closed, 50*time.Millisecond, 5*time.Millisecond)
	f.pipe.runMu.Unlock()
	require.Eventually(t, closed, time.Second, 5*time.Millisecond)

	_, err := f.pipe.Run("rotated")
	assert.ErrorIs(t, err, ErrClosed)
	_, _, _, err = f.pipe.Preview("rotated")
	assert.ErrorIs(t, err, ErrClosed)

	// closing twice is harmless
	f.pipe.Close()
}

func TestNewRejectsUnknownSource(t *testing.T) {
	cfg := &config.Config{
		Sources: map[string]*config.SourceCfg{},
		Jobs:    map[string]*config.JobCfg{"a": {Source: "missing"}},
	}
	_, err := New(cfg, log.Discard())
	assert.Error(t, err)
}

func TestStartReportsFailedSources(t *testing.T) {
	cfg := &config.Config{
		Sources: map[string]*config.SourceCfg{
			"gone": {
				SourceCfgStub: config.SourceCfgStub{Type: "image"},
				Cfg:           &config.ImgSourceCfg{Path: config.CfgPath(filepath.Join(t.TempDir(), "gone.png"))},
			},
		},
		Jobs: map[string]*config.JobCfg{"a": {Source: "gone", Output: config.OutputJPEG}},
	}
	p, err := New(cfg, log.Discard())
	require.NoError(t, err)
	err = p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone")

	_, err = p.Run("a")
	assert.Error(t, err)
}
