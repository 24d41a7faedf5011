package pipeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"slices"
	"sync"

	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/encdec"
	"github.com/fosdem/framexform/lib/metrics"
	"github.com/fosdem/framexform/lib/nullsink"
	"github.com/fosdem/framexform/lib/sink"
	"github.com/fosdem/framexform/lib/sink/filesink"
	"github.com/fosdem/framexform/lib/source"
	"github.com/fosdem/framexform/lib/source/imgsource"
	"github.com/fosdem/framexform/lib/source/rawsource"
	"github.com/fosdem/framexform/lib/stats"
	"github.com/fosdem/framexform/lib/xform"
	"github.com/google/uuid"
)

var (
	ErrNoSuchJob = errors.New("no such job")
	ErrClosed    = errors.New("pipeline is closed")
)

// Pipeline owns the configured sources and runs jobs against them. Job runs
// are serialised: each job reuses its scratch buffers from the previous run
// and the stage tracer is shared. Close waits for the running job, since raw
// sources hand out views into memory that Close unmaps.
type Pipeline struct {
	Sources map[string]source.Source
	Jobs    map[string]*Job

	Stats *stats.Stats
	Codec encdec.Codec

	log  *slog.Logger
	conv *encdec.Converter

	runMu  sync.Mutex
	closed bool

	listenerMu sync.Mutex
	listener   map[string][]EventListener
}

type Job struct {
	Name string
	Cfg  *config.JobCfg

	Sink sink.Sink

	alloc   encdec.FrameAllocator
	pixels  []uint32
	metrics metrics.JobMetrics
}

type Result struct {
	ID        string            `json:"id"`
	Job       string            `json:"job"`
	Output    config.OutputType `json:"output"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Bytes     int               `json:"bytes"`
	Path      string            `json:"path,omitempty"`
	Transform *[6]float32       `json:"transform,omitempty"`
	Data      []byte            `json:"-"`
}

func New(cfg *config.Config, log *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{
		Sources:  buildSourceMap(cfg, log),
		Jobs:     make(map[string]*Job),
		Stats:    stats.New(),
		Codec:    encdec.JPEGCodec{},
		log:      log,
		listener: make(map[string][]EventListener),
	}
	p.conv = &encdec.Converter{
		Log:       log.With("module", "encdec"),
		Tracer:    p.Stats,
		OnWarning: metrics.Warning,
	}

	for name, jobCfg := range cfg.Jobs {
		if _, ok := p.Sources[jobCfg.Source]; !ok {
			return nil, fmt.Errorf("job %s: no such source: %s", name, jobCfg.Source)
		}
		job := &Job{
			Name:    name,
			Cfg:     jobCfg,
			Sink:    nullsink.New(),
			alloc:   &encdec.ReusingFrameAllocator{},
			metrics: metrics.NewJobMetrics(name),
		}
		if jobCfg.Path != "" {
			job.Sink = filesink.New(string(jobCfg.Path))
		}
		p.Jobs[name] = job
	}
	return p, nil
}

func buildSourceMap(cfg *config.Config, log *slog.Logger) map[string]source.Source {
	sm := make(map[string]source.Source)
	for name, srcCfg := range cfg.Sources {
		switch sc := srcCfg.Cfg.(type) {
		case *config.RawSourceCfg:
			sm[name] = rawsource.New(name, sc, log)
		case *config.ImgSourceCfg:
			sm[name] = imgsource.New(name, sc, log)
		default:
			panic(fmt.Sprintf("unhandled source type: %+v", srcCfg.Cfg))
		}
	}
	return sm
}

// Start starts every source and reports the ones that failed.
func (p *Pipeline) Start() error {
	var failed []string
	for name, src := range p.Sources {
		if !src.Start() {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		slices.Sort(failed)
		return fmt.Errorf("could not start sources: %v", failed)
	}
	return nil
}

func (p *Pipeline) Close() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	for name, src := range p.Sources {
		err := src.Close()
		if err != nil {
			p.log.Warn("could not close source", "source", name, "err", err)
		}
	}
}

func (p *Pipeline) JobNames() []string {
	names := make([]string, 0, len(p.Jobs))
	for name := range p.Jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RunAll runs every job once in name order and returns the first error.
func (p *Pipeline) RunAll() ([]*Result, error) {
	var results []*Result
	var firstErr error
	for _, name := range p.JobNames() {
		res, err := p.Run(name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

func (p *Pipeline) Run(name string) (*Result, error) {
	job, ok := p.Jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchJob, name)
	}

	p.runMu.Lock()
	res, err := p.run(job)
	p.runMu.Unlock()

	event := EventDataJobDone{Event: EventJobDone, Job: name, Result: res}
	if err != nil {
		job.metrics.FramesFailed.Inc()
		p.Stats.FrameDone(false)
		p.log.Error("job failed", "job", name, "err", err)
		event.Error = err.Error()
	} else {
		job.metrics.FramesConverted.Inc()
		job.metrics.BytesWritten.Add(float64(res.Bytes))
		p.Stats.FrameDone(true)
		p.log.Info("job done", "job", name, "output", res.Output, "width", res.Width, "height", res.Height, "bytes", res.Bytes)
	}
	p.invoke(EventJobDone, event)
	return res, err
}

func (p *Pipeline) run(job *Job) (*Result, error) {
	if p.closed {
		return nil, ErrClosed
	}
	cfg := job.Cfg
	src := p.Sources[cfg.Source].Frame()
	if src == nil {
		return nil, fmt.Errorf("source %s has no frame", cfg.Source)
	}

	buf, w, h, err := p.extract(job.alloc, src)
	if err != nil {
		return nil, err
	}
	srcW, srcH := w, h

	buf, w, h, err = p.conv.Rotate(buf, w, h, cfg.Rotation)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:     uuid.NewString(),
		Job:    job.Name,
		Output: cfg.Output,
		Width:  w,
		Height: h,
	}

	res.Data, err = p.encode(job, buf, w, h)
	if err != nil {
		return nil, err
	}
	res.Bytes = len(res.Data)

	if cfg.Transform != nil {
		t, err := xform.Build(srcW, srcH, cfg.Transform.Width, cfg.Transform.Height, cfg.Rotation, cfg.Transform.MaintainAspectRatio)
		if err != nil {
			return nil, err
		}
		c := t.Coefficients()
		res.Transform = &c
	}

	err = job.Sink.Write(res.Data)
	if err != nil {
		return nil, err
	}
	res.Path = job.Sink.Location()
	return res, nil
}

// Preview extracts and rotates the job's current source frame without
// encoding or writing it. The returned buffer is freshly allocated and
// never shared with the job's own runs.
func (p *Pipeline) Preview(name string) ([]byte, int, int, error) {
	job, ok := p.Jobs[name]
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrNoSuchJob, name)
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.closed {
		return nil, 0, 0, ErrClosed
	}

	src := p.Sources[job.Cfg.Source].Frame()
	if src == nil {
		return nil, 0, 0, fmt.Errorf("source %s has no frame", job.Cfg.Source)
	}
	buf, w, h, err := p.extract(&encdec.DumbFrameAllocator{}, src)
	if err != nil {
		return nil, 0, 0, err
	}
	return p.conv.Rotate(buf, w, h, job.Cfg.Rotation)
}

// extract packs the source frame into NV21. Packed sources without a crop
// take the plain copy path.
func (p *Pipeline) extract(alloc encdec.FrameAllocator, src encdec.ImagePlaneSource) ([]byte, int, int, error) {
	crop := src.CropRect()
	frame := alloc.NewFrame(&encdec.FrameInfo{
		FrameCfg:  encdec.FrameCfg{Width: crop.Width, Height: crop.Height},
		FrameType: encdec.NV21Frames,
	})

	if src.Format() == encdec.NV21 && crop == encdec.FullFrame(src.Width(), src.Height()) {
		buf, err := p.conv.PackNV21(src.Planes(), frame.Data)
		if err != nil {
			return nil, 0, 0, err
		}
		if len(buf) != encdec.NV21Size(crop.Width, crop.Height) {
			return nil, 0, 0, fmt.Errorf("%w: packed %d bytes for a %dx%d frame",
				encdec.ErrBufferSizeMismatch, len(buf), crop.Width, crop.Height)
		}
		return buf, crop.Width, crop.Height, nil
	}

	buf, err := p.conv.ExtractCroppedNV21(src, frame.Data)
	if err != nil {
		return nil, 0, 0, err
	}
	return buf, crop.Width, crop.Height, nil
}

func (p *Pipeline) encode(job *Job, buf []byte, w, h int) ([]byte, error) {
	cfg := job.Cfg
	switch cfg.Output {
	case config.OutputNV21:
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil
	case config.OutputJPEG:
		return p.conv.YUVToJPEG(p.Codec, buf, w, h, cfg.JPEGQuality())
	}

	rgb, err := p.toARGB(job, buf, w, h)
	if err != nil {
		return nil, err
	}

	switch cfg.Output {
	case config.OutputARGB:
		out := make([]byte, len(rgb.Pix)*4)
		for i, px := range rgb.Pix {
			binary.BigEndian.PutUint32(out[i*4:], px)
		}
		return out, nil
	case config.OutputPNG:
		var b bytes.Buffer
		err = png.Encode(&b, rgb.NRGBA())
		if err != nil {
			return nil, fmt.Errorf("could not png encode frame: %w", err)
		}
		return b.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown output %s", encdec.ErrInvalidArgument, cfg.Output)
	}
}

func (p *Pipeline) toARGB(job *Job, buf []byte, w, h int) (*encdec.RGBFrame, error) {
	planes, err := encdec.NV21Planes(buf, w, h)
	if err != nil {
		return nil, err
	}
	rgb, err := p.conv.ConvertYUVToRGB(planes, job.pixels)
	if err != nil {
		return nil, err
	}
	job.pixels = rgb.Pix
	return rgb, nil
}
