package rawsource

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/encdec"
	"golang.org/x/sys/unix"
)

// RawSource maps a raw frame dump read-only and describes it as planes.
// The plane buffers borrow the mapping; they stay valid until Close.
type RawSource struct {
	name   string
	path   string
	cfg    *config.RawSourceCfg
	format encdec.PixelFormat
	log    *slog.Logger

	mu    sync.RWMutex
	data  []byte
	frame *encdec.PlaneSet
}

func New(name string, cfg *config.RawSourceCfg, log *slog.Logger) *RawSource {
	s := &RawSource{
		name: name,
		path: string(cfg.Path),
		cfg:  cfg,
		log:  log.With("source", name),
	}
	return s
}

func (s *RawSource) Name() string {
	return s.name
}

func (s *RawSource) Start() bool {
	format, err := encdec.ParsePixelFormat(s.cfg.Format)
	if err != nil {
		s.log.Error("invalid pixel format", "err", err)
		return false
	}
	s.format = format

	err = s.load()
	if err != nil {
		s.log.Error("could not load raw frame", "path", s.path, "err", err)
		return false
	}
	s.log.Debug("mapped raw frame", "path", s.path, "bytes", len(s.data), "format", s.format)
	return true
}

func (s *RawSource) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			s.log.Warn("could not close raw frame file", "err", err)
		}
	}(f)

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", s.path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("could not mmap %s: %w", s.path, err)
	}

	frame, err := describePlanes(data, s.cfg, s.format)
	if err != nil {
		_ = unix.Munmap(data)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.frame = frame
	return nil
}

// describePlanes builds the plane views into data. Each plane ends right
// after its last sample, the way camera buffers report their remaining
// bytes.
func describePlanes(data []byte, cfg *config.RawSourceCfg, format encdec.PixelFormat) (*encdec.PlaneSet, error) {
	w, h := cfg.Width, cfg.Height

	var frame *encdec.PlaneSet
	switch format {
	case encdec.NV21:
		n := encdec.NV21Size(w, h)
		if len(data) < n {
			return nil, fmt.Errorf("%w: nv21 file holds %d bytes, need %d", encdec.ErrBufferSizeMismatch, len(data), n)
		}
		var err error
		frame, err = encdec.NV21Planes(data[:n], w, h)
		if err != nil {
			return nil, err
		}
	case encdec.YUV420888:
		planes := make([]encdec.ImagePlane, len(cfg.Planes))
		for i, p := range cfg.Planes {
			cols, rows := w, h
			if i > 0 {
				cols, rows = w/2, h/2
			}
			extent := p.RowStride*(rows-1) + (cols-1)*p.PixelStride + 1
			if p.Offset+extent > len(data) {
				return nil, fmt.Errorf("%w: plane %d needs bytes up to %d but file holds %d",
					encdec.ErrBufferSizeMismatch, i, p.Offset+extent, len(data))
			}
			planes[i] = encdec.ImagePlane{
				Data:        data[p.Offset : p.Offset+extent],
				RowStride:   p.RowStride,
				PixelStride: p.PixelStride,
			}
		}
		frame = &encdec.PlaneSet{PlaneList: planes, W: w, H: h, Fmt: format}
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", encdec.ErrInvalidArgument, format)
	}

	if cfg.Crop != nil {
		frame.Crop = *cfg.Crop
	}
	return frame, nil
}

func (s *RawSource) Frame() encdec.ImagePlaneSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return nil
	}
	return s.frame
}

// Close unmaps the frame. Planes handed out by Frame must no longer be in
// use; the pipeline guarantees this by closing sources under its run lock.
func (s *RawSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	s.frame = nil
	return err
}
