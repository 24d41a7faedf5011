package imgsource

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/encdec"
	"github.com/jhenstridge/go-inotify"
)

// ImgSource decodes a still image and offers it as an NV21 frame. With
// inotify enabled the image is reloaded whenever the file is rewritten.
type ImgSource struct {
	name    string
	path    string
	inotify bool
	log     *slog.Logger

	mu    sync.RWMutex
	frame *encdec.PlaneSet

	watcher *inotify.Watcher
}

func New(name string, cfg *config.ImgSourceCfg, log *slog.Logger) *ImgSource {
	return &ImgSource{
		name:    name,
		path:    string(cfg.Path),
		inotify: cfg.Inotify,
		log:     log.With("source", name),
	}
}

func (s *ImgSource) Name() string {
	return s.name
}

func (s *ImgSource) Start() bool {
	err := s.LoadImage(s.path)
	if err != nil {
		s.log.Error("could not load image", "path", s.path, "err", err)
		return false
	}

	if s.inotify {
		err = s.startWatching()
		if err != nil {
			s.log.Error("could not start inotify watcher", "err", err)
			return false
		}
	}
	return true
}

func (s *ImgSource) startWatching() error {
	watcher, err := inotify.NewWatcher()
	if err != nil {
		return err
	}
	_, err = watcher.Watch(s.path)
	if err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher
	go s.watch(watcher)
	return nil
}

func (s *ImgSource) watch(watcher *inotify.Watcher) {
	for ev := range watcher.Event {
		if ev.Mask&inotify.IN_CLOSE_WRITE != 0 {
			s.log.Debug("reloading image due to inotify event")
			time.Sleep(100 * time.Millisecond)

			err := s.LoadImage(s.path)
			if err != nil {
				s.log.Error("error loading image", "err", err)
				continue
			}
		}
	}
}

func (s *ImgSource) LoadImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	img, ftype, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", path, err)
	}
	s.log.Debug("decoded image", "type", ftype, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return s.SetImage(img)
}

// SetImage converts img to NV21 and makes it the current frame. Odd image
// sizes lose their last row or column.
func (s *ImgSource) SetImage(img image.Image) error {
	argb := encdec.ARGBFromImage(img, nil)
	buf, w, h, err := encdec.ARGBToYUV420SP(argb.Pix, argb.Width, argb.Height, nil)
	if err != nil {
		return err
	}
	frame, err := encdec.NV21Planes(buf, w, h)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	return nil
}

func (s *ImgSource) Frame() encdec.ImagePlaneSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return nil
	}
	return s.frame
}

func (s *ImgSource) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
