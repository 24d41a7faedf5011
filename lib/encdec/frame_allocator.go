package encdec

import (
	"fmt"
)

type FrameCfg struct {
	Width  int
	Height int
}

type FrameInfo struct {
	FrameCfg
	FrameType FrameType
}

// FrameAllocator hands out output frames. Implementations may return a
// frame whose buffer was used for an earlier conversion.
type FrameAllocator interface {
	NewFrame(info *FrameInfo) *Frame
}

type DumbFrameAllocator struct{}

func (d *DumbFrameAllocator) NewFrame(info *FrameInfo) *Frame {
	n, w, h := calcFrameSize(info)
	return &Frame{
		Data:   make([]byte, n),
		Width:  w,
		Height: h,
		Type:   info.FrameType,
	}
}

// ReusingFrameAllocator keeps the last buffer it handed out and returns it
// again when the next frame fits. It is meant to be owned by a single
// caller and is not safe for concurrent use.
type ReusingFrameAllocator struct {
	last []byte
}

func (r *ReusingFrameAllocator) NewFrame(info *FrameInfo) *Frame {
	n, w, h := calcFrameSize(info)
	r.last = scratchBytes(r.last, n)
	return &Frame{
		Data:   r.last,
		Width:  w,
		Height: h,
		Type:   info.FrameType,
	}
}

func (f *FrameCfg) Validate() error {
	if f.Width < 2 {
		return fmt.Errorf("width must be at least 2")
	}
	if f.Height < 2 {
		return fmt.Errorf("height must be at least 2")
	}
	if f.Width%2 != 0 || f.Height%2 != 0 {
		return fmt.Errorf("width and height must be even for 4:2:0 frames, got %dx%d", f.Width, f.Height)
	}
	return nil
}

func calcFrameSize(info *FrameInfo) (int, int, int) {
	w := info.Width
	h := info.Height

	switch info.FrameType {
	case NV21Frames:
		return NV21Size(w, h), w, h
	case ARGBFrames:
		return w * h * 4, w, h
	case JPEGFrames:
		return 0, w, h
	default:
		panic("unknown frame type")
	}
}
