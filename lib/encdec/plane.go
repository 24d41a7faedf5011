package encdec

import (
	"fmt"
	"strings"
)

type PixelFormat int

const (
	// YUV420888 is the generic planar 4:2:0 layout: three planes with
	// arbitrary row and pixel strides.
	YUV420888 PixelFormat = iota
	// NV21 is already packed: Y followed by interleaved VU pairs.
	NV21
)

func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "yuv_420_888", "yuv420888", "yuv420":
		return YUV420888, nil
	case "nv21":
		return NV21, nil
	default:
		return 0, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidArgument, s)
	}
}

func (p PixelFormat) BitsPerPixel() int {
	switch p {
	case YUV420888, NV21:
		return 12
	default:
		return 0
	}
}

func (p PixelFormat) String() string {
	switch p {
	case YUV420888:
		return "YUV_420_888"
	case NV21:
		return "NV21"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

// ImagePlane describes one channel of a frame. Data may be borrowed from
// the frame source and must not be retained after the call it was passed to.
type ImagePlane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// ImagePlaneSource is what a frame source hands to the converter.
type ImagePlaneSource interface {
	Planes() []ImagePlane
	Width() int
	Height() int
	CropRect() CropRect
	Format() PixelFormat
}

type CropRect struct {
	Left   int `yaml:"left" json:"left"`
	Top    int `yaml:"top" json:"top"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func FullFrame(w, h int) CropRect {
	return CropRect{Width: w, Height: h}
}

func (c CropRect) Right() int  { return c.Left + c.Width }
func (c CropRect) Bottom() int { return c.Top + c.Height }

func (c CropRect) IsZero() bool {
	return c == CropRect{}
}

// Validate checks that the rectangle lies within a w×h frame. Crops applied
// to subsampled planes need even offsets and sizes since they are halved
// before indexing chroma.
func (c CropRect) Validate(w, h int, subsampled bool) error {
	if c.Left < 0 || c.Top < 0 || c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %v has negative offset or empty size", ErrInvalidCropRect, c)
	}
	if c.Right() > w || c.Bottom() > h {
		return fmt.Errorf("%w: %v exceeds %dx%d frame", ErrInvalidCropRect, c, w, h)
	}
	if subsampled && (c.Left%2 != 0 || c.Top%2 != 0) {
		return fmt.Errorf("%w: %v has odd offset on subsampled planes", ErrInvalidCropRect, c)
	}
	if subsampled && (c.Width%2 != 0 || c.Height%2 != 0) {
		return fmt.Errorf("%w: %v has odd size on subsampled planes", ErrInvalidCropRect, c)
	}
	return nil
}

func (c CropRect) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", c.Left, c.Top, c.Width, c.Height)
}

// PlaneSet is a plain ImagePlaneSource.
type PlaneSet struct {
	PlaneList []ImagePlane
	W, H      int
	Crop      CropRect
	Fmt       PixelFormat
}

func (p *PlaneSet) Planes() []ImagePlane { return p.PlaneList }
func (p *PlaneSet) Width() int           { return p.W }
func (p *PlaneSet) Height() int          { return p.H }
func (p *PlaneSet) Format() PixelFormat  { return p.Fmt }

// CropRect defaults to the full frame when no crop was set.
func (p *PlaneSet) CropRect() CropRect {
	if p.Crop.IsZero() {
		return FullFrame(p.W, p.H)
	}
	return p.Crop
}

// NV21Planes describes a packed NV21 buffer as three planes the way camera
// HALs do: V and U views into the same interleaved region, U offset by one.
// The V plane runs to the end of the buffer so PackNV21 returns the full
// packed size.
func NV21Planes(buf []byte, w, h int) (*PlaneSet, error) {
	if len(buf) != NV21Size(w, h) {
		return nil, fmt.Errorf("%w: expected nv21 buffer of size %d but got %d", ErrBufferSizeMismatch, NV21Size(w, h), len(buf))
	}
	luma := w * h
	return &PlaneSet{
		PlaneList: []ImagePlane{
			{Data: buf[:luma], RowStride: w, PixelStride: 1},
			{Data: buf[luma+1:], RowStride: w, PixelStride: 2},
			{Data: buf[luma:], RowStride: w, PixelStride: 2},
		},
		W:   w,
		H:   h,
		Fmt: NV21,
	}, nil
}
