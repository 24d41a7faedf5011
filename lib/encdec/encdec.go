package encdec

import (
	"fmt"
	"image"
	"image/draw"
)

type FrameType int

const (
	NV21Frames FrameType = iota
	ARGBFrames
	JPEGFrames
)

// Frame is a packed buffer plus the layout of the planes inside it.
// For NV21 frames plane 0 is Y and plane 1 holds the interleaved VU pairs.
type Frame struct {
	Data         []byte
	PlaneOffsets [3][2]int
	NumPlanes    int
	PlaneWidths  [3]int
	PlaneHeights [3]int
	Width        int
	Height       int
	LastOffset   int
	Type         FrameType
}

func (i *Frame) MakePlane(n int, w int, h int) []uint8 {
	newOffset := i.LastOffset + n
	i.PlaneOffsets[i.NumPlanes][0] = i.LastOffset
	i.PlaneOffsets[i.NumPlanes][1] = newOffset
	i.PlaneWidths[i.NumPlanes] = w
	i.PlaneHeights[i.NumPlanes] = h
	i.NumPlanes++

	plane := i.Data[i.LastOffset:newOffset]

	i.LastOffset = newOffset
	return plane
}

func (i *Frame) Plane(idx int) ([]byte, int, int) {
	start := i.PlaneOffsets[idx][0]
	upto := i.PlaneOffsets[idx][1]

	ptr := i.Data[start:upto]
	w := i.PlaneWidths[idx]
	h := i.PlaneHeights[idx]
	return ptr, w, h
}

// NewNV21Frame wraps a packed NV21 buffer without copying it.
func NewNV21Frame(buf []byte, w, h int) (*Frame, error) {
	if w < 2 || h < 2 || w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("%w: nv21 frame must have even dimensions, got %dx%d", ErrInvalidArgument, w, h)
	}
	if len(buf) != NV21Size(w, h) {
		return nil, fmt.Errorf("%w: expected nv21 buffer of size %d but got %d", ErrBufferSizeMismatch, NV21Size(w, h), len(buf))
	}
	f := &Frame{Data: buf, Width: w, Height: h, Type: NV21Frames}
	f.MakePlane(w*h, w, h)
	f.MakePlane(w*h/2, w/2, h/2)
	return f, nil
}

// NV21Size is the length of a packed 4:2:0 buffer of the given size.
func NV21Size(w, h int) int {
	return w * h * 3 / 2
}

// YCbCr exposes an NV21 frame as a 4:2:0 image. The luma plane is shared,
// the chroma planes are de-interleaved into fresh slices.
func (i *Frame) YCbCr() (*image.YCbCr, error) {
	if i.Type != NV21Frames {
		return nil, fmt.Errorf("%w: cannot build YCbCr from %s frame", ErrInvalidArgument, i.Type)
	}
	luma, w, h := i.Plane(0)
	vu, cw, ch := i.Plane(1)

	cb := make([]byte, cw*ch)
	cr := make([]byte, cw*ch)
	for n := range cb {
		cr[n] = vu[n*2]
		cb[n] = vu[n*2+1]
	}

	return &image.YCbCr{
		Y:              luma,
		Cb:             cb,
		Cr:             cr,
		YStride:        w,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}, nil
}

// ARGBFromImage flattens any image into packed 0xAARRGGBB samples.
func ARGBFromImage(img image.Image, scratch []uint32) *RGBFrame {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)

	pix := scratchUint32(scratch, w*h)
	for n := range pix {
		p := nrgba.Pix[n*4 : n*4+4]
		pix[n] = uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	}
	return &RGBFrame{Pix: pix, Width: w, Height: h}
}

func (f FrameType) String() string {
	switch f {
	case NV21Frames:
		return "NV21"
	case ARGBFrames:
		return "ARGB"
	case JPEGFrames:
		return "JPEG"
	default:
		panic("unknown frame type")
	}
}
