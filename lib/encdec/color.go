package encdec

import (
	"fmt"
	"image"
)

// 2^18 - 1, the ceiling for channel values before they are packed to 8 bits.
const kMaxChannelValue = 262143

// RGBFrame holds one 0xAARRGGBB sample per pixel, row-major.
type RGBFrame struct {
	Pix    []uint32
	Width  int
	Height int
}

// RGBSink receives converted pixels, e.g. a bitmap owned by the caller.
type RGBSink interface {
	SetPixels(pix []uint32, w, h int) error
}

func (f *RGBFrame) WriteTo(sink RGBSink) error {
	return sink.SetPixels(f.Pix, f.Width, f.Height)
}

// NRGBA copies the frame into a standard library image.
func (f *RGBFrame) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for n, p := range f.Pix {
		img.Pix[n*4+0] = uint8(p >> 16)
		img.Pix[n*4+1] = uint8(p >> 8)
		img.Pix[n*4+2] = uint8(p)
		img.Pix[n*4+3] = uint8(p >> 24)
	}
	return img
}

// SetPixels makes an NRGBA-backed image usable as an RGBSink.
type ImageSink struct {
	Img *image.NRGBA
}

func (s *ImageSink) SetPixels(pix []uint32, w, h int) error {
	if len(pix) != w*h {
		return fmt.Errorf("%w: expected %d pixels but got %d", ErrBufferSizeMismatch, w*h, len(pix))
	}
	f := RGBFrame{Pix: pix, Width: w, Height: h}
	s.Img = f.NRGBA()
	return nil
}

func clamp8(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

// ARGBToYUV420SP converts packed ARGB pixels to NV21. Odd dimensions are
// snapped down to even first; the returned width and height are the ones
// the buffer was built for. Pixels are read with the original row stride.
func ARGBToYUV420SP(pixels []uint32, width, height int, scratch []byte) ([]byte, int, int, error) {
	if width <= 0 || height <= 0 {
		return nil, 0, 0, fmt.Errorf("%w: image size %dx%d", ErrInvalidArgument, width, height)
	}
	if len(pixels) < width*height {
		return nil, 0, 0, fmt.Errorf("%w: expected %d pixels but got %d", ErrBufferSizeMismatch, width*height, len(pixels))
	}
	stride := width
	width &^= 1
	height &^= 1
	if width == 0 || height == 0 {
		return nil, 0, 0, fmt.Errorf("%w: image too small for 4:2:0", ErrInvalidArgument)
	}

	frameSize := width * height
	yuv := scratchBytes(scratch, frameSize*3/2)
	yIndex := 0
	uvIndex := frameSize

	for j := 0; j < height; j++ {
		row := pixels[j*stride : j*stride+width]
		for i, p := range row {
			r := int(p>>16) & 0xff
			g := int(p>>8) & 0xff
			b := int(p) & 0xff

			y := ((66*r + 129*g + 25*b + 128) >> 8) + 16
			yuv[yIndex] = clamp8(y)
			yIndex++

			// one VU pair per 2x2 block
			if j%2 == 0 && i%2 == 0 {
				u := ((-38*r - 74*g + 112*b + 128) >> 8) + 128
				v := ((112*r - 94*g - 18*b + 128) >> 8) + 128
				yuv[uvIndex] = clamp8(v)
				yuv[uvIndex+1] = clamp8(u)
				uvIndex += 2
			}
		}
	}
	return yuv, width, height, nil
}

func clampChannel(x int) int {
	if x < 0 {
		return 0
	}
	if x > kMaxChannelValue {
		return kMaxChannelValue
	}
	return x
}

// YUV2RGB converts one sample using integer BT.601 coefficients scaled by
// 2^10.
func YUV2RGB(y, u, v int) uint32 {
	y -= 16
	if y < 0 {
		y = 0
	}
	u -= 128
	v -= 128

	y1192 := 1192 * y
	r := clampChannel(y1192 + 1634*v)
	g := clampChannel(y1192 - 833*v - 400*u)
	b := clampChannel(y1192 + 2066*u)

	return 0xff000000 | uint32((r<<6)&0xff0000) | uint32((g>>2)&0xff00) | uint32((b>>10)&0xff)
}

// YUVToARGB converts strided 4:2:0 planes to ARGB. The U and V slices share
// uvRowStride and uvPixelStride, so they may be views into one interleaved
// plane.
func YUVToARGB(yData, uData, vData []byte, width, height, yRowStride, uvRowStride, uvPixelStride int, scratch []uint32) (*RGBFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrInvalidArgument, width, height)
	}
	if yRowStride < width || uvRowStride < 1 || uvPixelStride < 1 {
		return nil, fmt.Errorf("%w: strides y=%d uv=%d/%d for width %d",
			ErrInvalidArgument, yRowStride, uvRowStride, uvPixelStride, width)
	}
	if need := yRowStride*(height-1) + width; len(yData) < need {
		return nil, fmt.Errorf("%w: y plane needs %d bytes but has %d", ErrInvalidArgument, need, len(yData))
	}
	need := uvRowStride*((height-1)>>1) + ((width-1)>>1)*uvPixelStride + 1
	if len(uData) < need || len(vData) < need {
		return nil, fmt.Errorf("%w: chroma planes need %d bytes but have %d/%d",
			ErrInvalidArgument, need, len(uData), len(vData))
	}

	out := scratchUint32(scratch, width*height)
	yp := 0
	for j := 0; j < height; j++ {
		pY := yRowStride * j
		pUV := uvRowStride * (j >> 1)

		for i := 0; i < width; i++ {
			uvOffset := pUV + (i>>1)*uvPixelStride
			out[yp] = YUV2RGB(int(yData[pY+i]), int(uData[uvOffset]), int(vData[uvOffset]))
			yp++
		}
	}
	return &RGBFrame{Pix: out, Width: width, Height: height}, nil
}

// NV21ToARGB converts a packed NV21 buffer.
func NV21ToARGB(buf []byte, width, height int, scratch []uint32) (*RGBFrame, error) {
	if len(buf) != NV21Size(width, height) {
		return nil, fmt.Errorf("%w: expected nv21 buffer of size %d but got %d", ErrBufferSizeMismatch, NV21Size(width, height), len(buf))
	}
	luma := width * height
	return YUVToARGB(buf[:luma], buf[luma+1:], buf[luma:], width, height, width, width, 2, scratch)
}

// ConvertYUVToRGB converts a whole plane source (Y, U, V planes) to ARGB.
// The chroma layout is taken from plane 1, as camera HALs report the same
// strides for both chroma planes.
func (c *Converter) ConvertYUVToRGB(src ImagePlaneSource, scratch []uint32) (*RGBFrame, error) {
	planes := src.Planes()
	if len(planes) != 3 {
		return nil, fmt.Errorf("%w: expected 3 planes but got %d", ErrInvalidArgument, len(planes))
	}
	tr := c.tracer()
	tr.Tick("yuv_to_argb")
	defer tr.Tock("yuv_to_argb")

	return YUVToARGB(planes[0].Data, planes[1].Data, planes[2].Data,
		src.Width(), src.Height(),
		planes[0].RowStride, planes[1].RowStride, planes[1].PixelStride,
		scratch)
}
