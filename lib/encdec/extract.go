package encdec

import (
	"fmt"
	"log/slog"
)

// Converter carries the optional collaborators of a conversion: a logger for
// diagnostics, a tracer for stage timing and a warning hook. The zero value
// is ready to use and stays silent.
type Converter struct {
	Log       *slog.Logger
	Tracer    Tracer
	OnWarning func(kind string)
}

const WarningChromaStride = "chroma_pixel_stride"

func (c *Converter) tracer() Tracer {
	if c == nil || c.Tracer == nil {
		return nopTracer{}
	}
	return c.Tracer
}

func (c *Converter) warn(kind string, msg string, args ...any) {
	if c == nil {
		return
	}
	if c.Log != nil {
		c.Log.Warn(msg, args...)
	}
	if c.OnWarning != nil {
		c.OnWarning(kind)
	}
}

// PackNV21 concatenates the Y plane and the interleaved VU plane (plane 2)
// of a three-plane frame. The copy goes ahead even when the VU plane does
// not look interleaved, since plane layout is hardware dependent.
func (c *Converter) PackNV21(planes []ImagePlane, scratch []byte) ([]byte, error) {
	if len(planes) != 3 {
		return nil, fmt.Errorf("%w: expected 3 planes but got %d", ErrInvalidArgument, len(planes))
	}
	luma := planes[0]
	vu := planes[2]

	if vu.PixelStride != 2 {
		c.warn(WarningChromaStride, "possible YUV format problem, VU plane is not interleaved",
			"pixel_stride", vu.PixelStride)
	}

	tr := c.tracer()
	tr.Tick("pack_nv21")
	defer tr.Tock("pack_nv21")

	yb := len(luma.Data)
	vub := len(vu.Data)
	data := scratchBytes(scratch, yb+vub)
	copy(data, luma.Data)
	copy(data[yb:], vu.Data)
	return data, nil
}

// ExtractCroppedNV21 packs the source's crop region into NV21.
func (c *Converter) ExtractCroppedNV21(src ImagePlaneSource, scratch []byte) ([]byte, error) {
	tr := c.tracer()
	tr.Tick("extract_nv21")
	defer tr.Tock("extract_nv21")

	return ExtractCroppedNV21(src.Planes(), src.Width(), src.Height(), src.CropRect(), src.Format(), scratch)
}

// ExtractCroppedNV21 reads the crop region out of arbitrarily strided planes
// (Y, U, V) of a width×height frame and writes Y followed by VU pairs. The
// crop must lie inside the frame; row padding past width is never read.
// Plane data may be shorter than RowStride×rows; the last row only has to
// cover the samples read.
func ExtractCroppedNV21(planes []ImagePlane, width, height int, crop CropRect, format PixelFormat, scratch []byte) ([]byte, error) {
	if len(planes) != 3 {
		return nil, fmt.Errorf("%w: expected 3 planes but got %d", ErrInvalidArgument, len(planes))
	}
	bpp := format.BitsPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: unsupported format %s", ErrInvalidArgument, format)
	}
	if err := crop.Validate(width, height, true); err != nil {
		return nil, err
	}

	width = crop.Width
	height = crop.Height
	data := scratchBytes(scratch, width*height*bpp/8)

	for i, plane := range planes {
		var channelOffset, outputStride int
		switch i {
		case 0:
			channelOffset = 0
			outputStride = 1
		case 1:
			channelOffset = width*height + 1
			outputStride = 2
		case 2:
			channelOffset = width * height
			outputStride = 2
		}
		start := channelOffset

		if plane.RowStride < 1 || plane.PixelStride < 1 {
			return nil, fmt.Errorf("%w: plane %d has row stride %d and pixel stride %d",
				ErrInvalidArgument, i, plane.RowStride, plane.PixelStride)
		}

		shift := 1
		if i == 0 {
			shift = 0
		}
		w := width >> shift
		h := height >> shift
		pos := plane.RowStride*(crop.Top>>shift) + plane.PixelStride*(crop.Left>>shift)

		for row := 0; row < h; row++ {
			var length int
			if plane.PixelStride == 1 && outputStride == 1 {
				length = w
				if pos+length > len(plane.Data) {
					return nil, planeUnderrun(i, row, pos+length, len(plane.Data))
				}
				if channelOffset+length > len(data) {
					return nil, outputOverrun(channelOffset+length, len(data))
				}
				copy(data[channelOffset:], plane.Data[pos:pos+length])
				channelOffset += length
			} else {
				length = (w-1)*plane.PixelStride + 1
				if pos+length > len(plane.Data) {
					return nil, planeUnderrun(i, row, pos+length, len(plane.Data))
				}
				rowData := plane.Data[pos : pos+length]
				for col := 0; col < w; col++ {
					if channelOffset >= len(data) {
						return nil, outputOverrun(channelOffset+1, len(data))
					}
					data[channelOffset] = rowData[col*plane.PixelStride]
					channelOffset += outputStride
				}
			}
			pos += length
			if row < h-1 {
				pos += plane.RowStride - length
			}
		}

		if written := (channelOffset - start) / outputStride; written != w*h {
			return nil, fmt.Errorf("%w: plane %d wrote %d samples, expected %d",
				ErrBufferSizeMismatch, i, written, w*h)
		}
	}
	return data, nil
}

func planeUnderrun(plane, row, need, have int) error {
	return fmt.Errorf("%w: plane %d row %d needs %d bytes but plane holds %d",
		ErrInvalidArgument, plane, row, need, have)
}

func outputOverrun(need, have int) error {
	return fmt.Errorf("%w: write up to %d exceeds output of %d bytes", ErrBufferSizeMismatch, need, have)
}
