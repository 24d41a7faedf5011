package encdec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Codec compresses a packed NV21 buffer. Only the crop region is encoded.
type Codec interface {
	Encode(buf []byte, w, h int, crop CropRect, quality int) ([]byte, error)
}

// JPEGCodec hands the buffer to image/jpeg as a 4:2:0 YCbCr image.
type JPEGCodec struct{}

func (JPEGCodec) Encode(buf []byte, w, h int, crop CropRect, quality int) ([]byte, error) {
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d outside 0..100", ErrInvalidArgument, quality)
	}
	frame, err := NewNV21Frame(buf, w, h)
	if err != nil {
		return nil, err
	}
	if crop.IsZero() {
		crop = FullFrame(w, h)
	}
	if err := crop.Validate(w, h, false); err != nil {
		return nil, err
	}

	img, err := frame.YCbCr()
	if err != nil {
		return nil, err
	}
	sub := img.SubImage(image.Rect(crop.Left, crop.Top, crop.Right(), crop.Bottom()))

	var out bytes.Buffer
	err = jpeg.Encode(&out, sub, &jpeg.Options{Quality: quality})
	if err != nil {
		return nil, fmt.Errorf("could not jpeg encode frame: %w", err)
	}
	return out.Bytes(), nil
}

// YUVToJPEG compresses a whole NV21 frame.
func (c *Converter) YUVToJPEG(codec Codec, buf []byte, w, h int, quality int) ([]byte, error) {
	tr := c.tracer()
	tr.Tick("jpeg")
	defer tr.Tock("jpeg")
	return codec.Encode(buf, w, h, FullFrame(w, h), quality)
}

// RotateToJPEG rotates an NV21 frame and compresses the result with the
// rotated dimensions.
func (c *Converter) RotateToJPEG(codec Codec, buf []byte, w, h int, degrees int, quality int) ([]byte, error) {
	rotated, rw, rh, err := c.Rotate(buf, w, h, degrees)
	if err != nil {
		return nil, err
	}
	return c.YUVToJPEG(codec, rotated, rw, rh, quality)
}
