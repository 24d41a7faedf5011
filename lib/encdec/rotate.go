package encdec

import "fmt"

func checkNV21(data []byte, w, h int) error {
	if w < 2 || h < 2 || w%2 != 0 || h%2 != 0 {
		return fmt.Errorf("%w: nv21 buffer must have even dimensions, got %dx%d", ErrInvalidArgument, w, h)
	}
	if len(data) != NV21Size(w, h) {
		return fmt.Errorf("%w: expected nv21 buffer of size %d but got %d", ErrBufferSizeMismatch, NV21Size(w, h), len(data))
	}
	return nil
}

// Rotate90 rotates a packed w×h NV21 buffer clockwise into a new h×w buffer.
func Rotate90(data []byte, w, h int) ([]byte, error) {
	if err := checkNV21(data, w, h); err != nil {
		return nil, err
	}
	yuv := make([]byte, len(data))

	i := 0
	for x := 0; x < w; x++ {
		for y := h - 1; y >= 0; y-- {
			yuv[i] = data[y*w+x]
			i++
		}
	}

	// chroma is filled back to front
	luma := w * h
	i = len(yuv) - 1
	for x := w - 1; x > 0; x -= 2 {
		for y := 0; y < h/2; y++ {
			yuv[i] = data[luma+y*w+x]
			i--
			yuv[i] = data[luma+y*w+x-1]
			i--
		}
	}
	return yuv, nil
}

// Rotate180 reverses the luma plane and the order of the chroma pairs while
// keeping each pair's V,U order.
func Rotate180(data []byte, w, h int) ([]byte, error) {
	if err := checkNV21(data, w, h); err != nil {
		return nil, err
	}
	yuv := make([]byte, len(data))

	count := 0
	luma := w * h
	for i := luma - 1; i >= 0; i-- {
		yuv[count] = data[i]
		count++
	}
	for i := len(data) - 1; i >= luma; i -= 2 {
		yuv[count] = data[i-1]
		yuv[count+1] = data[i]
		count += 2
	}
	return yuv, nil
}

// Rotate270 takes a w×h buffer to an h×w buffer rotated counter-clockwise.
func Rotate270(data []byte, w, h int) ([]byte, error) {
	rotated, err := Rotate90(data, w, h)
	if err != nil {
		return nil, err
	}
	return Rotate180(rotated, h, w)
}

// NormalizeRotation maps any multiple of 90 into 0, 90, 180 or 270.
func NormalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRotation, degrees)
	}
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees, nil
}

// Rotate turns a packed NV21 buffer clockwise by any multiple of 90 and
// returns the new buffer with its dimensions. A zero rotation returns the
// input buffer itself.
func Rotate(data []byte, w, h int, degrees int) ([]byte, int, int, error) {
	degrees, err := NormalizeRotation(degrees)
	if err != nil {
		return nil, 0, 0, err
	}

	var out []byte
	switch degrees {
	case 0:
		if err := checkNV21(data, w, h); err != nil {
			return nil, 0, 0, err
		}
		return data, w, h, nil
	case 90:
		out, err = Rotate90(data, w, h)
		w, h = h, w
	case 180:
		out, err = Rotate180(data, w, h)
	case 270:
		out, err = Rotate270(data, w, h)
		w, h = h, w
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return out, w, h, nil
}

// Rotate applies the converter's tracer around Rotate.
func (c *Converter) Rotate(data []byte, w, h int, degrees int) ([]byte, int, int, error) {
	tr := c.tracer()
	tr.Tick("rotate")
	defer tr.Tock("rotate")
	return Rotate(data, w, h, degrees)
}
