package xform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fosdem/framexform/lib/encdec"
)

// ParseSize parses a frame size written as WIDTHxHEIGHT.
func ParseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: expected WIDTHxHEIGHT, got %q", encdec.ErrInvalidArgument, s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid width in %q", encdec.ErrInvalidArgument, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid height in %q", encdec.ErrInvalidArgument, s)
	}
	return w, h, nil
}

// ParseRect parses a box written as left,top,right,bottom.
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("%w: expected left,top,right,bottom, got %q", encdec.ErrInvalidArgument, s)
	}
	var v [4]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return Rect{}, fmt.Errorf("%w: invalid box coordinate %q", encdec.ErrInvalidArgument, p)
		}
		v[i] = float32(f)
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}
