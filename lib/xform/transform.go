// Package xform computes the affine transforms that map coordinates between
// a source frame and a destination frame, e.g. from the camera frame to
// the detector input and back again for drawing boxes.
package xform

import (
	"fmt"

	"github.com/fosdem/framexform/lib/encdec"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidRotation = encdec.ErrInvalidRotation

// Affine is a 2D affine transform kept as a 3x3 matrix whose bottom row is
// always [0 0 1].
type Affine struct {
	m mgl32.Mat3
}

type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type Rect struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Right  float32 `json:"right"`
	Bottom float32 `json:"bottom"`
}

func Identity() Affine {
	return Affine{m: mgl32.Ident3()}
}

// PostConcat returns the transform that applies a first and then other.
func (a Affine) PostConcat(other Affine) Affine {
	return Affine{m: other.m.Mul3(a.m)}
}

func (a Affine) postTranslate(tx, ty float32) Affine {
	return a.PostConcat(Affine{m: mgl32.Translate2D(tx, ty)})
}

func (a Affine) postScale(sx, sy float32) Affine {
	return a.PostConcat(Affine{m: mgl32.Scale2D(sx, sy)})
}

// postRotate rotates by a multiple of 90 degrees about the origin, clockwise
// in a y-down frame. Quarter turns use exact sines so corners map without
// drift.
func (a Affine) postRotate(degrees int) Affine {
	var sin, cos float32
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		sin, cos = 0, 1
	case 90:
		sin, cos = 1, 0
	case 180:
		sin, cos = 0, -1
	case 270:
		sin, cos = -1, 0
	}
	r := mgl32.Mat3{
		cos, sin, 0,
		-sin, cos, 0,
		0, 0, 1,
	}
	return a.PostConcat(Affine{m: r})
}

// Build returns the transform from a srcWidth×srcHeight frame into a
// dstWidth×dstHeight frame, rotating by rotation degrees (any multiple of
// 90, negative allowed). With maintainAspectRatio both axes share the larger
// scale factor so the destination is filled and the source may be cropped.
func Build(srcWidth, srcHeight, dstWidth, dstHeight int, rotation int, maintainAspectRatio bool) (Affine, error) {
	if srcWidth <= 0 || srcHeight <= 0 || dstWidth <= 0 || dstHeight <= 0 {
		return Affine{}, fmt.Errorf("%w: frame sizes %dx%d -> %dx%d must be positive",
			encdec.ErrInvalidArgument, srcWidth, srcHeight, dstWidth, dstHeight)
	}
	if rotation%90 != 0 {
		return Affine{}, fmt.Errorf("%w: got %d", ErrInvalidRotation, rotation)
	}

	t := Identity()
	if rotation != 0 {
		t = t.postTranslate(-float32(srcWidth)/2, -float32(srcHeight)/2)
		t = t.postRotate(rotation)
	}

	abs := rotation
	if abs < 0 {
		abs = -abs
	}
	transpose := (abs+90)%180 == 0

	inWidth, inHeight := srcWidth, srcHeight
	if transpose {
		inWidth, inHeight = srcHeight, srcWidth
	}

	if inWidth != dstWidth || inHeight != dstHeight {
		scaleX := float32(dstWidth) / float32(inWidth)
		scaleY := float32(dstHeight) / float32(inHeight)

		if maintainAspectRatio {
			scale := max(scaleX, scaleY)
			t = t.postScale(scale, scale)
		} else {
			t = t.postScale(scaleX, scaleY)
		}
	}

	if rotation != 0 {
		t = t.postTranslate(float32(dstWidth)/2, float32(dstHeight)/2)
	}
	return t, nil
}

func (a Affine) Apply(x, y float32) Point {
	v := a.m.Mul3x1(mgl32.Vec3{x, y, 1})
	return Point{X: v[0], Y: v[1]}
}

// MapRect maps the four corners of r and returns their bounding box.
func (a Affine) MapRect(r Rect) Rect {
	corners := [4]Point{
		a.Apply(r.Left, r.Top),
		a.Apply(r.Right, r.Top),
		a.Apply(r.Left, r.Bottom),
		a.Apply(r.Right, r.Bottom),
	}
	out := Rect{Left: corners[0].X, Top: corners[0].Y, Right: corners[0].X, Bottom: corners[0].Y}
	for _, c := range corners[1:] {
		out.Left = min(out.Left, c.X)
		out.Right = max(out.Right, c.X)
		out.Top = min(out.Top, c.Y)
		out.Bottom = max(out.Bottom, c.Y)
	}
	return out
}

// Invert returns the reverse mapping, destination to source.
func (a Affine) Invert() (Affine, error) {
	if mgl32.FloatEqual(a.m.Det(), 0) {
		return Affine{}, fmt.Errorf("%w: transform is not invertible", encdec.ErrInvalidArgument)
	}
	return Affine{m: a.m.Inv()}, nil
}

// Coefficients returns a, b, c, d, tx, ty such that
// x' = a*x + b*y + tx and y' = c*x + d*y + ty.
func (a Affine) Coefficients() [6]float32 {
	return [6]float32{
		a.m.At(0, 0), a.m.At(0, 1),
		a.m.At(1, 0), a.m.At(1, 1),
		a.m.At(0, 2), a.m.At(1, 2),
	}
}

func (a Affine) Mat3() mgl32.Mat3 {
	return a.m
}

func (a Affine) String() string {
	c := a.Coefficients()
	return fmt.Sprintf("[%g %g %g; %g %g %g; 0 0 1]", c[0], c[1], c[4], c[2], c[3], c[5])
}
