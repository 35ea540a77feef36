package geometry

import (
	"fmt"
	"math"
)

// ToPixel maps a normalized, bottom-left-origin rectangle into the
// top-left-origin pixel space of an image with the given size.
//
//	x' = x*W
//	y' = (1 - (y+h))*H
//	w' = w*W
//	h' = h*H
func ToPixel(norm Rect, bounds Size) (Rect, error) {
	return ToPixelIn(norm, Rect{Width: bounds.Width, Height: bounds.Height})
}

// ToPixelIn is ToPixel for a target region that does not start at the origin.
func ToPixelIn(norm Rect, bounds Rect) (Rect, error) {
	if !norm.Valid() {
		return Rect{}, fmt.Errorf("%w: %s", ErrInvalidRect, norm)
	}
	if !isPositive(bounds.Width) || !isPositive(bounds.Height) ||
		math.IsNaN(bounds.X) || math.IsInf(bounds.X, 0) ||
		math.IsNaN(bounds.Y) || math.IsInf(bounds.Y, 0) {
		return Rect{}, fmt.Errorf("%w: %s", ErrInvalidBounds, bounds)
	}

	return Rect{
		X:      norm.X*bounds.Width + bounds.X,
		Y:      (1-norm.MaxY())*bounds.Height + bounds.Y,
		Width:  norm.Width * bounds.Width,
		Height: norm.Height * bounds.Height,
	}, nil
}

// ToPixelClamped clamps a finite rectangle into the unit square before
// converting it. NaN or infinite components are still rejected.
func ToPixelClamped(norm Rect, bounds Size) (Rect, error) {
	clamped, err := Clamp(norm)
	if err != nil {
		return Rect{}, err
	}
	return ToPixel(clamped, bounds)
}

// Clamp pulls a normalized rectangle into [0,1]. The origin is clamped first
// and the size is then trimmed so the far edges stay inside the unit square.
// A rectangle left without area, because it had none or lies entirely outside
// the unit square, is an error.
func Clamp(norm Rect) (Rect, error) {
	for _, v := range []float64{norm.X, norm.Y, norm.Width, norm.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Rect{}, fmt.Errorf("%w: %s", ErrInvalidRect, norm)
		}
	}

	// a negative origin eats into the size, like intersecting with the unit square
	maxX := clamp01(norm.X + math.Max(norm.Width, 0))
	maxY := clamp01(norm.Y + math.Max(norm.Height, 0))
	x := clamp01(norm.X)
	y := clamp01(norm.Y)

	clamped := Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(maxX-x, 0),
		Height: math.Max(maxY-y, 0),
	}
	if norm.IsEmpty() || clamped.IsEmpty() {
		return Rect{}, fmt.Errorf("%w: %s has no area inside the unit square", ErrInvalidRect, norm)
	}
	return clamped, nil
}

// ToNormalized is the inverse of ToPixel: it maps a top-left pixel rectangle
// back into normalized, bottom-left-origin coordinates.
func ToNormalized(px Rect, bounds Size) (Rect, error) {
	if !px.Valid() {
		return Rect{}, fmt.Errorf("%w: %s", ErrInvalidRect, px)
	}
	if !bounds.Valid() {
		return Rect{}, fmt.Errorf("%w: %s", ErrInvalidBounds, bounds)
	}

	h := px.Height / bounds.Height
	return Rect{
		X:      px.X / bounds.Width,
		Y:      1 - px.Y/bounds.Height - h,
		Width:  px.Width / bounds.Width,
		Height: h,
	}, nil
}

// FlipNormalized converts between top-left and bottom-left normalized spaces.
// The transform is its own inverse.
func FlipNormalized(r Rect) Rect {
	return Rect{X: r.X, Y: 1 - r.MaxY(), Width: r.Width, Height: r.Height}
}

// BoundingRect returns the smallest axis-aligned rectangle containing every point.
func BoundingRect(points []Point) (Rect, bool) {
	if len(points) == 0 {
		return Rect{}, false
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
