package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRect is returned for rectangles with NaN, infinite or negative components
	ErrInvalidRect = errors.New("invalid rectangle")
	// ErrInvalidBounds is returned when the target pixel bounds are not usable
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrInvalidSize is returned when a size is not positive and finite
	ErrInvalidSize = errors.New("invalid size")
)

// Point is a 2D point
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an axis-aligned rectangle described by its origin and size
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// MaxX returns the right edge
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the far edge along Y (top in a bottom-left space, bottom in a top-left space)
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle has no area
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Valid reports whether every component is finite and the origin and size are non-negative
func (r Rect) Valid() bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// Normalized reports whether the rectangle is valid and lies inside the unit square
func (r Rect) Normalized() bool {
	const eps = 1e-9
	return r.Valid() && r.MaxX() <= 1+eps && r.MaxY() <= 1+eps
}

// Center returns the point in the middle of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside the rectangle
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// ToImageRect rounds the rectangle to integer pixel coordinates
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.MaxX())),
		int(math.Round(r.MaxY())),
	)
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", r.X, r.Y, r.Width, r.Height)
}

// Valid reports whether both dimensions are positive and finite
func (s Size) Valid() bool {
	return isPositive(s.Width) && isPositive(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// SizeOf returns the size of an image.Rectangle
func SizeOf(r image.Rectangle) Size {
	return Size{Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// ParseSize parses strings like "300x300" or "1024X768"
func ParseSize(s string) (Size, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("%w: %q is not WIDTHxHEIGHT", ErrInvalidSize, s)
	}

	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Size{}, fmt.Errorf("%w: width %q: %v", ErrInvalidSize, parts[0], err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Size{}, fmt.Errorf("%w: height %q: %v", ErrInvalidSize, parts[1], err)
	}

	size := Size{Width: w, Height: h}
	if !size.Valid() {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return size, nil
}

// ParseRect parses "x,y,w,h"
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("%w: %q is not x,y,w,h", ErrInvalidRect, s)
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, fmt.Errorf("%w: component %d %q: %v", ErrInvalidRect, i, p, err)
		}
		vals[i] = v
	}

	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func isPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
