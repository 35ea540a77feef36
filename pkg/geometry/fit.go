package geometry

import (
	"fmt"
	"math"
)

// Fit is an aspect-fit placement of an image inside a container.
type Fit struct {
	Scale     float64 `json:"scale" yaml:"scale"`
	OffsetX   float64 `json:"offset_x" yaml:"offset_x"`
	OffsetY   float64 `json:"offset_y" yaml:"offset_y"`
	Container Size    `json:"container" yaml:"container"`
	Image     Size    `json:"image" yaml:"image"`
}

// AspectFit scales an image to fit inside container while preserving its
// aspect ratio and centers the result (letterboxing).
func AspectFit(container, img Size) (Fit, error) {
	if !container.Valid() {
		return Fit{}, fmt.Errorf("%w: container %s", ErrInvalidSize, container)
	}
	if !img.Valid() {
		return Fit{}, fmt.Errorf("%w: image %s", ErrInvalidSize, img)
	}

	scale := math.Min(container.Width/img.Width, container.Height/img.Height)
	return Fit{
		Scale:     scale,
		OffsetX:   (container.Width - img.Width*scale) / 2,
		OffsetY:   (container.Height - img.Height*scale) / 2,
		Container: container,
		Image:     img,
	}, nil
}

// Identity is the placement of an image displayed at its native size.
func Identity(img Size) Fit {
	return Fit{Scale: 1, Container: img, Image: img}
}

// Apply maps an image-pixel rectangle into container coordinates.
func (f Fit) Apply(r Rect) Rect {
	return Rect{
		X:      r.X*f.Scale + f.OffsetX,
		Y:      r.Y*f.Scale + f.OffsetY,
		Width:  r.Width * f.Scale,
		Height: r.Height * f.Scale,
	}
}

// ApplyPoint maps an image-pixel point into container coordinates.
func (f Fit) ApplyPoint(p Point) Point {
	return Point{X: p.X*f.Scale + f.OffsetX, Y: p.Y*f.Scale + f.OffsetY}
}

// Invert maps a container rectangle back into image pixels.
func (f Fit) Invert(r Rect) Rect {
	if f.Scale == 0 {
		return Rect{}
	}
	return Rect{
		X:      (r.X - f.OffsetX) / f.Scale,
		Y:      (r.Y - f.OffsetY) / f.Scale,
		Width:  r.Width / f.Scale,
		Height: r.Height / f.Scale,
	}
}

// InvertPoint maps a container point back into image pixels.
func (f Fit) InvertPoint(p Point) Point {
	if f.Scale == 0 {
		return Point{}
	}
	return Point{X: (p.X - f.OffsetX) / f.Scale, Y: (p.Y - f.OffsetY) / f.Scale}
}

// Displayed is the area of the container covered by the image.
func (f Fit) Displayed() Rect {
	return Rect{
		X:      f.OffsetX,
		Y:      f.OffsetY,
		Width:  f.Image.Width * f.Scale,
		Height: f.Image.Height * f.Scale,
	}
}
