package textinfo

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
)

type options struct {
	newID         func() string
	clamp         bool
	minConfidence float64
}

// Option configures Build
type Option func(*options)

// WithIDGenerator replaces the UUID generator, mostly for deterministic tests
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClamp clamps out-of-range boxes into the unit square instead of rejecting them
func WithClamp(clamp bool) Option {
	return func(o *options) { o.clamp = clamp }
}

// WithMinConfidence drops candidates below the given confidence
func WithMinConfidence(c float64) Option {
	return func(o *options) { o.minConfidence = c }
}

// Build converts OCR observations into pixel-space records for an image of
// the given size. Malformed candidates are skipped and reported in
// Result.Skipped; the rest of the batch is kept in order.
func Build(observations []Observation, bounds geometry.Size, opts ...Option) Result {
	o := options{newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}

	result := Result{
		Image: bounds,
		Infos: make([]TextInfo, 0, len(observations)),
	}

	convert := geometry.ToPixel
	if o.clamp {
		convert = geometry.ToPixelClamped
	}

	for i, obs := range observations {
		reject := func(reason string) {
			result.Skipped = append(result.Skipped, Rejection{Index: i, Text: obs.Text, Reason: reason})
		}

		if strings.TrimSpace(obs.Text) == "" {
			reject("empty text")
			continue
		}
		if obs.Confidence < o.minConfidence {
			reject(fmt.Sprintf("confidence %.3f below %.3f", obs.Confidence, o.minConfidence))
			continue
		}
		if obs.BoundingBox.IsEmpty() {
			reject(fmt.Sprintf("bounding box %s has no area", obs.BoundingBox))
			continue
		}
		if !o.clamp && !obs.BoundingBox.Normalized() {
			reject(fmt.Sprintf("bounding box %s outside the unit square", obs.BoundingBox))
			continue
		}

		frame, err := convert(obs.BoundingBox, bounds)
		if err != nil {
			reject(err.Error())
			continue
		}

		result.Infos = append(result.Infos, TextInfo{
			UniqueID: o.newID(),
			Text:     obs.Text,
			Frame:    frame,
		})
	}

	return result
}

// Fitted returns the records with every frame mapped into a container of the
// given size, together with the placement that was used.
func (r Result) Fitted(container geometry.Size) ([]TextInfo, geometry.Fit, error) {
	fit, err := geometry.AspectFit(container, r.Image)
	if err != nil {
		return nil, geometry.Fit{}, err
	}
	return ApplyFit(r.Infos, fit), fit, nil
}

// ApplyFit maps every frame through fit. The input slice is not modified.
func ApplyFit(infos []TextInfo, fit geometry.Fit) []TextInfo {
	out := make([]TextInfo, len(infos))
	for i, info := range infos {
		info.Frame = fit.Apply(info.Frame)
		out[i] = info
	}
	return out
}

// Texts joins the recognized strings with single spaces
func Texts(infos []TextInfo) string {
	parts := make([]string, 0, len(infos))
	for _, info := range infos {
		parts = append(parts, info.Text)
	}
	return strings.Join(parts, " ")
}

// Find returns the record with the given ID
func (r Result) Find(id string) (TextInfo, bool) {
	for _, info := range r.Infos {
		if info.UniqueID == id {
			return info, true
		}
	}
	return TextInfo{}, false
}

// At returns the records whose frame contains the pixel point p
func (r Result) At(p geometry.Point) []TextInfo {
	var hits []TextInfo
	for _, info := range r.Infos {
		if info.Frame.Contains(p) {
			hits = append(hits, info)
		}
	}
	return hits
}
