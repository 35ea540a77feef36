package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Recognition levels
const (
	LevelAccurate = "accurate"
	LevelFast     = "fast"
)

// Granularities an adapter can report regions at
const (
	GranularityLine  = "line"
	GranularityWord  = "word"
	GranularityBlock = "block"
)

// DefaultLanguages matches the languages the demo recognizes out of the box
var DefaultLanguages = []string{"zh-Hans", "en-US"}

// Config represents the configuration for a recognition request
type Config struct {
	Provider           string
	Model              string
	Languages          []string
	RecognitionLevel   string
	LanguageCorrection bool
	Granularity        string
	Timeout            time.Duration
}

// WithDefaults fills empty fields with the default languages, accurate
// recognition, line granularity and a 60 second timeout
func (c Config) WithDefaults() Config {
	if len(c.Languages) == 0 {
		c.Languages = append([]string(nil), DefaultLanguages...)
	}
	if c.RecognitionLevel == "" {
		c.RecognitionLevel = LevelAccurate
	}
	if c.Granularity == "" {
		c.Granularity = GranularityLine
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// Validate checks the provider-independent fields
func (c Config) Validate() error {
	switch c.RecognitionLevel {
	case "", LevelAccurate, LevelFast:
	default:
		return fmt.Errorf("unknown recognition level %q", c.RecognitionLevel)
	}
	switch c.Granularity {
	case "", GranularityLine, GranularityWord, GranularityBlock:
	default:
		return fmt.Errorf("unknown granularity %q", c.Granularity)
	}
	return nil
}

// Image is the request sent to an OCR backend
type Image struct {
	Path     string
	Data     []byte
	MimeType string
	// Size is the pixel size of Data after orientation was applied
	Size geometry.Size
}

// Provider interface that all OCR backends must implement. Observations are
// returned in the backend's reading order with normalized, bottom-left-origin
// bounding boxes regardless of the backend's native convention.
type Provider interface {
	// Recognize submits the image and returns the top candidate for every region
	Recognize(ctx context.Context, config Config, img Image) ([]textinfo.Observation, error)
	// Name returns the provider's name
	Name() string
	// ValidateConfig validates the provider-specific configuration
	ValidateConfig(config Config) error
}

// NormalizeTopLeft converts a top-left pixel rectangle, as most cloud OCR
// services report it, into the canonical normalized bottom-left space.
// Regions that overshoot the page edges come back outside the unit square
// so textinfo.Build can clamp or report them.
func NormalizeTopLeft(px geometry.Rect, size geometry.Size) (geometry.Rect, error) {
	if !size.Valid() {
		return geometry.Rect{}, fmt.Errorf("%w: %s", geometry.ErrInvalidBounds, size)
	}

	h := px.Height / size.Height
	return geometry.Rect{
		X:      px.X / size.Width,
		Y:      1 - px.Y/size.Height - h,
		Width:  px.Width / size.Width,
		Height: h,
	}, nil
}

// BoundsOfPolygon reduces a flat list of x,y pairs to its bounding rectangle
func BoundsOfPolygon(coords []float64) (geometry.Rect, error) {
	if len(coords) < 4 || len(coords)%2 != 0 {
		return geometry.Rect{}, fmt.Errorf("polygon needs an even number of coordinates, got %d", len(coords))
	}

	points := make([]geometry.Point, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		points = append(points, geometry.Point{X: coords[i], Y: coords[i+1]})
	}

	r, _ := geometry.BoundingRect(points)
	return r, nil
}

// TruncateBody truncates a response body to a maximum length for error messages.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}

// JoinLanguages renders language hints as a comma separated list
func JoinLanguages(langs []string) string {
	return strings.Join(langs, ",")
}
