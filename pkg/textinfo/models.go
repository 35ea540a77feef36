package textinfo

import (
	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
)

// Observation is one candidate returned by an OCR backend. BoundingBox is
// normalized to [0,1] with its origin at the bottom-left of the image.
type Observation struct {
	Text        string        `json:"text" yaml:"text"`
	Confidence  float64       `json:"confidence" yaml:"confidence"`
	BoundingBox geometry.Rect `json:"bounding_box" yaml:"bounding_box"`
}

// TextInfo is a recognized text region in top-left image pixel space
type TextInfo struct {
	UniqueID string        `json:"uniqueID" yaml:"uniqueID"`
	Text     string        `json:"text" yaml:"text"`
	Frame    geometry.Rect `json:"frame" yaml:"frame"`
}

// Rejection records a candidate that was dropped while building a Result
type Rejection struct {
	Index  int    `json:"index" yaml:"index"`
	Text   string `json:"text" yaml:"text"`
	Reason string `json:"reason" yaml:"reason"`
}

// Result is the collection of records for one image
type Result struct {
	Image   geometry.Size `json:"image" yaml:"image"`
	Infos   []TextInfo    `json:"results" yaml:"results"`
	Skipped []Rejection   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}
