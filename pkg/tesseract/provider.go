// Package tesseract recognizes text locally with Tesseract through gosseract.
//
// The gosseract bindings need cgo and the Tesseract libraries. Builds without
// cgo get a provider that reports itself unavailable.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	"github.com/lehigh-university-libraries/textframe/pkg/providers"
)

// Provider implements the local Tesseract provider
type Provider struct {
	// Binarize converts the image to black and white before recognition
	Binarize bool
	// Threshold is the binarization cutoff, 0-255
	Threshold uint8
}

// New creates a new Tesseract provider
func New() *Provider {
	return &Provider{Threshold: 128}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "tesseract"
}

var languageCodes = map[string]string{
	"zh-hans": "chi_sim",
	"zh-cn":   "chi_sim",
	"zh-hant": "chi_tra",
	"zh-tw":   "chi_tra",
	"en":      "eng",
	"ja":      "jpn",
	"ko":      "kor",
	"fr":      "fra",
	"de":      "deu",
	"es":      "spa",
}

// tesseractLanguages maps BCP-47 tags onto Tesseract traineddata names.
// Unknown tags are passed through unchanged.
func tesseractLanguages(langs []string) []string {
	out := make([]string, 0, len(langs))
	seen := make(map[string]bool)
	for _, l := range langs {
		lower := strings.ToLower(l)
		code, ok := languageCodes[lower]
		if !ok {
			if i := strings.Index(lower, "-"); i > 0 {
				code, ok = languageCodes[lower[:i]]
			}
		}
		if !ok {
			code = l
		}
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

// binarize converts an encoded image to a thresholded PNG
func binarize(data []byte, threshold uint8) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var gray image.Image = effect.Grayscale(src)
	var bw image.Image = segment.Threshold(gray, threshold)

	var buf bytes.Buffer
	if err := png.Encode(&buf, bw); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

var _ providers.Provider = (*Provider)(nil)
