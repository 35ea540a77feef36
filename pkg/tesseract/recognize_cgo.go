//go:build cgo

package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// ValidateConfig validates the Tesseract configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	return config.Validate()
}

// Recognize runs Tesseract over the image
func (p *Provider) Recognize(ctx context.Context, config providers.Config, img providers.Image) ([]textinfo.Observation, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	config = config.WithDefaults()

	data := img.Data
	if p.Binarize {
		var err error
		data, err = binarize(img.Data, p.Threshold)
		if err != nil {
			return nil, err
		}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(tesseractLanguages(config.Languages)...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	// gosseract does not take a context; bail out before the expensive call
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes, err := client.GetBoundingBoxes(level(config.Granularity))
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	observations := make([]textinfo.Observation, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		px := geometry.Rect{
			X:      float64(box.Box.Min.X),
			Y:      float64(box.Box.Min.Y),
			Width:  float64(box.Box.Dx()),
			Height: float64(box.Box.Dy()),
		}
		norm, err := providers.NormalizeTopLeft(px, img.Size)
		if err != nil {
			continue
		}
		observations = append(observations, textinfo.Observation{
			Text:        box.Word,
			Confidence:  box.Confidence / 100.0,
			BoundingBox: norm,
		})
	}

	return observations, nil
}

func level(granularity string) gosseract.PageIteratorLevel {
	switch granularity {
	case providers.GranularityWord:
		return gosseract.RIL_WORD
	case providers.GranularityBlock:
		return gosseract.RIL_BLOCK
	default:
		return gosseract.RIL_TEXTLINE
	}
}
