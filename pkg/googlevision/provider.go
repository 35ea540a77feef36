package googlevision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Client is the subset of vision.ImageAnnotatorClient the provider uses
type Client interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

var _ Client = (*vision.ImageAnnotatorClient)(nil)

// ClientFactory creates a Client for a single request
type ClientFactory func(ctx context.Context) (Client, error)

// Provider implements the Google Cloud Vision document text provider
type Provider struct {
	newClient ClientFactory
}

// New creates a new Google Cloud Vision provider
func New() *Provider {
	return &Provider{newClient: defaultClient}
}

// NewWithClient creates a provider that uses the given factory, for tests
func NewWithClient(factory ClientFactory) *Provider {
	return &Provider{newClient: factory}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "google"
}

// ValidateConfig validates the Google Cloud Vision configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" && os.Getenv("GOOGLE_VISION_API_KEY") == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_VISION_API_KEY environment variable must be set")
	}
	return config.Validate()
}

// Recognize runs DOCUMENT_TEXT_DETECTION on the image
func (p *Provider) Recognize(ctx context.Context, config providers.Config, img providers.Image) ([]textinfo.Observation, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	config = config.WithDefaults()

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	defer client.Close()

	annotation, err := DetectDocumentText(ctx, client, img.Data, languageHints(config.Languages))
	if err != nil {
		return nil, err
	}

	return Observations(annotation, img.Size, config.Granularity), nil
}

// DetectDocumentText runs a single DOCUMENT_TEXT_DETECTION request and
// returns its full text annotation
func DetectDocumentText(ctx context.Context, client Client, content []byte, hints []string) (*visionpb.TextAnnotation, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: content},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{LanguageHints: hints},
		}},
	}

	resp, err := client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to detect text: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("failed to detect text: empty response")
	}

	image := resp.GetResponses()[0]
	if e := image.GetError(); e != nil {
		return nil, fmt.Errorf("failed to detect text: %s (code %d)", e.GetMessage(), e.GetCode())
	}
	return image.GetFullTextAnnotation(), nil
}

func defaultClient(ctx context.Context) (Client, error) {
	var opts []option.ClientOption
	if key := os.Getenv("GOOGLE_VISION_API_KEY"); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	} else if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Observations flattens a document annotation. Paragraphs are reported for
// line granularity since Vision has no line level of its own.
func Observations(annotation *visionpb.TextAnnotation, fallback geometry.Size, granularity string) []textinfo.Observation {
	var observations []textinfo.Observation
	if annotation == nil {
		return observations
	}

	for _, page := range annotation.GetPages() {
		size := geometry.Size{Width: float64(page.GetWidth()), Height: float64(page.GetHeight())}
		if !size.Valid() {
			size = fallback
		}

		for _, block := range page.GetBlocks() {
			if granularity == providers.GranularityBlock {
				var parts []string
				for _, paragraph := range block.GetParagraphs() {
					parts = append(parts, paragraphText(paragraph))
				}
				observations = appendRegion(observations, strings.Join(parts, " "), block.GetConfidence(), block.GetBoundingBox(), size)
				continue
			}

			for _, paragraph := range block.GetParagraphs() {
				if granularity == providers.GranularityWord {
					for _, word := range paragraph.GetWords() {
						observations = appendRegion(observations, wordText(word), word.GetConfidence(), word.GetBoundingBox(), size)
					}
					continue
				}
				observations = appendRegion(observations, paragraphText(paragraph), paragraph.GetConfidence(), paragraph.GetBoundingBox(), size)
			}
		}
	}

	return observations
}

func appendRegion(observations []textinfo.Observation, text string, confidence float32, poly *visionpb.BoundingPoly, size geometry.Size) []textinfo.Observation {
	box, err := normalizedBox(poly, size)
	if err != nil {
		slog.Debug("Skipping Vision region", "text", text, "err", err)
		return observations
	}
	return append(observations, textinfo.Observation{
		Text:        strings.TrimSpace(text),
		Confidence:  float64(confidence),
		BoundingBox: box,
	})
}

// normalizedBox prefers pixel vertices and falls back to normalized vertices.
// Vision reports both with a top-left origin.
func normalizedBox(poly *visionpb.BoundingPoly, size geometry.Size) (geometry.Rect, error) {
	if vertices := poly.GetVertices(); len(vertices) > 0 {
		points := make([]geometry.Point, 0, len(vertices))
		for _, v := range vertices {
			points = append(points, geometry.Point{X: float64(v.GetX()), Y: float64(v.GetY())})
		}
		px, _ := geometry.BoundingRect(points)
		return providers.NormalizeTopLeft(px, size)
	}

	if vertices := poly.GetNormalizedVertices(); len(vertices) > 0 {
		points := make([]geometry.Point, 0, len(vertices))
		for _, v := range vertices {
			points = append(points, geometry.Point{X: float64(v.GetX()), Y: float64(v.GetY())})
		}
		topLeft, _ := geometry.BoundingRect(points)
		return geometry.FlipNormalized(topLeft), nil
	}

	return geometry.Rect{}, fmt.Errorf("bounding poly has no vertices")
}

func paragraphText(paragraph *visionpb.Paragraph) string {
	var b strings.Builder
	for _, word := range paragraph.GetWords() {
		for _, symbol := range word.GetSymbols() {
			b.WriteString(symbol.GetText())
			b.WriteString(breakText(symbol))
		}
	}
	return strings.TrimSpace(b.String())
}

func wordText(word *visionpb.Word) string {
	var b strings.Builder
	for _, symbol := range word.GetSymbols() {
		b.WriteString(symbol.GetText())
	}
	return b.String()
}

func breakText(symbol *visionpb.Symbol) string {
	switch symbol.GetProperty().GetDetectedBreak().GetType() {
	case visionpb.TextAnnotation_DetectedBreak_SPACE,
		visionpb.TextAnnotation_DetectedBreak_SURE_SPACE,
		visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
		visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
		return " "
	case visionpb.TextAnnotation_DetectedBreak_HYPHEN:
		return "-"
	default:
		return ""
	}
}

// languageHints trims regional subtags Vision does not accept, keeping the
// script subtag for Chinese
func languageHints(langs []string) []string {
	hints := make([]string, 0, len(langs))
	seen := make(map[string]bool)
	for _, l := range langs {
		hint := l
		lower := strings.ToLower(l)
		switch {
		case lower == "zh-hans" || lower == "zh-cn":
			hint = "zh"
		case lower == "zh-hant" || lower == "zh-tw":
			hint = "zh-Hant"
		default:
			if i := strings.Index(l, "-"); i > 0 {
				hint = l[:i]
			}
		}
		if !seen[hint] {
			seen[hint] = true
			hints = append(hints, hint)
		}
	}
	return hints
}
