package applevision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// DefaultHelper is the command run when APPLE_VISION_HELPER is not set
const DefaultHelper = "vision-ocr"

// Runner executes the helper and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Provider implements recognition through a helper process that wraps
// VNRecognizeTextRequest on macOS. The helper prints Vision's own
// normalized, bottom-left-origin boxes so no conversion happens here.
type Provider struct {
	run Runner
}

// candidate is one element of the helper's JSON output
type candidate struct {
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
	BoundingBox []float64 `json:"bounding_box"`
}

// New creates a new Apple Vision provider
func New() *Provider {
	return &Provider{run: execRunner}
}

// NewWithRunner creates a provider with a custom runner, for tests
func NewWithRunner(run Runner) *Provider {
	return &Provider{run: run}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "applevision"
}

// ValidateConfig checks that the helper can be found
func (p *Provider) ValidateConfig(config providers.Config) error {
	if _, err := exec.LookPath(helper()); err != nil {
		return fmt.Errorf("apple vision helper %q not found (set APPLE_VISION_HELPER): %w", helper(), err)
	}
	return config.Validate()
}

// Recognize writes the image to a temporary file and runs the helper on it
func (p *Provider) Recognize(ctx context.Context, config providers.Config, img providers.Image) ([]textinfo.Observation, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	config = config.WithDefaults()

	tmp, err := os.CreateTemp("", "textframe-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	output, err := p.run(ctx, helper(), Args(config, tmp.Name())...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("apple vision helper failed: %s", providers.TruncateBody(exitErr.Stderr))
		}
		return nil, fmt.Errorf("apple vision helper failed: %w", err)
	}

	return Parse(output)
}

// Args builds the helper command line
func Args(config providers.Config, imagePath string) []string {
	return []string{
		"--image", imagePath,
		"--level", config.RecognitionLevel,
		"--languages", providers.JoinLanguages(config.Languages),
		"--language-correction=" + strconv.FormatBool(config.LanguageCorrection),
	}
}

// Parse decodes the helper output. Candidates without a four element box
// are kept with an empty box so the caller can report them.
func Parse(output []byte) ([]textinfo.Observation, error) {
	var candidates []candidate
	if err := json.Unmarshal(bytes.TrimSpace(output), &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse helper output: %w - body: %s", err, providers.TruncateBody(output))
	}

	observations := make([]textinfo.Observation, 0, len(candidates))
	for _, c := range candidates {
		obs := textinfo.Observation{Text: c.Text, Confidence: c.Confidence}
		if len(c.BoundingBox) == 4 {
			obs.BoundingBox = geometry.Rect{X: c.BoundingBox[0], Y: c.BoundingBox[1], Width: c.BoundingBox[2], Height: c.BoundingBox[3]}
		} else {
			obs.BoundingBox = geometry.Rect{X: -1, Y: -1}
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func helper() string {
	if h := os.Getenv("APPLE_VISION_HELPER"); h != "" {
		return h
	}
	return DefaultHelper
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
