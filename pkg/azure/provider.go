package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Provider implements the Azure Computer Vision Read provider
type Provider struct {
	// PollInterval is the delay between operation status checks
	PollInterval time.Duration
	// MaxAttempts bounds the number of status checks
	MaxAttempts int
}

// ReadResponse is the body of a Read operation status request (v3.2)
type ReadResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []ReadResult `json:"readResults"`
	} `json:"analyzeResult"`
}

// ReadResult is one analyzed page
type ReadResult struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
	Lines  []Line  `json:"lines"`
}

// Line is a recognized text line with its polygon
type Line struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Words       []Word    `json:"words"`
}

// Word is a recognized word with its polygon
type Word struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
}

// New creates a new Azure provider
func New() *Provider {
	return &Provider{
		PollInterval: time.Second,
		MaxAttempts:  30,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "azure"
}

// ValidateConfig validates the Azure configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	return config.Validate()
}

// Recognize submits the image to the Azure Computer Vision Read API and
// polls until the analysis finishes
func (p *Provider) Recognize(ctx context.Context, config providers.Config, img providers.Image) ([]textinfo.Observation, error) {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	config = config.WithDefaults()

	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", strings.TrimSuffix(endpoint, "/"))
	if lang := azureLanguage(config.Languages); lang != "" {
		readURL += "?language=" + lang
	}

	req, err := http.NewRequestWithContext(ctx, "POST", readURL, bytes.NewReader(img.Data))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	client := &http.Client{Timeout: config.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return nil, fmt.Errorf("no operation location returned from Azure OCR")
	}

	result, err := p.poll(ctx, client, operationURL, apiKey)
	if err != nil {
		return nil, err
	}

	return Observations(result, config.Granularity), nil
}

func (p *Provider) poll(ctx context.Context, client *http.Client, operationURL, apiKey string) (*ReadResponse, error) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 30
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, "GET", operationURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			slog.Debug("Azure OCR status check failed", "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}

		var result ReadResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w - body: %s", err, providers.TruncateBody(body))
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			return nil, fmt.Errorf("azure OCR analysis failed")
		}
		// keep polling on "running" and "notStarted"
	}

	return nil, fmt.Errorf("azure OCR operation timed out")
}

// Observations flattens a Read result into normalized observations. Read has
// no block level, so block granularity reports lines.
func Observations(result *ReadResponse, granularity string) []textinfo.Observation {
	var observations []textinfo.Observation
	if result == nil {
		return observations
	}

	for _, page := range result.AnalyzeResult.ReadResults {
		size := geometry.Size{Width: page.Width, Height: page.Height}

		for _, line := range page.Lines {
			if granularity == providers.GranularityWord {
				for _, word := range line.Words {
					if obs, ok := observation(word.Text, word.Confidence, word.BoundingBox, size); ok {
						observations = append(observations, obs)
					}
				}
				continue
			}

			if obs, ok := observation(line.Text, lineConfidence(line), line.BoundingBox, size); ok {
				observations = append(observations, obs)
			}
		}
	}

	return observations
}

func observation(text string, confidence float64, polygon []float64, size geometry.Size) (textinfo.Observation, bool) {
	px, err := providers.BoundsOfPolygon(polygon)
	if err != nil {
		slog.Debug("Skipping Azure region without polygon", "text", text, "err", err)
		return textinfo.Observation{}, false
	}
	norm, err := providers.NormalizeTopLeft(px, size)
	if err != nil {
		slog.Debug("Skipping Azure region", "text", text, "err", err)
		return textinfo.Observation{}, false
	}
	return textinfo.Observation{Text: text, Confidence: confidence, BoundingBox: norm}, true
}

func lineConfidence(line Line) float64 {
	if len(line.Words) == 0 {
		return 1
	}
	var sum float64
	for _, w := range line.Words {
		sum += w.Confidence
	}
	return sum / float64(len(line.Words))
}

// azureLanguage picks the first hint Read understands. Read takes a single
// language; zh-Hans and en are passed through, regional English is trimmed.
func azureLanguage(langs []string) string {
	for _, l := range langs {
		switch {
		case strings.EqualFold(l, "zh-Hans"), strings.EqualFold(l, "zh-Hant"):
			return l
		case strings.HasPrefix(strings.ToLower(l), "en"):
			return "en"
		}
	}
	return ""
}
