package providers

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

type stubProvider struct {
	name string
}

func (s stubProvider) Recognize(ctx context.Context, config Config, img Image) ([]textinfo.Observation, error) {
	return nil, nil
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) ValidateConfig(config Config) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(stubProvider{name: "Google"}, "googlevision", "gcv")
	r.Register(stubProvider{name: "azure"})

	tests := []struct {
		lookup   string
		expected string
	}{
		{"google", "Google"},
		{"GOOGLE", "Google"},
		{"GoogleVision", "Google"},
		{" gcv ", "Google"},
		{"AZURE", "azure"},
	}
	for _, tt := range tests {
		p, err := r.Get(tt.lookup)
		if err != nil {
			t.Errorf("Get(%q) unexpected error: %v", tt.lookup, err)
			continue
		}
		if p.Name() != tt.expected {
			t.Errorf("Get(%q) returned %q, want %q", tt.lookup, p.Name(), tt.expected)
		}
	}

	_, err := r.Get("tesseract")
	if !errors.Is(err, ErrUnknownProvider) || !strings.Contains(err.Error(), "azure, google") {
		t.Errorf("expected unknown provider error listing choices, got %v", err)
	}

	names := r.List()
	if len(names) != 2 || names[0] != "azure" || names[1] != "google" {
		t.Errorf("List() = %v", names)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	if len(c.Languages) != 2 || c.Languages[0] != "zh-Hans" || c.Languages[1] != "en-US" {
		t.Errorf("unexpected default languages: %v", c.Languages)
	}
	if c.RecognitionLevel != LevelAccurate {
		t.Errorf("unexpected default level: %s", c.RecognitionLevel)
	}
	if c.Granularity != GranularityLine {
		t.Errorf("unexpected default granularity: %s", c.Granularity)
	}
	if c.Timeout != 60*time.Second {
		t.Errorf("unexpected default timeout: %s", c.Timeout)
	}
	if c.LanguageCorrection {
		t.Error("language correction should default to off")
	}

	c.Languages[0] = "fr-FR"
	if DefaultLanguages[0] != "zh-Hans" {
		t.Error("WithDefaults() shares the DefaultLanguages backing array")
	}

	custom := Config{Languages: []string{"de-DE"}, RecognitionLevel: LevelFast}.WithDefaults()
	if custom.Languages[0] != "de-DE" || custom.RecognitionLevel != LevelFast {
		t.Errorf("WithDefaults() overwrote explicit values: %+v", custom)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"fast word", Config{RecognitionLevel: LevelFast, Granularity: GranularityWord}, false},
		{"bad level", Config{RecognitionLevel: "medium"}, true},
		{"bad granularity", Config{Granularity: "glyph"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestBoundsOfPolygon(t *testing.T) {
	r, err := BoundsOfPolygon([]float64{10, 20, 50, 18, 52, 40, 9, 42})
	if err != nil {
		t.Fatalf("BoundsOfPolygon() unexpected error: %v", err)
	}
	if r != (geometry.Rect{X: 9, Y: 18, Width: 43, Height: 24}) {
		t.Errorf("BoundsOfPolygon() = %s", r)
	}

	if _, err := BoundsOfPolygon([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for odd coordinate count")
	}
}

func TestNormalizeTopLeft(t *testing.T) {
	r, err := NormalizeTopLeft(geometry.Rect{X: 20, Y: 70, Width: 60, Height: 10}, geometry.Size{Width: 200, Height: 100})
	if err != nil {
		t.Fatalf("NormalizeTopLeft() unexpected error: %v", err)
	}
	expected := geometry.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.1}
	if math.Abs(r.X-expected.X) > 1e-9 || math.Abs(r.Y-expected.Y) > 1e-9 ||
		math.Abs(r.Width-expected.Width) > 1e-9 || math.Abs(r.Height-expected.Height) > 1e-9 {
		t.Errorf("NormalizeTopLeft() = %s, want %s", r, expected)
	}
}

func TestNormalizeTopLeftOvershoot(t *testing.T) {
	size := geometry.Size{Width: 200, Height: 100}

	r, err := NormalizeTopLeft(geometry.Rect{X: -2, Y: -5, Width: 52, Height: 25}, size)
	if err != nil {
		t.Fatalf("NormalizeTopLeft() unexpected error: %v", err)
	}
	if r.Normalized() {
		t.Errorf("overshooting region should stay outside the unit square, got %s", r)
	}
	if math.Abs(r.X+0.01) > 1e-9 || math.Abs(r.MaxY()-1.05) > 1e-9 {
		t.Errorf("NormalizeTopLeft() = %s", r)
	}

	if _, err := NormalizeTopLeft(geometry.Rect{Width: 1, Height: 1}, geometry.Size{}); !errors.Is(err, geometry.ErrInvalidBounds) {
		t.Errorf("expected ErrInvalidBounds, got %v", err)
	}
}

func TestTruncateBody(t *testing.T) {
	long := strings.Repeat("a", 600)
	if got := TruncateBody([]byte(long)); !strings.HasSuffix(got, "... (truncated)") || len(got) != 500+len("... (truncated)") {
		t.Errorf("TruncateBody() default limit not applied: %d", len(got))
	}
	if got := TruncateBody([]byte("short"), 10); got != "short" {
		t.Errorf("TruncateBody() = %q", got)
	}
	if got := TruncateBody([]byte("abcdef"), 3); got != "abc... (truncated)" {
		t.Errorf("TruncateBody() = %q", got)
	}
}
