package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// execute runs the root command with fresh command-specific flag values
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TEXTFRAME_CONFIG", "")
	convertInvert = false
	fitBox = ""

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected geometry.Rect
	}{
		{
			name:     "normalized to pixels",
			args:     []string{"convert", "--box", "0.1,0.2,0.3,0.1", "--size", "200x100"},
			expected: geometry.Rect{X: 20, Y: 70, Width: 60, Height: 10},
		},
		{
			name:     "pixels to normalized",
			args:     []string{"convert", "--box", "20,70,60,10", "--size", "200x100", "--invert"},
			expected: geometry.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("convert failed: %v\n%s", err, out)
			}
			var got geometry.Rect
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("output is not a rect: %v\n%s", err, out)
			}
			for _, d := range []float64{got.X - tt.expected.X, got.Y - tt.expected.Y, got.Width - tt.expected.Width, got.Height - tt.expected.Height} {
				if math.Abs(d) > 1e-9 {
					t.Errorf("convert = %s, want %s", got, tt.expected)
					break
				}
			}
		})
	}

	if _, err := execute(t, "convert", "--box", "0.1,0.2", "--size", "200x100"); err == nil {
		t.Error("expected error for a short box")
	}
	if _, err := execute(t, "convert", "--box", "0.1,NaN,0.3,0.1", "--size", "200x100"); err == nil {
		t.Error("expected error for a NaN component")
	}
}

func TestFitCommand(t *testing.T) {
	out, err := execute(t, "fit", "--container", "300x300", "--image-size", "400x200", "--box", "20,70,60,10")
	if err != nil {
		t.Fatalf("fit failed: %v\n%s", err, out)
	}

	var got fitOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unexpected output: %v\n%s", err, out)
	}
	if got.Scale != 0.75 || got.OffsetX != 0 || got.OffsetY != 75 {
		t.Errorf("unexpected placement %+v", got)
	}
	if got.Displayed != (geometry.Rect{X: 0, Y: 75, Width: 300, Height: 150}) {
		t.Errorf("displayed = %s", got.Displayed)
	}
	if got.Box == nil || *got.Box != (geometry.Rect{X: 15, Y: 127.5, Width: 45, Height: 7.5}) {
		t.Errorf("box = %v", got.Box)
	}

	if _, err := execute(t, "fit", "--container", "0x300", "--image-size", "400x200"); err == nil {
		t.Error("expected error for an empty container")
	}
}

func TestWriteResults(t *testing.T) {
	result := textinfo.Result{
		Image: geometry.Size{Width: 400, Height: 200},
		Infos: []textinfo.TextInfo{
			{UniqueID: "a", Text: "hello", Frame: geometry.Rect{X: 20, Y: 70, Width: 60, Height: 10}},
			{UniqueID: "b", Text: "world", Frame: geometry.Rect{X: 100, Y: 70, Width: 60, Height: 10}},
		},
	}

	tests := []struct {
		name      string
		paths     []string
		results   []textinfo.Result
		format    string
		container geometry.Size
		contains  []string
	}{
		{
			name:     "single json",
			paths:    []string{"a.png"},
			results:  []textinfo.Result{result},
			format:   "json",
			contains: []string{`"uniqueID": "a"`, `"frame"`},
		},
		{
			name:      "single json fitted",
			paths:     []string{"a.png"},
			results:   []textinfo.Result{result},
			format:    "json",
			container: geometry.Size{Width: 300, Height: 300},
			contains:  []string{`"y": 127.5`},
		},
		{
			name:     "text",
			paths:    []string{"a.png"},
			results:  []textinfo.Result{result},
			format:   "text",
			contains: []string{"hello world\n"},
		},
		{
			name:     "hocr",
			paths:    []string{"a.png"},
			results:  []textinfo.Result{result},
			format:   "hocr",
			contains: []string{"ocr_line", "x_id a"},
		},
		{
			name:     "batch json",
			paths:    []string{"a.png", "b.png"},
			results:  []textinfo.Result{result, result},
			format:   "json",
			contains: []string{`"image": "a.png"`, `"image": "b.png"`},
		},
		{
			name:     "batch yaml",
			paths:    []string{"a.png", "b.png"},
			results:  []textinfo.Result{result, result},
			format:   "yaml",
			contains: []string{"- image: a.png", "uniqueID: b"},
		},
		{
			name:     "batch text",
			paths:    []string{"a.png", "b.png"},
			results:  []textinfo.Result{result, result},
			format:   "text",
			contains: []string{"a.png: hello world\n", "b.png: hello world\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeResults(&buf, tt.paths, tt.results, tt.format, tt.container); err != nil {
				t.Fatalf("writeResults() unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}

	var buf bytes.Buffer
	if err := writeResults(&buf, []string{"a", "b"}, []textinfo.Result{result, result}, "csv", geometry.Size{}); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := writeResults(&buf, []string{"a"}, []textinfo.Result{result}, "hocr", geometry.Size{Width: 300, Height: 300}); err == nil {
		t.Error("expected error for fitted hocr output")
	}
}

func TestRecognizeRejectsFittedHOCR(t *testing.T) {
	t.Cleanup(func() {
		recognizeFormat = textinfo.FormatJSON
		recognizeFit = ""
	})

	_, err := execute(t, "recognize", "--image", "missing.png", "--format", "hocr", "--fit", "300x300")
	if err == nil || !strings.Contains(err.Error(), "--fit") {
		t.Errorf("expected --fit to be rejected with hocr, got %v", err)
	}
}

func TestProvidersCommand(t *testing.T) {
	out, err := execute(t, "providers")
	if err != nil {
		t.Fatalf("providers failed: %v", err)
	}
	for _, name := range []string{"applevision", "azure", "google", "tesseract"} {
		if !strings.Contains(out, name) {
			t.Errorf("providers output missing %s:\n%s", name, out)
		}
	}
}

func TestTesseractFlags(t *testing.T) {
	t.Cleanup(func() {
		flags := RootCmd.PersistentFlags()
		_ = flags.Set("tesseract-binarize", "false")
		_ = flags.Set("tesseract-threshold", "128")
	})

	if _, err := execute(t, "providers", "--tesseract-binarize", "--tesseract-threshold", "90"); err != nil {
		t.Fatalf("providers failed: %v", err)
	}
	p := newTesseract()
	if !p.Binarize || p.Threshold != 90 {
		t.Errorf("tesseract provider = %+v, want binarize with threshold 90", p)
	}

	if _, err := execute(t, "providers", "--tesseract-threshold", "300"); err == nil {
		t.Error("expected error for an out of range threshold")
	}
}

func TestSelectedProviderAliases(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	tests := []struct {
		provider string
		expected string
	}{
		{"google", "google"},
		{"gcv", "google"},
		{"Apple", "applevision"},
		{"gosseract", "tesseract"},
	}
	for _, tt := range tests {
		cfg.Provider = tt.provider
		p, err := selectedProvider()
		if err != nil {
			t.Errorf("selectedProvider(%q) unexpected error: %v", tt.provider, err)
			continue
		}
		if p.Name() != tt.expected {
			t.Errorf("selectedProvider(%q) = %q, want %q", tt.provider, p.Name(), tt.expected)
		}
	}

	cfg.Provider = "openai"
	if _, err := selectedProvider(); err == nil || !strings.Contains(err.Error(), "choose one of") {
		t.Errorf("expected unknown provider error, got %v", err)
	}
}
