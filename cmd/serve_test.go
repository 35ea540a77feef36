package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/textframe/pkg/display"
	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

type stubProvider struct {
	err error
}

func (s *stubProvider) Recognize(ctx context.Context, config providers.Config, img providers.Image) ([]textinfo.Observation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []textinfo.Observation{
		{Text: "hello", Confidence: 1, BoundingBox: geometry.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.1}},
		{Text: "", Confidence: 1, BoundingBox: geometry.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.1}},
	}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ValidateConfig(config providers.Config) error { return nil }

func newTestServer(p providers.Provider) *httptest.Server {
	s := &server{cycle: display.NewCycle(p, providers.Config{})}
	return httptest.NewServer(s.routes())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, url, field string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	resp, err := http.Post(url+"/api/recognize", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestServeRecognizeAndResults(t *testing.T) {
	ts := newTestServer(&stubProvider{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/results")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("results before upload = %d, want 404", resp.StatusCode)
	}

	resp = upload(t, ts.URL, "file", pngBytes(t, 200, 100))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var uploaded resultsResponse
	decodeBody(t, resp, &uploaded)

	if uploaded.Size != (geometry.Size{Width: 200, Height: 100}) {
		t.Errorf("image size = %s", uploaded.Size)
	}
	if len(uploaded.Results) != 1 || uploaded.Results[0].Text != "hello" {
		t.Fatalf("unexpected results %+v", uploaded.Results)
	}
	if len(uploaded.Skipped) != 1 {
		t.Errorf("expected the empty candidate to be skipped, got %+v", uploaded.Skipped)
	}
	if uploaded.Results[0].UniqueID == "" {
		t.Error("expected a unique ID")
	}

	resp, err = http.Get(ts.URL + "/api/results?fit=300x300")
	if err != nil {
		t.Fatal(err)
	}
	var fitted resultsResponse
	decodeBody(t, resp, &fitted)
	if fitted.Fit == nil || fitted.Fit.Scale != 1.5 || fitted.Fit.OffsetY != 75 {
		t.Errorf("unexpected fit %+v", fitted.Fit)
	}
	// frame {20,70,60,10} scaled by 1.5 and shifted down by 75
	if got := fitted.Results[0].Frame; got.X != 30 || got.Width != 90 || math.Abs(got.Y-180) > 1e-9 {
		t.Errorf("unexpected fitted frame %s", got)
	}
}

func TestServeAt(t *testing.T) {
	ts := newTestServer(&stubProvider{})
	defer ts.Close()

	resp := upload(t, ts.URL, "files", pngBytes(t, 200, 100))
	resp.Body.Close()

	tests := []struct {
		name   string
		query  string
		status int
		hits   int
	}{
		{"inside in image pixels", "x=30&y=75", http.StatusOK, 1},
		{"outside", "x=1&y=1", http.StatusOK, 0},
		{"inside in container pixels", "x=45&y=187&fit=300x300", http.StatusOK, 1},
		{"bad point", "x=a&y=1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/at?" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				resp.Body.Close()
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				resp.Body.Close()
				return
			}
			var hits []textinfo.TextInfo
			decodeBody(t, resp, &hits)
			if len(hits) != tt.hits {
				t.Errorf("expected %d hits, got %d", tt.hits, len(hits))
			}
		})
	}
}

func TestServeOverlayAndClear(t *testing.T) {
	ts := newTestServer(&stubProvider{})
	defer ts.Close()

	resp := upload(t, ts.URL, "file", pngBytes(t, 200, 100))
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/overlay.png?container=300x300&labels=true")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 300 {
		t.Errorf("overlay bounds = %v", img.Bounds())
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/results", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/overlay.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("overlay after clear = %d, want 404", resp.StatusCode)
	}
}

func TestServeErrors(t *testing.T) {
	ts := newTestServer(&stubProvider{err: errors.New("quota exceeded")})
	defer ts.Close()

	tests := []struct {
		name    string
		do      func() (*http.Response, error)
		status  int
		message string
	}{
		{
			name:    "wrong method",
			do:      func() (*http.Response, error) { return http.Get(ts.URL + "/api/recognize") },
			status:  http.StatusMethodNotAllowed,
			message: "Method not allowed",
		},
		{
			name: "missing file",
			do: func() (*http.Response, error) {
				return http.Post(ts.URL+"/api/recognize", "text/plain", strings.NewReader("x"))
			},
			status:  http.StatusBadRequest,
			message: "Failed to read file",
		},
		{
			name:    "not an image",
			do:      func() (*http.Response, error) { return upload(t, ts.URL, "file", []byte("nope")), nil },
			status:  http.StatusBadRequest,
			message: "failed to decode",
		},
		{
			name:    "provider failure",
			do:      func() (*http.Response, error) { return upload(t, ts.URL, "file", pngBytes(t, 10, 10)), nil },
			status:  http.StatusInternalServerError,
			message: "quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.do()
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body map[string]string
			decodeBody(t, resp, &body)
			if !strings.Contains(body["error"], tt.message) {
				t.Errorf("error = %q, want %q", body["error"], tt.message)
			}
		})
	}
}

func TestServeBadUploadClearsResults(t *testing.T) {
	ts := newTestServer(&stubProvider{})
	defer ts.Close()

	resp := upload(t, ts.URL, "file", pngBytes(t, 200, 100))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	resp = upload(t, ts.URL, "file", []byte("nope"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad upload status = %d, want 400", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/results")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("results after bad upload = %d, want 404", resp.StatusCode)
	}
}

func TestServeHealth(t *testing.T) {
	ts := newTestServer(&stubProvider{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected health body %v", body)
	}
}
