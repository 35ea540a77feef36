package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textframe/pkg/display"
	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/imagefile"
	"github.com/lehigh-university-libraries/textframe/pkg/overlay"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition web service",
	Long: `Start a web server that recognizes uploaded images. Every upload replaces
the records held for the previous image.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "Port to run the web server on (default 8888)")
	serveCmd.Flags().String("host", "", "Host to bind the web server to (default localhost)")
}

// server exposes one display cycle over HTTP
type server struct {
	cycle   *display.Cycle
	overlay overlay.Options
}

// resultsResponse is the body of the recognize and results endpoints
type resultsResponse struct {
	Image   string               `json:"image_path"`
	Size    geometry.Size        `json:"image"`
	Results []textinfo.TextInfo  `json:"results"`
	Skipped []textinfo.Rejection `json:"skipped,omitempty"`
	Fit     *geometry.Fit        `json:"fit,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	host, port := cfg.Server.Host, cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetString("port")
	}

	provider, err := selectedProvider()
	if err != nil {
		return err
	}
	if err := provider.ValidateConfig(cfg.Recognition()); err != nil {
		return fmt.Errorf("provider configuration validation failed: %w", err)
	}

	s := &server{
		cycle:   display.NewCycle(provider, cfg.Recognition(), cfg.BuildOptions()...),
		overlay: cfg.OverlayOptions(),
	}

	addr := net.JoinHostPort(host, port)
	slog.Info("Starting textframe service", "url", fmt.Sprintf("http://%s", addr), "provider", provider.Name())

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/recognize", s.handleRecognize)
	mux.HandleFunc("/api/results", s.handleResults)
	mux.HandleFunc("/api/at", s.handleAt)
	mux.HandleFunc("/api/overlay.png", s.handleOverlay)
	mux.HandleFunc("/healthz", handleHealth)
	return mux
}

func (s *server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imagefile.MaxBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		// fall back to the multi-file field
		file, header, err = r.FormFile("files")
		if err != nil {
			respondWithError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	img, decoded, err := imagefile.Decode(file, header.Filename)
	if err != nil {
		// a new image was chosen, so the old records no longer apply
		s.cycle.Clear()
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := s.cycle.Select(r.Context(), img, decoded)
	if err != nil {
		slog.Error("Recognition failed", "image", header.Filename, "err", err)
		respondWithError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, resultsResponse{
		Image:   snap.Path,
		Size:    snap.Result.Image,
		Results: snap.Result.Infos,
		Skipped: snap.Result.Skipped,
	})
}

func (s *server) handleResults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, ok := s.cycle.Current()
		if !ok {
			respondWithError(w, "No image has been recognized", http.StatusNotFound)
			return
		}

		resp := resultsResponse{
			Image:   snap.Path,
			Size:    snap.Result.Image,
			Results: snap.Result.Infos,
			Skipped: snap.Result.Skipped,
		}
		if v := r.URL.Query().Get("fit"); v != "" {
			container, err := geometry.ParseSize(v)
			if err != nil {
				respondWithError(w, "Invalid fit: "+err.Error(), http.StatusBadRequest)
				return
			}
			infos, fit, err := snap.Result.Fitted(container)
			if err != nil {
				respondWithError(w, err.Error(), http.StatusBadRequest)
				return
			}
			resp.Results = infos
			resp.Fit = &fit
		}
		respondWithJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		s.cycle.Clear()
		w.WriteHeader(http.StatusNoContent)
	default:
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAt returns the records under a point. With fit the point is in
// container coordinates and is mapped back to image pixels first.
func (s *server) handleAt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.cycle.Current()
	if !ok {
		respondWithError(w, "No image has been recognized", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		respondWithError(w, "Invalid point: "+err.Error(), http.StatusBadRequest)
		return
	}

	p := geometry.Point{X: x, Y: y}
	if v := q.Get("fit"); v != "" {
		container, err := geometry.ParseSize(v)
		if err != nil {
			respondWithError(w, "Invalid fit: "+err.Error(), http.StatusBadRequest)
			return
		}
		fit, err := geometry.AspectFit(container, snap.Result.Image)
		if err != nil {
			respondWithError(w, err.Error(), http.StatusBadRequest)
			return
		}
		p = fit.InvertPoint(p)
	}

	hits := snap.Result.At(p)
	if hits == nil {
		hits = []textinfo.TextInfo{}
	}
	respondWithJSON(w, http.StatusOK, hits)
}

func (s *server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.cycle.Current()
	if !ok || snap.Image == nil {
		respondWithError(w, "No image has been recognized", http.StatusNotFound)
		return
	}

	opts := s.overlay
	q := r.URL.Query()
	if v := q.Get("container"); v != "" {
		container, err := geometry.ParseSize(v)
		if err != nil {
			respondWithError(w, "Invalid container: "+err.Error(), http.StatusBadRequest)
			return
		}
		opts.Container = container
	}
	if v := q.Get("labels"); v != "" {
		labels, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, "Invalid labels: "+err.Error(), http.StatusBadRequest)
			return
		}
		opts.Labels = labels
	}

	rendered, _, err := overlay.Render(snap.Image, snap.Result.Infos, opts)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := overlay.Encode(w, rendered, "png"); err != nil {
		slog.Error("Failed to write overlay", "err", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "err", err)
	}
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
