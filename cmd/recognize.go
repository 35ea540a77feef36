package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/hocr"
	"github.com/lehigh-university-libraries/textframe/pkg/imagefile"
	"github.com/lehigh-university-libraries/textframe/pkg/pipeline"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

const formatHOCR = "hocr"

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Recognize text in images and print the text regions",
	Long: `Recognize text in one or more images and print every recognized region
with its frame in top-left image pixels.

With --fit the frames are mapped into a container of the given size the way
an aspect-fit image view would display the image.`,
	RunE: runRecognize,
}

var (
	recognizeImages      []string
	recognizeFormat      string
	recognizeFit         string
	recognizeOutput      string
	recognizeConcurrency int
)

// batchEntry is one image in multi-image JSON and YAML output
type batchEntry struct {
	Image   string              `json:"image" yaml:"image"`
	Size    geometry.Size       `json:"size" yaml:"size"`
	Results []textinfo.TextInfo `json:"results" yaml:"results"`
}

func init() {
	RootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().StringSliceVar(&recognizeImages, "image", nil, "Path to an input image; repeat for several (required)")
	recognizeCmd.Flags().StringVar(&recognizeFormat, "format", textinfo.FormatJSON, "Output format: json, yaml, hocr, text")
	recognizeCmd.Flags().StringVar(&recognizeFit, "fit", "", "Map frames into a WxH container (not with --format hocr)")
	recognizeCmd.Flags().StringVarP(&recognizeOutput, "output", "o", "", "Output path (prints to stdout if not specified)")
	recognizeCmd.Flags().IntVar(&recognizeConcurrency, "concurrency", 1, "Number of images recognized at once")

	if err := recognizeCmd.MarkFlagRequired("image"); err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runRecognize(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(recognizeFormat)
	if format == formatHOCR && len(recognizeImages) > 1 {
		return fmt.Errorf("hocr output takes a single image")
	}
	if format == formatHOCR && recognizeFit != "" {
		return fmt.Errorf("hocr output is always in image pixels and cannot be combined with --fit")
	}

	var container geometry.Size
	if recognizeFit != "" {
		var err error
		if container, err = geometry.ParseSize(recognizeFit); err != nil {
			return fmt.Errorf("invalid --fit: %w", err)
		}
	}

	provider, err := selectedProvider()
	if err != nil {
		return err
	}

	results, err := recognizeAll(cmd.Context(), provider, recognizeImages, recognizeConcurrency)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if recognizeOutput != "" {
		f, err := os.Create(recognizeOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return writeResults(w, recognizeImages, results, format, container)
}

// recognizeAll runs the pipeline over every path, at most limit at a time,
// and returns the results in input order
func recognizeAll(ctx context.Context, provider providers.Provider, paths []string, limit int) ([]textinfo.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if limit < 1 {
		limit = 1
	}

	results := make([]textinfo.Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			img, _, err := imagefile.Open(path)
			if err != nil {
				return err
			}
			result, err := pipeline.Run(ctx, provider, cfg.Recognition(), img, cfg.BuildOptions()...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(w io.Writer, paths []string, results []textinfo.Result, format string, container geometry.Size) error {
	if format == formatHOCR && (container.Width > 0 || container.Height > 0) {
		return fmt.Errorf("hocr output cannot be fitted to a container")
	}

	infos := make([][]textinfo.TextInfo, len(results))
	for i, result := range results {
		infos[i] = result.Infos
		if container.Width > 0 || container.Height > 0 {
			fitted, fit, err := result.Fitted(container)
			if err != nil {
				return fmt.Errorf("failed to fit %s: %w", paths[i], err)
			}
			slog.Debug("Fitted frames", "image", paths[i], "scale", fit.Scale, "offsetX", fit.OffsetX, "offsetY", fit.OffsetY)
			infos[i] = fitted
		}
	}

	if format == formatHOCR {
		if cfg.Granularity == providers.GranularityWord {
			_, err := io.WriteString(w, hocr.FromWords(results[0]))
			return err
		}
		_, err := io.WriteString(w, hocr.FromResult(results[0]))
		return err
	}

	if len(results) == 1 {
		return textinfo.Encode(w, infos[0], format)
	}

	switch format {
	case textinfo.FormatText:
		for i, path := range paths {
			if _, err := fmt.Fprintf(w, "%s: %s\n", path, textinfo.Texts(infos[i])); err != nil {
				return err
			}
		}
		return nil
	case "", textinfo.FormatJSON, textinfo.FormatYAML:
		entries := make([]batchEntry, len(results))
		for i, result := range results {
			entries[i] = batchEntry{Image: paths[i], Size: result.Image, Results: infos[i]}
		}
		if format == textinfo.FormatYAML {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(entries); err != nil {
				return err
			}
			return enc.Close()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
