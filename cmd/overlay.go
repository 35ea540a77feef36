package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/imagefile"
	"github.com/lehigh-university-libraries/textframe/pkg/overlay"
	"github.com/lehigh-university-libraries/textframe/pkg/pipeline"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Draw the recognized text regions on top of an image",
	Long: `Recognize the text in an image and write a copy with a box around every
region. With --container the image is letterboxed into that size first and
the boxes follow it. With --results the boxes come from a JSON file written
by "textframe recognize" instead of a new recognition.`,
	RunE: runOverlay,
}

var (
	overlayImage     string
	overlayResults   string
	overlayContainer string
	overlayOutput    string
)

func init() {
	RootCmd.AddCommand(overlayCmd)

	overlayCmd.Flags().StringVar(&overlayImage, "image", "", "Path to input image file (required)")
	overlayCmd.Flags().StringVar(&overlayResults, "results", "", "JSON records to draw instead of recognizing the image")
	overlayCmd.Flags().StringVar(&overlayContainer, "container", "", "Letterbox the image into a WxH container")
	overlayCmd.Flags().Bool("labels", false, "Draw each region's text above its box")
	overlayCmd.Flags().String("stroke", "", "Box color as #rrggbb (default #ff0000)")
	overlayCmd.Flags().Int("width", 0, "Box stroke width in pixels (default 2)")
	overlayCmd.Flags().StringVarP(&overlayOutput, "output", "o", "", "Output PNG or JPEG path (required)")

	for _, name := range []string{"image", "output"} {
		if err := overlayCmd.MarkFlagRequired(name); err != nil {
			slog.Error("Unable to mark flag as required", "flag", name, "err", err)
			os.Exit(1)
		}
	}
}

func runOverlay(cmd *cobra.Command, args []string) error {
	opts, err := overlayOptions(cmd)
	if err != nil {
		return err
	}

	img, decoded, err := imagefile.Open(overlayImage)
	if err != nil {
		return err
	}

	var infos []textinfo.TextInfo
	if overlayResults != "" {
		f, err := os.Open(overlayResults)
		if err != nil {
			return fmt.Errorf("failed to open results: %w", err)
		}
		defer f.Close()
		if infos, err = textinfo.Decode(f); err != nil {
			return err
		}
	} else {
		provider, err := selectedProvider()
		if err != nil {
			return err
		}
		result, err := pipeline.Run(cmd.Context(), provider, cfg.Recognition(), img, cfg.BuildOptions()...)
		if err != nil {
			return err
		}
		infos = result.Infos
	}

	rendered, fit, err := overlay.Render(decoded, infos, opts)
	if err != nil {
		return err
	}

	out, err := os.Create(overlayOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(overlayOutput)), ".")
	if err := overlay.Encode(out, rendered, format); err != nil {
		return err
	}

	slog.Info("Wrote overlay", "output", overlayOutput, "count", len(infos), "scale", fit.Scale)
	return nil
}

// overlayOptions merges the overlay flags over the configured defaults
func overlayOptions(cmd *cobra.Command) (overlay.Options, error) {
	opts := cfg.OverlayOptions()
	flags := cmd.Flags()

	if overlayContainer != "" {
		container, err := geometry.ParseSize(overlayContainer)
		if err != nil {
			return opts, fmt.Errorf("invalid --container: %w", err)
		}
		opts.Container = container
	}
	if flags.Changed("labels") {
		opts.Labels, _ = flags.GetBool("labels")
	}
	if flags.Changed("stroke") {
		opts.Stroke, _ = flags.GetString("stroke")
	}
	if flags.Changed("width") {
		opts.Width, _ = flags.GetInt("width")
	}
	return opts, nil
}
