package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/textframe/internal/utils"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Run submits img to provider once and converts the observations into
// pixel-space records. A provider failure is returned as an error; candidates
// the builder cannot use are logged and skipped.
func Run(ctx context.Context, provider providers.Provider, config providers.Config, img providers.Image, opts ...textinfo.Option) (textinfo.Result, error) {
	if provider == nil {
		return textinfo.Result{}, errors.New("no provider")
	}
	if !img.Size.Valid() {
		return textinfo.Result{}, fmt.Errorf("image %s has no usable size %s", img.Path, img.Size)
	}

	config = config.WithDefaults()
	if err := provider.ValidateConfig(config); err != nil {
		return textinfo.Result{}, fmt.Errorf("invalid %s configuration: %w", provider.Name(), err)
	}

	start := time.Now()
	observations, err := provider.Recognize(ctx, config, img)
	if err != nil {
		return textinfo.Result{}, fmt.Errorf("%s recognition failed: %w", provider.Name(), utils.MaskSensitiveError(err))
	}

	result := textinfo.Build(observations, img.Size, opts...)
	for _, r := range result.Skipped {
		slog.Warn("Skipping text candidate", "image", img.Path, "index", r.Index, "text", r.Text, "reason", r.Reason)
	}
	slog.Info("Recognized text",
		"image", img.Path,
		"provider", provider.Name(),
		"count", len(result.Infos),
		"skipped", len(result.Skipped),
		"duration", time.Since(start))

	return result, nil
}
