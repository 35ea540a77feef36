package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textframe/internal/config"
)

// cfg is loaded before every command runs
var cfg = config.Default()

var RootCmd = &cobra.Command{
	Use:   "textframe",
	Short: "Recognize text in images and map the regions onto the displayed image",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		switch strings.ToUpper(ll) {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		handler := slog.New(slog.NewTextHandler(os.Stdout, opts))
		slog.SetDefault(handler)

		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, &loaded); err != nil {
			return err
		}
		cfg = loaded

		return nil
	},
}

func init() {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	flags := RootCmd.PersistentFlags()
	flags.String("log-level", ll, "The logging level for the command")
	flags.String("config", os.Getenv(config.EnvFile), "Path to a YAML config file")

	flags.String("provider", "", "OCR provider: google, azure, tesseract, applevision")
	flags.StringSlice("languages", nil, "Recognition languages in priority order (default zh-Hans,en-US)")
	flags.String("level", "", "Recognition level: accurate or fast")
	flags.Bool("language-correction", false, "Let the provider correct recognized words")
	flags.String("granularity", "", "Region granularity: line, word or block")
	flags.Duration("timeout", 0, "Timeout for one recognition request")
	flags.Float64("min-confidence", 0, "Drop candidates below this confidence")
	flags.Bool("clamp", false, "Clamp out-of-range boxes into the image instead of skipping them")
	flags.Bool("tesseract-binarize", false, "Threshold the image to black and white before running Tesseract")
	flags.Int("tesseract-threshold", 0, "Binarization cutoff for Tesseract, 0-255 (default 128)")
}

// applyFlags overrides the loaded configuration with flags set on the command line
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("provider") {
		if c.Provider, err = flags.GetString("provider"); err != nil {
			return err
		}
	}
	if flags.Changed("languages") {
		if c.Languages, err = flags.GetStringSlice("languages"); err != nil {
			return err
		}
	}
	if flags.Changed("level") {
		if c.RecognitionLevel, err = flags.GetString("level"); err != nil {
			return err
		}
	}
	if flags.Changed("language-correction") {
		if c.LanguageCorrection, err = flags.GetBool("language-correction"); err != nil {
			return err
		}
	}
	if flags.Changed("granularity") {
		if c.Granularity, err = flags.GetString("granularity"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		var d time.Duration
		if d, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
		c.Timeout = d
	}
	if flags.Changed("min-confidence") {
		if c.MinConfidence, err = flags.GetFloat64("min-confidence"); err != nil {
			return err
		}
	}
	if flags.Changed("clamp") {
		if c.Clamp, err = flags.GetBool("clamp"); err != nil {
			return err
		}
	}

	if flags.Changed("tesseract-binarize") {
		if c.Tesseract.Binarize, err = flags.GetBool("tesseract-binarize"); err != nil {
			return err
		}
	}
	if flags.Changed("tesseract-threshold") {
		if c.Tesseract.Threshold, err = flags.GetInt("tesseract-threshold"); err != nil {
			return err
		}
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
