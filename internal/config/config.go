package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/textframe/pkg/overlay"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// EnvFile names the environment variable holding the config file path
const EnvFile = "TEXTFRAME_CONFIG"

// Config is the file and environment configuration shared by all commands
type Config struct {
	Provider           string        `yaml:"provider"`
	Languages          []string      `yaml:"languages"`
	RecognitionLevel   string        `yaml:"recognition_level"`
	LanguageCorrection bool          `yaml:"language_correction"`
	Granularity        string        `yaml:"granularity"`
	Timeout            time.Duration `yaml:"timeout"`
	MinConfidence      float64       `yaml:"min_confidence"`
	Clamp              bool          `yaml:"clamp"`
	Overlay            Overlay       `yaml:"overlay"`
	Server             Server        `yaml:"server"`
	Tesseract          Tesseract     `yaml:"tesseract"`
}

type Overlay struct {
	Stroke string `yaml:"stroke"`
	Width  int    `yaml:"width"`
	Labels bool   `yaml:"labels"`
}

type Server struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Tesseract holds the local provider's preprocessing
type Tesseract struct {
	Binarize  bool `yaml:"binarize"`
	Threshold int  `yaml:"threshold"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Provider:         "google",
		Languages:        append([]string(nil), providers.DefaultLanguages...),
		RecognitionLevel: providers.LevelAccurate,
		Granularity:      providers.GranularityLine,
		Timeout:          60 * time.Second,
		Overlay: Overlay{
			Stroke: overlay.DefaultStroke,
			Width:  2,
		},
		Server: Server{
			Host: "localhost",
			Port: "8888",
		},
		Tesseract: Tesseract{
			Threshold: 128,
		},
	}
}

// Load reads the defaults, then the YAML file at path (or $TEXTFRAME_CONFIG),
// then TEXTFRAME_* environment overrides. A missing file is only an error
// when a path was given.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TEXTFRAME_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("TEXTFRAME_LANGUAGES"); v != "" {
		c.Languages = splitList(v)
	}
	if v := os.Getenv("TEXTFRAME_RECOGNITION_LEVEL"); v != "" {
		c.RecognitionLevel = v
	}
	if v := os.Getenv("TEXTFRAME_LANGUAGE_CORRECTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTFRAME_LANGUAGE_CORRECTION: %w", err)
		}
		c.LanguageCorrection = b
	}
	if v := os.Getenv("TEXTFRAME_GRANULARITY"); v != "" {
		c.Granularity = v
	}
	if v := os.Getenv("TEXTFRAME_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTFRAME_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("TEXTFRAME_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TEXTFRAME_MIN_CONFIDENCE: %w", err)
		}
		c.MinConfidence = f
	}
	if v := os.Getenv("TEXTFRAME_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TEXTFRAME_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("TEXTFRAME_TESSERACT_BINARIZE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTFRAME_TESSERACT_BINARIZE: %w", err)
		}
		c.Tesseract.Binarize = b
	}
	if v := os.Getenv("TEXTFRAME_TESSERACT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTFRAME_TESSERACT_THRESHOLD: %w", err)
		}
		c.Tesseract.Threshold = n
	}
	return nil
}

// Validate checks the fields the providers do not
func (c Config) Validate() error {
	if err := c.Recognition().Validate(); err != nil {
		return err
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %g", c.MinConfidence)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Overlay.Width < 0 {
		return errors.New("overlay width must not be negative")
	}
	if c.Tesseract.Threshold < 0 || c.Tesseract.Threshold > 255 {
		return fmt.Errorf("tesseract threshold must be between 0 and 255, got %d", c.Tesseract.Threshold)
	}
	return nil
}

// Recognition returns the provider request configuration
func (c Config) Recognition() providers.Config {
	return providers.Config{
		Provider:           c.Provider,
		Languages:          append([]string(nil), c.Languages...),
		RecognitionLevel:   c.RecognitionLevel,
		LanguageCorrection: c.LanguageCorrection,
		Granularity:        c.Granularity,
		Timeout:            c.Timeout,
	}
}

// BuildOptions returns the conversion options for textinfo.Build
func (c Config) BuildOptions() []textinfo.Option {
	return []textinfo.Option{
		textinfo.WithClamp(c.Clamp),
		textinfo.WithMinConfidence(c.MinConfidence),
	}
}

// OverlayOptions returns the render options, without a container
func (c Config) OverlayOptions() overlay.Options {
	return overlay.Options{
		Stroke: c.Overlay.Stroke,
		Width:  c.Overlay.Width,
		Labels: c.Overlay.Labels,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
