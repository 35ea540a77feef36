package evaluate

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/textframe/pkg/imagefile"
	"github.com/lehigh-university-libraries/textframe/pkg/pipeline"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Config describes one evaluation run
type Config struct {
	Provider  string   `yaml:"provider"`
	CSVPath   string   `yaml:"csv_path"`
	Dir       string   `yaml:"dir"`
	Languages []string `yaml:"languages"`
	Level     string   `yaml:"recognition_level"`
	TestRows  []int    `yaml:"rows"`
	Timestamp string   `yaml:"timestamp"`
}

// Result is the outcome for one CSV row
type Result struct {
	Identifier     string `yaml:"identifier"`
	ImagePath      string `yaml:"image_path"`
	TranscriptPath string `yaml:"transcript_path"`
	Recognized     string `yaml:"recognized"`
	Regions        int    `yaml:"regions"`
	Skipped        int    `yaml:"skipped"`
	Metrics        `yaml:",inline"`
}

// Summary is what gets written to the evals directory
type Summary struct {
	Config  Config   `yaml:"config"`
	Results []Result `yaml:"results"`
}

// Run recognizes every selected row of the CSV and scores the joined text
// against its transcript. Rows that fail are logged and left out.
func Run(ctx context.Context, provider providers.Provider, rc providers.Config, config Config, opts ...textinfo.Option) ([]Result, error) {
	file, err := os.Open(config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// skip header row if present
	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "image") {
		dataRows = records[1:]
	}

	var results []Result
	for i, row := range dataRows {
		if len(config.TestRows) > 0 && !slices.Contains(config.TestRows, i) {
			slog.Debug("Skipping row", "row", i+1)
			continue
		}
		if len(row) < 2 {
			slog.Warn("Insufficient columns", "row", i+1)
			continue
		}

		result, err := runRow(ctx, provider, rc, config.Dir, row, opts...)
		if err != nil {
			slog.Error("Error processing row", "row", i+1, "err", err)
			continue
		}
		results = append(results, result)
	}

	return results, nil
}

func runRow(ctx context.Context, provider providers.Provider, rc providers.Config, dir string, row []string, opts ...textinfo.Option) (Result, error) {
	imagePath := filepath.Join(dir, strings.TrimSpace(row[0]))
	transcriptPath := strings.TrimSpace(row[1])
	if !isURL(transcriptPath) {
		transcriptPath = filepath.Join(dir, transcriptPath)
	}

	groundTruth, err := ReadText(ctx, transcriptPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	img, _, err := imagefile.Open(imagePath)
	if err != nil {
		return Result{}, err
	}

	recognized, err := pipeline.Run(ctx, provider, rc, img, opts...)
	if err != nil {
		return Result{}, err
	}

	text := textinfo.Texts(recognized.Infos)
	return Result{
		Identifier:     filepath.Base(imagePath),
		ImagePath:      imagePath,
		TranscriptPath: transcriptPath,
		Recognized:     text,
		Regions:        len(recognized.Infos),
		Skipped:        len(recognized.Skipped),
		Metrics:        Calculate(groundTruth, text),
	}, nil
}

// ReadText reads a local file or fetches an http(s) URL
func ReadText(ctx context.Context, path string) (string, error) {
	if isURL(path) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetching %s returned status %d", path, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Average returns the mean of each similarity measure over results
func Average(results []Result) Metrics {
	var avg Metrics
	if len(results) == 0 {
		return avg
	}
	for _, r := range results {
		avg.CharacterSimilarity += r.CharacterSimilarity
		avg.WordSimilarity += r.WordSimilarity
		avg.WordAccuracy += r.WordAccuracy
		avg.WordErrorRate += r.WordErrorRate
	}
	count := float64(len(results))
	avg.CharacterSimilarity /= count
	avg.WordSimilarity /= count
	avg.WordAccuracy /= count
	avg.WordErrorRate /= count
	return avg
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
