package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/textframe/pkg/evaluate"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score recognized text against ground truth transcripts",
	Long: `Recognize every image listed in a CSV file and compare the joined text
with its transcript. The CSV has two columns, image and transcript; an
optional header row starting with "image" is skipped. Transcripts may be
local paths or http(s) URLs.

Results are written to evals/eval_<timestamp>.yaml.`,
	RunE: runEval,
}

var (
	evalCSVPath string
	evalDir     string
	evalRows    []int
	evalOutDir  string
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data (required)")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSliceVar(&evalRows, "rows", []int{}, "A list of row numbers to run the test on")
	evalCmd.Flags().StringVar(&evalOutDir, "evals-dir", "evals", "Directory the summary is written to")

	if err := evalCmd.MarkFlagRequired("csv"); err != nil {
		panic(err)
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	provider, err := selectedProvider()
	if err != nil {
		return err
	}

	config := evaluate.Config{
		Provider:  provider.Name(),
		CSVPath:   evalCSVPath,
		Dir:       evalDir,
		Languages: cfg.Languages,
		Level:     cfg.RecognitionLevel,
		TestRows:  evalRows,
		Timestamp: time.Now().Format("2006-01-02_15-04-05"),
	}

	results, err := evaluate.Run(cmd.Context(), provider, cfg.Recognition(), config, cfg.BuildOptions()...)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if err := os.MkdirAll(evalOutDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}
	outputPath := filepath.Join(evalOutDir, fmt.Sprintf("eval_%s.yaml", config.Timestamp))
	data, err := yaml.Marshal(evaluate.Summary{Config: config, Results: results})
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(out, "%s\tregions=%d\tchar=%.3f\tword=%.3f\twer=%.3f\n",
			r.Identifier, r.Regions, r.CharacterSimilarity, r.WordSimilarity, r.WordErrorRate)
	}
	if len(results) > 0 {
		avg := evaluate.Average(results)
		fmt.Fprintf(out, "\n=== SUMMARY STATISTICS ===\n")
		fmt.Fprintf(out, "Total Evaluations: %d\n", len(results))
		fmt.Fprintf(out, "Average Character Similarity: %.3f\n", avg.CharacterSimilarity)
		fmt.Fprintf(out, "Average Word Similarity: %.3f\n", avg.WordSimilarity)
		fmt.Fprintf(out, "Average Word Accuracy: %.3f\n", avg.WordAccuracy)
		fmt.Fprintf(out, "Average Word Error Rate: %.3f\n", avg.WordErrorRate)
	}
	fmt.Fprintf(out, "\nEvaluation completed. Results saved to: %s\n", outputPath)

	return nil
}
