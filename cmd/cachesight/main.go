// cachesight — offline/online CPU-cache behavior analyzer.
//
// Fuses static source-level access-pattern facts and dynamic
// hardware-counter miss samples against a cache-hierarchy model to
// produce ranked optimization recommendations.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/milhud/cachesight/internal/model"
	"github.com/milhud/cachesight/internal/pipeline"
	"github.com/milhud/cachesight/internal/reportio"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "cachesight",
		Short:   "CPU-cache antipattern analyzer and recommendation engine",
		Version: version,
		Long: `cachesight — fuses static source-level access patterns, dynamic
hardware-counter miss samples and a cache-hierarchy model into a ranked
list of cache antipatterns and optimization recommendations.

It never measures counters or parses source itself: supply a JSON batch
of miss samples and/or static patterns plus a cache-model descriptor,
and cachesight runs them through the analysis pipeline.`,
	}

	rootCmd.AddCommand(newAnalyzeCmd(), newDiffCmd(), newMCPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		samplesPath     string
		staticPath      string
		cacheModelPath  string
		profileName     string
		outputPath      string
		aiPrompt        bool
		quiet           bool
		live            bool
		duration        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analysis pipeline over recorded samples and/or static patterns",
		Long: `Reads a cache-model descriptor (required) plus an optional batch of
miss samples and an optional batch of static access patterns, runs them
through the C2->C3->C6->C4->C5 pipeline, and writes a ranked report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(!quiet)

			cacheModel, err := loadCacheModel(cacheModelPath)
			if err != nil {
				return err
			}

			var samples []model.MissSample
			if samplesPath != "" {
				if err := readJSON(samplesPath, &samples); err != nil {
					return fmt.Errorf("samples: %w", err)
				}
			}

			var staticPatterns []model.StaticPattern
			if staticPath != "" {
				if err := readJSON(staticPath, &staticPatterns); err != nil {
					return fmt.Errorf("static patterns: %w", err)
				}
			}

			if live {
				liveSamples, err := captureLiveSamples(cmd.Context(), duration, prog)
				if err != nil {
					return fmt.Errorf("live sampling: %w", err)
				}
				samples = append(samples, liveSamples...)
			}

			prog.Log("analyzing: profile=%s samples=%d static_patterns=%d",
				profileName, len(samples), len(staticPatterns))

			core := pipeline.New(pipeline.ConfigForProfile(pipeline.Profile(profileName)))
			result, err := core.Analyze(samples, staticPatterns, cacheModel)
			if err != nil {
				return err
			}
			if result.CapacityReached {
				prog.Log("warning: hotspot capacity reached, some keys were dropped")
			}

			report := reportio.FromResult(result, time.Now())
			prog.Log("done: hotspots=%d classified=%d recommendations=%d",
				len(report.Hotspots), len(report.Classified), len(report.Recommendations))

			if aiPrompt {
				ctx := reportio.GenerateAIPrompt(report)
				fmt.Fprintln(os.Stderr, ctx.Prompt)
			}

			if outputPath == "-" || outputPath == "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			return reportio.WriteJSON(report, outputPath)
		},
	}

	cmd.Flags().StringVarP(&samplesPath, "samples", "I", "", "Path to a JSON []MissSample batch")
	cmd.Flags().StringVarP(&staticPath, "static-patterns", "D", "", "Path to a JSON []StaticPattern batch")
	cmd.Flags().StringVar(&cacheModelPath, "cache-model", "", "Path to the JSON CacheModel descriptor (required)")
	cmd.Flags().StringVar(&profileName, "threshold", "standard", "Analysis profile: quick, standard, thorough")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Output report path (- for stdout)")
	cmd.Flags().BoolVar(&aiPrompt, "ai-prompt", false, "Print an LLM-facing methodology prompt to stderr")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVar(&live, "live", false, "Sample live cache-miss events via eBPF instead of (or in addition to) --samples")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "How long to sample live cache-miss events when --live is set")
	cmd.MarkFlagRequired("cache-model")

	return cmd
}

func newDiffCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "diff <baseline.json> <current.json>",
		Short: "Compare two cachesight reports",
		Long:  "Produce a diff showing severity/recommendation-count deltas and antipattern-mix changes between two prior analyze() runs.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseline, err := reportio.LoadJSON(args[0])
			if err != nil {
				return fmt.Errorf("load baseline: %w", err)
			}
			current, err := reportio.LoadJSON(args[1])
			if err != nil {
				return fmt.Errorf("load current: %w", err)
			}

			d := reportio.Compare(baseline, current)

			if outputPath == "-" || outputPath == "" {
				fmt.Print(reportio.Format(d))
				return nil
			}
			data, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal diff: %w", err)
			}
			return os.WriteFile(outputPath, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Output diff path (- for human-readable stdout)")
	return cmd
}

func loadCacheModel(path string) (*model.CacheModel, error) {
	if path == "" {
		return nil, model.InvalidArgument("--cache-model is required")
	}
	var cm model.CacheModel
	if err := readJSON(path, &cm); err != nil {
		return nil, fmt.Errorf("cache model: %w", err)
	}
	return &cm, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
