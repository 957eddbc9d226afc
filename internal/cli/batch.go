package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/pipeline"
	"github.com/ppiankov/tinthat/internal/worker"
)

var (
	concurrency  int
	outputPath   string
	batchTimeout time.Duration
	allowFetch   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many articles from a JSONL file in parallel",
	Long: `Batch verifies articles concurrently:
- Read one article per line: {"id", "url", "title", "content"} or a bare URL
- Verify articles in parallel with a configurable worker count
- Write one JSON result per line, in input order

Example:
  tinthat batch articles.jsonl
  tinthat batch articles.jsonl --concurrency 8 --output results.jsonl
  tinthat batch urls.txt --fetch`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers (0 uses concurrency.workers)")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "output JSONL path (- for stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&allowFetch, "fetch", false, "download articles given only as URLs")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputPath)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	var fetcher worker.ArticleFetcher
	if allowFetch {
		fetcher = pipeline.NewFetcherFromConfig(a.cfg.HTTP)
	}
	processor := worker.NewBatchProcessor(a.pipeline, fetcher, workers)

	start := time.Now()
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := io.Writer(os.Stdout)
	if outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	counts := make(map[model.Status]int)
	failures := 0
	enc := json.NewEncoder(out)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		if res.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ #%d %s: %v\n", res.Index+1, label(res), res.Error)
			continue
		}
		counts[res.Result.Status]++
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ #%d %s: %s (%.2f)\n", res.Index+1, label(res), res.Result.Status, res.Result.Confidence)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d articles in %v\n", len(results), time.Since(start).Round(time.Millisecond))
	for _, s := range []model.Status{model.StatusReal, model.StatusFake, model.StatusNeutral, model.StatusUndefined} {
		fmt.Fprintf(os.Stderr, "  %-10s  %d\n", s+":", counts[s])
	}
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failures)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func label(res *worker.VerifyResult) string {
	switch {
	case res.ID != "":
		return res.ID
	case res.URL != "":
		return res.URL
	}
	return "article"
}
