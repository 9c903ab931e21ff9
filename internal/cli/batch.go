package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verity/internal/worker"
)

var (
	concurrency  int
	outputPath   string
	batchTimeout time.Duration
	batchForce   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many thoughts from a file in parallel",
	Long: `Batch verifies one thought per line:
- Lines are JSON thoughts or plain text
- Blank lines and lines starting with # are skipped
- Thoughts are processed in parallel with a configurable worker count
- One JSON result per line is written in input order

Example:
  verity batch thoughts.jsonl
  verity batch thoughts.txt --concurrency 8 --output results.jsonl
  verity batch thoughts.txt --timeout 5m --force`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write JSON lines to this file instead of stdout")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "skip reuse and run the tools for every thought")
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Verity Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Memory:       %s\n", cfg.Memory.Backend)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	st, err := buildStack(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer st.Close()

	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		out = f
	}

	processor := worker.NewBatchProcessor(st.pipeline, concurrency, cfg.Tools.RatePerSecond, cfg.Tools.Burst)

	fmt.Fprintf(os.Stderr, "⚙️  Verifying thoughts with %d workers...\n", concurrency)
	results, err := processor.ProcessFile(ctx, file, batchForce)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	enc := json.NewEncoder(out)
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Thought.ID, result.Error)
		} else {
			successCount++
			fmt.Fprintf(os.Stderr, "✓ %s: %s (%.2f)\n", result.Thought.ID, result.Report.Status, result.Report.Confidence)
		}
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d thoughts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputPath)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
