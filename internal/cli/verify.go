package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/verify"
)

var (
	verifyFile    string
	verifySession string
	verifyType    string
	verifyForce   bool
	verifyJSON    bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [text]",
	Short: "Verify a single thought",
	Long: `Verify runs one thought through the pipeline:
- Evaluate inline arithmetic on the fast path
- Reuse a previous verification of a similar thought when one is trusted
- Otherwise run the verification tools and aggregate their verdicts

Example:
  verity verify "Paris is the capital of France with 2 millions inhabitants"
  verity verify --file thought.txt --session s1 --type conclusion
  verity verify "2 + 2 = 5" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "read the thought text from a file")
	verifyCmd.Flags().StringVar(&verifySession, "session", "", "session the thought belongs to")
	verifyCmd.Flags().StringVar(&verifyType, "type", string(model.ThoughtRegular), "thought type (regular, hypothesis, conclusion, revision, meta_reflection)")
	verifyCmd.Flags().BoolVar(&verifyForce, "force", false, "skip reuse and run the tools")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the report as JSON")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	text, err := thoughtText(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	st, err := buildStack(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer st.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Memory: %s\n", cfg.Memory.Backend)
		fmt.Fprintf(os.Stderr, "Tools: %s\n", strings.Join(st.tools, ", "))
		fmt.Fprintf(os.Stderr, "\n")
	}

	thought := &model.Thought{
		ID:        "cli",
		Content:   text,
		Type:      model.ThoughtType(verifyType),
		SessionID: verifySession,
	}
	report, err := st.pipeline.Verify(ctx, thought, verifyForce)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if verifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	return nil
}

// thoughtText takes the thought from the argument, --file or stdin
func thoughtText(args []string) (string, error) {
	var text string
	switch {
	case verifyFile != "":
		data, err := os.ReadFile(verifyFile)
		if err != nil {
			return "", fmt.Errorf("read thought: %w", err)
		}
		text = string(data)
	case len(args) == 1:
		text = args[0]
	default:
		return "", fmt.Errorf("provide the thought as an argument or with --file")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty thought")
	}
	return text, nil
}

func printReport(r *verify.Report) {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Verification Report")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  Stage:       %s\n", r.Stage)
	fmt.Printf("  Status:      %s\n", r.Status)
	fmt.Printf("  Confidence:  %.2f\n", r.Confidence)
	fmt.Printf("  Verified:    %v\n", r.IsVerified)
	fmt.Println()

	if r.AnnotatedText != "" {
		fmt.Println(r.AnnotatedText)
		fmt.Println()
	}

	if r.Preliminary != nil {
		for _, c := range r.Preliminary.Calculations {
			mark := "✓"
			if !c.IsCorrect && !c.Pending {
				mark = "✗"
			}
			fmt.Printf("%s %s (%s)\n", mark, c.Original, c.Verified)
		}
	}

	if r.Previous != nil && r.Stage == verify.StagePrevious {
		fmt.Printf("✓ Reused a previous verification (similarity %.2f)\n", r.Previous.Similarity)
	}

	if r.Result != nil {
		for _, step := range r.Result.VerificationSteps {
			fmt.Printf("✓ %s\n", step)
		}
		for _, c := range r.Result.Contradictions {
			fmt.Printf("Warning: %s\n", c)
		}
		if len(r.Result.Sources) > 0 {
			fmt.Println()
			fmt.Println("Sources:")
			for _, s := range r.Result.Sources {
				fmt.Printf("  - %s\n", s)
			}
		}
		if r.Result.Notes != "" {
			fmt.Println()
			fmt.Println(r.Result.Notes)
		}
	}
	fmt.Println()
}
