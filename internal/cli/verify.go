package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/pipeline"
)

var (
	verifyFile    string
	verifyURL     string
	verifyTitle   string
	verifyJSON    bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [text]",
	Short: "Fact-check one article against the knowledge base",
	Long: `Verify extracts the factual claims of an article, retrieves the nearest
trusted statements for each and decides whether the article is REAL,
FAKE, NEUTRAL or UNDEFINED.

The article comes from the argument, a file (--file, "-" for stdin) or a
web page (--url).

Example:
  tinthat verify "Hãng hàng không Việt Nam vừa mua 5 phi cơ mới."
  tinthat verify --file bai-bao.txt --title "Tin nóng" --json
  tinthat verify --url https://vnexpress.net/some-article.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "read article content from file (- for stdin)")
	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "fetch and extract the article at this URL")
	verifyCmd.Flags().StringVar(&verifyTitle, "title", "", "article title")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the result as JSON")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	article, err := readArticle(ctx, a, args)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying %d characters", len(article.Text()))
		if article.URL != "" {
			fmt.Fprintf(os.Stderr, " from %s", article.URL)
		}
		fmt.Fprintln(os.Stderr)
	}

	result, err := a.pipeline.VerifyArticle(ctx, article)
	if err != nil {
		if unavailable(err) {
			return fmt.Errorf("verification temporarily unavailable: %w", err)
		}
		return fmt.Errorf("verify failed: %w", err)
	}

	if verifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(os.Stdout, result)
	return nil
}

func readArticle(ctx context.Context, a *app, args []string) (model.Article, error) {
	sources := 0
	for _, set := range []bool{len(args) == 1, verifyFile != "", verifyURL != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return model.Article{}, fmt.Errorf("give exactly one of: text argument, --file, --url")
	}

	switch {
	case verifyURL != "":
		fetcher := pipeline.NewFetcherFromConfig(a.cfg.HTTP)
		article, adapter, err := fetcher.FetchArticle(ctx, verifyURL)
		if err != nil {
			return model.Article{}, err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Extracted with %s adapter: %q\n", adapter, article.Title)
		}
		if verifyTitle != "" {
			article.Title = verifyTitle
		}
		return article, nil

	case verifyFile != "":
		var data []byte
		var err error
		if verifyFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(verifyFile)
		}
		if err != nil {
			return model.Article{}, fmt.Errorf("read article: %w", err)
		}
		return model.Article{Title: verifyTitle, Content: string(data)}, nil

	default:
		return model.Article{Title: verifyTitle, Content: args[0]}, nil
	}
}

func printResult(w io.Writer, res *model.VerificationResult) {
	fmt.Fprintf(w, "%s (confidence %.2f)\n", res.Status, res.Confidence)
	fmt.Fprintf(w, "%s\n", res.Explanation)
	if len(res.Details) == 0 {
		return
	}

	fmt.Fprintln(w)
	for i, d := range res.Details {
		fmt.Fprintf(w, "%2d. [%s %.2f via %s] %s\n", i+1, d.Verdict, d.Score, d.Source, d.Claim)
		if d.Evidence != "" {
			fmt.Fprintf(w, "    evidence #%d (distance %.3f): %s\n", d.EvidenceID, d.Distance, d.Evidence)
		}
		if d.Reason != "" {
			fmt.Fprintf(w, "    %s\n", strings.TrimSpace(d.Reason))
		}
	}
}
