package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tinthat/internal/extract"
	"github.com/ppiankov/tinthat/internal/model"
)

var (
	kbLabel     string
	kbArticleID string
	kbTimeout   time.Duration
)

// kbCmd represents the kb command
var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the trusted knowledge base",
	Long: `Add, approve and count knowledge-base claims.

Only claims labelled REAL are used as evidence. Claims submitted by users
start as UNDEFINED and become evidence once approved.`,
}

var kbAddCmd = &cobra.Command{
	Use:   "add <sentence>",
	Short: "Encode a trusted sentence and add it to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := model.TrustLabel(strings.ToUpper(kbLabel))
		if !label.Valid() {
			return fmt.Errorf("invalid label %q (REAL, FAKE, UNDEFINED)", kbLabel)
		}
		text := extract.Normalize(args[0])
		if text == "" {
			return fmt.Errorf("sentence is empty")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), kbTimeout)
		defer cancel()
		a, err := openKnowledgeBase(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		vec, err := a.encoder.Encode(ctx, text)
		if err != nil {
			return fmt.Errorf("encode sentence: %w", err)
		}
		id, err := a.store.Insert(ctx, model.KBClaim{
			SourceArticleID: kbArticleID,
			Text:            text,
			Embedding:       vec,
			TrustLabel:      label,
			Verified:        label == model.TrustReal,
			SourceType:      model.SourceAdmin,
		})
		if err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}

		fmt.Printf("✓ Added claim #%d (%s)\n", id, label)
		warnEphemeral(a.cfg)
		return nil
	},
}

var kbApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Mark a claim as trusted (REAL) so it is used as evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid claim id %q", args[0])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), kbTimeout)
		defer cancel()
		a, err := openKnowledgeBase(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.SetTrustLabel(ctx, id, model.TrustReal); err != nil {
			return fmt.Errorf("approve claim: %w", err)
		}
		fmt.Printf("✓ Claim #%d approved\n", id)
		warnEphemeral(a.cfg)
		return nil
	},
}

var kbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count knowledge-base claims per trust label",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), kbTimeout)
		defer cancel()
		a, err := openKnowledgeBase(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}

		labels := make([]string, 0, len(stats))
		total := 0
		for l, n := range stats {
			labels = append(labels, string(l))
			total += n
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Printf("%-10s %d\n", l, stats[model.TrustLabel(l)])
		}
		fmt.Printf("%-10s %d\n", "TOTAL", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbAddCmd, kbApproveCmd, kbStatsCmd)

	kbCmd.PersistentFlags().DurationVar(&kbTimeout, "timeout", time.Minute, "operation timeout")
	kbAddCmd.Flags().StringVar(&kbLabel, "label", string(model.TrustReal), "trust label (REAL, FAKE, UNDEFINED)")
	kbAddCmd.Flags().StringVar(&kbArticleID, "article-id", "", "source article identifier")
}

func warnEphemeral(cfg *model.Config) {
	if cfg.Database.Driver == "memory" {
		fmt.Fprintf(os.Stderr, "Note: the memory driver does not persist changes\n")
	}
}
