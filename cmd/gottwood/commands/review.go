package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/report"
	"github.com/14tweny/Gottwood-Review-sub000/internal/session"
)

var (
	reviewOutput string
	commentField string
	reviewTags   []string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Read and write reviews of a past period",
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <area> [category...]",
	Short: "Show the reviews of an area, or of the named categories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReviewShow,
}

var reviewVoteCmd = &cobra.Command{
	Use:   "vote <area> <category> <0-5>",
	Short: "Vote on a category; 0 withdraws your vote",
	Args:  cobra.ExactArgs(3),
	RunE:  runReviewVote,
}

var reviewCommentCmd = &cobra.Command{
	Use:   "comment <area> <category> <text>",
	Short: "Set your comment in a category's thread; empty text removes it",
	Example: `  gottwood --period 2024 --dept sound review comment Stage Mixing "Clean handovers" --field worked-well
  gottwood --period 2024 --dept sound review comment Stage Mixing "" --field needs-improvement`,
	Args: cobra.ExactArgs(3),
	RunE: runReviewComment,
}

var reviewNotesCmd = &cobra.Command{
	Use:   "notes <area> <category> <text>",
	Short: "Replace a category's shared notes and optionally its tags",
	Args:  cobra.ExactArgs(3),
	RunE:  runReviewNotes,
}

func init() {
	reviewShowCmd.Flags().StringVarP(&reviewOutput, "output", "o", "default", "Output format (default or jsonl)")
	reviewCommentCmd.Flags().StringVarP(&commentField, "field", "f", "worked-well", "Thread: worked-well or needs-improvement")
	reviewNotesCmd.Flags().StringSliceVarP(&reviewTags, "tag", "t", nil, "Replace the tags (repeatable)")

	reviewCmd.AddCommand(reviewShowCmd, reviewVoteCmd, reviewCommentCmd, reviewNotesCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	if reviewOutput != "default" && reviewOutput != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", reviewOutput),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	area := args[0]
	categories := args[1:]
	if len(categories) == 0 {
		categories = ws.sess.Categories(area).Selected
	}
	if len(categories) == 0 {
		printer.Info("No categories selected for area '%s'\n", area)
		return nil
	}

	for i, category := range categories {
		rec := ws.sess.Review(area, category)
		if reviewOutput == "jsonl" {
			if err := report.FormatReviewJSONL(printer.Stdout, category, rec); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			fmt.Fprintln(printer.Stdout)
		}
		report.FormatReview(printer.Stdout, category, rec)
	}
	return nil
}

func runReviewVote(cmd *cobra.Command, args []string) error {
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return printer.Error("invalid vote", fmt.Sprintf("%q is not a number", args[2]), []string{"Vote 1 to 5, or 0 to withdraw"})
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()
	if err := requireIdentity(ws.sess); err != nil {
		return err
	}

	rec, err := ws.sess.CastVote(args[0], args[1], value)
	if err != nil {
		return reviewError(err)
	}
	printer.Success("Voted on %s / %s, rating is now %d\n", args[0], args[1], rec.Rating)
	return nil
}

func runReviewComment(cmd *cobra.Command, args []string) error {
	var patch session.ReviewPatch
	text := args[2]
	switch commentField {
	case "worked-well":
		patch.WorkedWell = &text
	case "needs-improvement":
		patch.NeedsImprovement = &text
	default:
		return printer.Error(
			"invalid field",
			fmt.Sprintf("Unknown thread: %s", commentField),
			[]string{"Valid threads: worked-well, needs-improvement"},
		)
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()
	if err := requireIdentity(ws.sess); err != nil {
		return err
	}

	if _, err := ws.sess.SaveReviewPatch(args[0], args[1], patch); err != nil {
		return reviewError(err)
	}
	if text == "" {
		printer.Success("Removed your %s comment\n", commentField)
	} else {
		printer.Success("Saved your %s comment\n", commentField)
	}
	return nil
}

func runReviewNotes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	notes := args[2]
	patch := session.ReviewPatch{Notes: &notes}
	if cmd.Flags().Changed("tag") {
		patch.Tags = &reviewTags
	}
	if _, err := ws.sess.SaveReviewPatch(args[0], args[1], patch); err != nil {
		return reviewError(err)
	}
	printer.Success("Saved notes for %s / %s\n", args[0], args[1])
	return nil
}

func reviewError(err error) error {
	return printer.Error("review update failed", err.Error(), periodHint(err))
}

// periodHint suggests the right command family when a mutation was refused
// for the period kind.
func periodHint(err error) []string {
	if !errors.Is(err, session.ErrWrongPeriod) {
		return nil
	}
	return []string{
		"Past periods take reviews:\n  gottwood --period <past> review ...",
		"Current and future periods take tasks:\n  gottwood --period <current> task ...",
	}
}
