package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/review"
	"github.com/conorfennell/pocketdeck/internal/srs"
)

func init() {
	due := &cobra.Command{
		Use:   "due <deck-id>",
		Short: "Show the cards due for review, ordered by front",
		Args:  cobra.ExactArgs(1),
		RunE:  runDue,
	}
	due.Flags().String("difficulty", "All", "Only show cards of this difficulty: Beginner, Intermediate, Advanced or All")

	rate := &cobra.Command{
		Use:   "review <card-id> <quality>",
		Short: "Record a rating from 0 (blackout) to 5 (perfect) for a card",
		Args:  cobra.ExactArgs(2),
		RunE:  runReview,
	}

	history := &cobra.Command{
		Use:   "history <card-id>",
		Short: "Show the review log of a card",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}

	RootCmd.AddCommand(due, rate, history)
}

func runDue(cmd *cobra.Command, args []string) error {
	difficulty, _ := cmd.Flags().GetString("difficulty")
	filter, err := domain.ParseFilter(difficulty)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cards, err := review.NewService(db).Due(cmd.Context(), args[0], time.Now(), filter)
	if err != nil {
		return err
	}

	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tFRONT\tDIFFICULTY\tMASTERY")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\n", c.ID, c.Front, c.Difficulty, c.Mastery)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cards due.\n", len(cards))
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	quality, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quality %q: %w", args[1], err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	card, err := review.NewService(db).Review(cmd.Context(), args[0], quality, time.Now())
	if err != nil {
		return err
	}

	next, _ := srs.NextReview(*card)
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\nmastery %.1f, interval %.2f days, ease %.2f, next review %s\n",
		card.Front, card.Back, card.Mastery, card.Interval, card.EaseFactor, next.Format(time.RFC3339))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.GetCard(cmd.Context(), args[0]); err != nil {
		return err
	}
	logs, err := db.ReviewLogs(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "REVIEWED\tQUALITY\tMASTERY\tINTERVAL\tEASE")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.2f\t%.2f\n", l.ReviewedAt.Format(time.RFC3339), l.Quality, l.Mastery, l.Interval, l.EaseFactor)
	}
	return tw.Flush()
}
