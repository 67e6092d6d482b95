package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/knol"
	"github.com/conorfennell/pocketdeck/internal/parser"
	"github.com/conorfennell/pocketdeck/internal/srs"
)

func init() {
	decks := &cobra.Command{
		Use:   "decks",
		Short: "List decks",
		Args:  cobra.NoArgs,
		RunE:  runDecks,
	}
	decks.Flags().Bool("hosted", false, "List hosted decks instead of local ones")

	load := &cobra.Command{
		Use:   "load <file>",
		Short: "Create a local deck from a .md, .csv or .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}
	load.Flags().StringP("name", "n", "", "Deck name (default: file name)")
	load.Flags().String("category", "", "Deck category")

	rm := &cobra.Command{
		Use:   "rm-deck <deck-id>",
		Short: "Delete a deck and its cards",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemoveDeck,
	}

	RootCmd.AddCommand(decks, load, rm)
}

func runDecks(cmd *cobra.Command, args []string) error {
	hosted, _ := cmd.Flags().GetBool("hosted")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	decks, err := db.ListDecks(cmd.Context(), hosted)
	if err != nil {
		return err
	}

	now := time.Now()
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCARDS\tDUE")
	for _, d := range decks {
		full, err := db.GetDeck(cmd.Context(), d.ID)
		if err != nil {
			return err
		}
		due := len(srs.DueCards(*full, now, domain.All))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", d.ID, d.Name, d.Category, len(full.Cards), due)
	}
	return tw.Flush()
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]
	name, _ := cmd.Flags().GetString("name")
	category, _ := cmd.Flags().GetString("category")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	cards, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cards) == 0 {
		return fmt.Errorf("no cards found in %s", path)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	deck := domain.NewDeck(name, category, false, time.Now())
	for _, card := range cards {
		card.Hash = knol.Hash(card)
		deck.AddCard(card)
	}
	if err := db.InsertDeck(cmd.Context(), &deck); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created deck %s (%s) with %d cards.\n", deck.Name, deck.ID, len(deck.Cards))
	return nil
}

func runRemoveDeck(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteDeck(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted deck %s.\n", args[0])
	return nil
}
