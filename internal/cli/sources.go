package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/pocketdeck/internal/catalog"
	"github.com/conorfennell/pocketdeck/internal/sync"
)

func init() {
	addSource := &cobra.Command{
		Use:   "add-source <path/or/url.git>",
		Short: "Register a directory or git repository of card files",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddSource,
	}

	sources := &cobra.Command{
		Use:   "sources",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE:  runSources,
	}

	rmSource := &cobra.Command{
		Use:   "rm-source <source-id>",
		Short: "Delete a source together with its deck",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemoveSource,
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every source into its deck",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	syncCmd.Flags().String("repos-dir", "", "Where git sources are cloned (default: repos)")

	importCmd := &cobra.Command{
		Use:   "import-catalog",
		Short: "Import hosted decks from the catalog",
		Args:  cobra.NoArgs,
		RunE:  runImportCatalog,
	}
	importCmd.Flags().String("catalog-url", "", "Catalog manifest URL")

	RootCmd.AddCommand(addSource, sources, rmSource, syncCmd, importCmd)
}

func runAddSource(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	source, err := sync.AddSource(cmd.Context(), db, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s source %d: %s\n", source.Type, source.ID, source.Path)
	return nil
}

func runSources(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := db.GetAllSources(cmd.Context())
	if err != nil {
		return err
	}

	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tTYPE\tPATH\tLAST SCANNED")
	for _, s := range sources {
		scanned := "never"
		if s.LastScanned.Valid {
			scanned = s.LastScanned.Time.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Type, s.Path, scanned)
	}
	return tw.Flush()
}

func runRemoveSource(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", args[0], err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteSource(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted source %d.\n", id)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	reports, err := sync.RunSync(cmd.Context(), db, cfg.Sync.ReposDir)
	if err != nil {
		return err
	}

	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "SOURCE\tPARSED\tADDED\tREMOVED\tERRORS")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", r.Path, r.Parsed, r.Added, r.Removed, r.Errors)
	}
	return tw.Flush()
}

func runImportCatalog(cmd *cobra.Command, args []string) error {
	if cfg.Catalog.URL == "" {
		return fmt.Errorf("no catalog url configured")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	client := catalog.NewClient(cfg.Catalog.URL, nil)
	res, err := catalog.Import(cmd.Context(), db, client, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d decks (%d cards), %d already present, %d failed.\n",
		res.Imported, res.Cards, res.Existing, res.Failed)
	return nil
}
