// Package cli implements the pocketdeck commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/pocketdeck/internal/config"
	"github.com/conorfennell/pocketdeck/internal/storage"
)

var (
	configPath string
	cfg        *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "pocketdeck",
	Short:        "Spaced-repetition flashcards",
	Long:         "Study flashcard decks on an SM-2 schedule. Decks come from local files, git repositories or a hosted catalog.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(cfg.Logger())
		return nil
	},
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringP("db", "d", "", "Database path or DSN (default: pocketdeck.db)")
	flags.String("driver", "", "Database driver: sqlite or postgres")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
}

func openDB() (*storage.DB, error) {
	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
