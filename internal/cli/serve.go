package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/pocketdeck/internal/catalog"
	"github.com/conorfennell/pocketdeck/internal/scheduler"
	"github.com/conorfennell/pocketdeck/internal/storage"
	"github.com/conorfennell/pocketdeck/internal/sync"
	"github.com/conorfennell/pocketdeck/internal/web"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background sync and catalog refresh",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default: :8080)")
	cmd.Flags().String("catalog-url", "", "Catalog manifest URL")
	cmd.Flags().String("repos-dir", "", "Where git sources are cloned (default: repos)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var client *catalog.Client
	if cfg.Catalog.URL != "" {
		client = catalog.NewClient(cfg.Catalog.URL, nil)
	}

	jobs := scheduler.New(ctx)
	if err := scheduleJobs(jobs, db, client); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.NewServer(db, client, cfg.Sync.ReposDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scheduleJobs registers the periodic source sync and, when a catalog is
// configured, the hosted deck refresh.
func scheduleJobs(jobs *scheduler.Scheduler, db *storage.DB, client *catalog.Client) error {
	err := jobs.Every("sync", cfg.Sync.Interval, func(ctx context.Context) error {
		_, err := sync.RunSync(ctx, db, cfg.Sync.ReposDir)
		return err
	})
	if err != nil {
		return err
	}

	if client == nil {
		return nil
	}
	return jobs.Every("catalog", cfg.Catalog.Refresh, func(ctx context.Context) error {
		res, err := catalog.Import(ctx, db, client, time.Now())
		if err != nil {
			return err
		}
		slog.Info("Catalog refreshed", "imported", res.Imported, "existing", res.Existing, "failed", res.Failed)
		return nil
	})
}
