package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/gitsource"
	"github.com/conorfennell/pocketdeck/internal/knol"
	"github.com/conorfennell/pocketdeck/internal/parser"
	"github.com/conorfennell/pocketdeck/internal/storage"
)

// Report summarises one reconciliation.
type Report struct {
	Path    string `json:"path"`
	Parsed  int    `json:"parsed"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Errors  int    `json:"errors"`
}

// SourceType guesses whether path is a git URL or a local directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// AddSource registers a new source. Local paths are stored absolute.
func AddSource(ctx context.Context, db *storage.DB, path string) (*storage.Source, error) {
	sourceType := SourceType(path)
	if sourceType == storage.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}
		path = abs
	}

	id, err := db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return nil, err
	}
	slog.Info("Source added", "id", id, "type", sourceType, "path", path)
	return &storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// RunSync iterates over all sources and reconciles each into its deck.
// A failing source is logged and skipped.
func RunSync(ctx context.Context, db *storage.DB, reposDir string) ([]Report, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with add-source <path/or/url.git>")
		return nil, nil
	}

	var reports []Report
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		localPath := source.Path
		if source.Type == storage.SourceGit {
			localPath, err = gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			rev, err := gitsource.Sync(ctx, source.Path, localPath)
			if err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			slog.Info("Git source up to date", "url", source.Path, "revision", rev)
		}

		report, err := reconcile(ctx, db, source, localPath, time.Now())
		if err != nil {
			slog.Error("Error reconciling source", "path", source.Path, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	slog.Info("Sync process complete.")
	return reports, nil
}

// reconcile makes the source's deck match the card files under dir. Cards
// are matched by content hash, so unchanged cards keep their schedule.
func reconcile(ctx context.Context, db *storage.DB, source storage.Source, dir string, now time.Time) (Report, error) {
	report := Report{Path: source.Path}
	found := make(map[string]domain.Card)
	var order []string

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.Supported(path) {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			slog.Warn("Error parsing card file", "path", path, "error", parseErr)
			report.Errors++
		}
		for _, card := range fileCards {
			card.Hash = knol.Hash(card)
			report.Parsed++
			if _, dup := found[card.Hash]; dup {
				continue
			}
			found[card.Hash] = card
			order = append(order, card.Hash)
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	deck, err := db.DeckForSource(ctx, source.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fresh := domain.NewDeck(deckName(source.Path), "", false, now)
		fresh.SourceID = &source.ID
		for _, h := range order {
			fresh.AddCard(found[h])
		}
		if err := db.InsertDeck(ctx, &fresh); err != nil {
			return report, err
		}
		report.Added = len(fresh.Cards)
	case err != nil:
		return report, err
	default:
		existing := make(map[string]bool, len(deck.Cards))
		var orphans []string
		for _, c := range deck.Cards {
			existing[c.Hash] = true
			if _, ok := found[c.Hash]; !ok {
				orphans = append(orphans, c.ID)
			}
		}

		for _, h := range order {
			if existing[h] {
				continue
			}
			card := found[h]
			card.DeckID = deck.ID
			if err := db.InsertCard(ctx, card); err != nil {
				slog.Warn("Failed to insert card", "hash", h, "error", err)
				report.Errors++
				continue
			}
			report.Added++
		}

		if len(orphans) > 0 {
			n, err := db.DeleteCards(ctx, orphans...)
			if err != nil {
				slog.Warn("Failed to delete orphaned cards", "deck", deck.ID, "error", err)
				report.Errors++
			}
			report.Removed = int(n)
		}
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID, now); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", report.Parsed,
		"added", report.Added,
		"orphaned_deleted", report.Removed,
		"errors", report.Errors,
	)
	return report, nil
}

// deckName names a synced deck after the last element of its source path.
func deckName(path string) string {
	name := strings.TrimSuffix(filepath.Base(strings.TrimRight(path, "/")), ".git")
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == string(os.PathSeparator) {
		return path
	}
	return name
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
