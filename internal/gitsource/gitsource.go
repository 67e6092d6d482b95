// Package gitsource keeps local checkouts of git deck sources current.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
)

// Sync makes localPath a current checkout of the repository at url,
// cloning on first use and pulling afterwards. It returns the commit the
// checkout is at, so callers can tell whether the card files may have
// changed.
func Sync(ctx context.Context, url, localPath string) (string, error) {
	repo, err := checkout(ctx, url, localPath)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD of %s: %w", localPath, err)
	}
	rev := head.Hash().String()
	slog.Debug("Deck source checked out", "url", url, "revision", rev)
	return rev, nil
}

func checkout(ctx context.Context, url, localPath string) (*git.Repository, error) {
	_, err := os.Stat(localPath)
	if os.IsNotExist(err) {
		slog.Info("Cloning deck source", "url", url, "path", localPath)
		repo, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", url, err)
		}
		return repo, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open checkout %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree of %s: %w", localPath, err)
	}

	slog.Info("Pulling deck source", "url", url, "path", localPath)
	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("pull %s: %w", url, err)
	}
	return repo, nil
}
