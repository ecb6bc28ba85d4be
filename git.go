package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// isGitURL recognizes generic git remotes — the ones the REST fetcher can't
// serve. Plain https:// inputs are ambiguous, so only the unambiguous shapes
// count here.
func isGitURL(input string) bool {
	return strings.HasSuffix(input, ".git") || strings.HasPrefix(input, "git@")
}

// cloneGitRepo shallow-clones the default branch of a git remote into a temp
// directory for the local walker to aggregate. The caller owns cleanup of the
// returned path.
func cloneGitRepo(ctx context.Context, remote string, logger *zap.Logger) (string, error) {
	tempDir, err := os.MkdirTemp("", "promptpack-git-")
	if err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}

	logger.Info("cloning repository", zap.String("remote", remote), zap.String("into", tempDir))
	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
		Depth:         1, // history is dead weight for a prompt artifact
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("clone %s: %w", remote, err)
	}
	return tempDir, nil
}
