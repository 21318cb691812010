package report

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Archive keeps generated reports under git version control and
// pushes them to a remote when one is configured.
type Archive struct {
	RepoPath string
}

// NewArchive creates an Archive for the given repository path.
func NewArchive(repoPath string) *Archive {
	return &Archive{RepoPath: repoPath}
}

// Sync stages all changes, commits them and pushes to the remote.
// A repository with no remote is committed locally only.
func (a *Archive) Sync(message string) error {
	r, err := git.PlainOpen(a.RepoPath)
	if err != nil {
		return fmt.Errorf("failed to open archive repo: %w", err)
	}

	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := w.Add("."); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	if message == "" {
		message = fmt.Sprintf("Archive reports: %s", time.Now().Format(time.RFC3339))
	}

	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Sheet Pilot",
			Email: "pilot@sheet.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	remotes, err := r.Remotes()
	if err != nil || len(remotes) == 0 {
		return nil
	}

	pushOpts := &git.PushOptions{}
	if home, err := os.UserHomeDir(); err == nil {
		keyPath := filepath.Join(home, ".ssh", "id_rsa")
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			pushOpts.Auth = auth
		} else {
			log.Printf("report: no usable SSH key, pushing with default auth: %v", err)
		}
	}

	if err := r.Push(pushOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}
