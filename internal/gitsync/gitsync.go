// internal/gitsync/gitsync.go
package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/clock"
)

// Config describes where the state file lives and where it is pushed.
type Config struct {
	RepoDir     string
	File        string // path of the state file, relative to RepoDir or absolute
	Remote      string // defaults to "origin"
	RemoteURL   string // when set, the remote URL is (re)pointed here before pushing
	Branch      string // defaults to "main"
	AuthorName  string
	AuthorEmail string
	SSHKeyPath  string
	Push        bool
}

// Syncer commits the state file and pushes it as an off-box backup.
// All git calls target RepoDir via -C.
type Syncer struct {
	cfg   Config
	clock clock.Clock
}

func New(cfg Config, clk clock.Clock) (*Syncer, error) {
	if cfg.RepoDir == "" || cfg.File == "" {
		return nil, errors.New("gitsync: repo dir and file required")
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "attendance-notifier"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "attendance-notifier@localhost"
	}
	if filepath.IsAbs(cfg.File) {
		rel, err := filepath.Rel(cfg.RepoDir, cfg.File)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("gitsync: %s is outside repository %s", cfg.File, cfg.RepoDir)
		}
		cfg.File = rel
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Syncer{cfg: cfg, clock: clk}, nil
}

// Sync stages the file and, if it changed, commits and optionally pushes.
// It reports whether a commit was made.
func (s *Syncer) Sync(ctx context.Context) (bool, error) {
	if _, err := s.run(ctx, "add", "--", s.cfg.File); err != nil {
		return false, err
	}

	out, err := s.run(ctx, "status", "--porcelain", "--", s.cfg.File)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}

	msg := "Update attendance state on " + s.clock.Now().UTC().Format(time.RFC3339)
	if _, err := s.run(ctx, "commit", "-m", msg, "--", s.cfg.File); err != nil {
		return false, err
	}

	if !s.cfg.Push {
		return true, nil
	}
	if s.cfg.RemoteURL != "" {
		if _, err := s.run(ctx, "remote", "set-url", s.cfg.Remote, s.cfg.RemoteURL); err != nil {
			return true, err
		}
	}
	if _, err := s.run(ctx, "push", s.cfg.Remote, "HEAD:"+s.cfg.Branch); err != nil {
		return true, err
	}
	return true, nil
}

// run executes git against the repository. Stderr is folded into the error.
func (s *Syncer) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", s.cfg.RepoDir}, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), s.env()...)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), s.cfg.RepoDir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (s *Syncer) env() []string {
	env := []string{
		"GIT_AUTHOR_NAME=" + s.cfg.AuthorName,
		"GIT_AUTHOR_EMAIL=" + s.cfg.AuthorEmail,
		"GIT_COMMITTER_NAME=" + s.cfg.AuthorName,
		"GIT_COMMITTER_EMAIL=" + s.cfg.AuthorEmail,
		"GIT_TERMINAL_PROMPT=0",
	}
	if s.cfg.SSHKeyPath != "" {
		env = append(env, fmt.Sprintf(
			"GIT_SSH_COMMAND=ssh -i %s -o IdentitiesOnly=yes -o StrictHostKeyChecking=accept-new",
			s.cfg.SSHKeyPath,
		))
	}
	return env
}
