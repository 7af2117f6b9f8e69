package stages

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// CommandBuilder builds the artifact with a configured command and verifies
// the declared artifact exists afterwards.
type CommandBuilder struct {
	Runner  *Runner
	Command string
	// Artifact is a path or glob relative to the runner directory that
	// must match at least one file after the build.
	Artifact string
}

func (b *CommandBuilder) Build(ctx context.Context) (string, error) {
	if b.Command == "" {
		return "", errors.New("build.command is not configured")
	}
	if b.Artifact == "" {
		return "", errors.New("build.artifact is not configured")
	}

	if _, err := b.Runner.Run(ctx, b.Command, nil); err != nil {
		return "", err
	}

	pattern := b.Artifact
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(b.Runner.Dir, pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid artifact pattern %q: %w", b.Artifact, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("build artifact %q not found", b.Artifact)
	}
	sort.Strings(matches)
	return matches[0], nil
}
