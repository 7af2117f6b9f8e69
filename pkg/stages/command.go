package stages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
)

// Runner executes configured commands through `sh -c` from a fixed working
// directory. Runtime inputs reach commands as SHIPLINE_* environment
// variables, never by splicing them into the command string.
type Runner struct {
	// Dir is the working directory for every command.
	Dir string
}

// Run executes one command and returns its stdout. The context bounds the
// command's lifetime; stderr is captured and folded into the error.
func (r *Runner) Run(ctx context.Context, command string, env map[string]string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", errors.New("command is empty")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		return "", fmt.Errorf("sh executable not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.Dir
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for _, key := range slices.Sorted(maps.Keys(env)) {
			cmd.Env = append(cmd.Env, key+"="+env[key])
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command failed: %w\nstderr: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// lastLine returns the final non-empty line of command output, the usual
// place for a tool's one-line summary.
func lastLine(out string) string {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
