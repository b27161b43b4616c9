package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool and returns its standard output.
// Implementations must honour ctx cancellation.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. On failure the returned error carries
// the tool's trimmed stderr so callers can surface it verbatim.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return output, fmt.Errorf("%s: %w", name, err)
		}
		return output, fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return output, nil
}
