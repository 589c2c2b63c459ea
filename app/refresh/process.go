package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lysyi3m/complaint-comb/app/crawler"
)

var ErrCrawlTimeout = errors.New("crawl timed out")

// ProcessRunner runs the crawl command as a child process:
//
//	<executable> [args...] crawl --incremental --refs-file F --start-page 1
//
// and reads its progress from the stdout markers.
type ProcessRunner struct {
	executable string
	args       []string
	env        []string
}

// NewProcessRunner starts crawls with executable. args are placed before the
// crawl sub-command, so global flags such as --db-path reach the child.
func NewProcessRunner(executable string, args ...string) *ProcessRunner {
	return &ProcessRunner{executable: executable, args: args}
}

// WithEnv appends environment variables for the child process.
func (r *ProcessRunner) WithEnv(env ...string) *ProcessRunner {
	r.env = append(r.env, env...)
	return r
}

func (r *ProcessRunner) Run(ctx context.Context, known crawler.RefSet) (Progress, error) {
	dir, err := os.MkdirTemp("", "complaint-comb-refs-")
	if err != nil {
		return Progress{}, fmt.Errorf("failed to create refs directory: %w", err)
	}
	defer os.RemoveAll(dir)

	refsFile := filepath.Join(dir, "refs.txt")
	if err := WriteRefsFile(refsFile, known); err != nil {
		return Progress{}, err
	}

	args := append([]string{}, r.args...)
	args = append(args, "crawl", "--incremental", "--refs-file", refsFile, "--start-page", "1")

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, r.executable, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), r.env...)

	slog.Debug("Starting crawl process", "executable", r.executable, "known_refs", len(known))

	runErr := cmd.Run()

	progress, parseErr := ParseProgress(&stdout)

	if ctx.Err() != nil {
		return progress, fmt.Errorf("%w: %w", ErrCrawlTimeout, ctx.Err())
	}
	if runErr != nil {
		return progress, fmt.Errorf("crawl process failed: %w", runErr)
	}
	if parseErr != nil {
		return progress, parseErr
	}

	return progress, nil
}
