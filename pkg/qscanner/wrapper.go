package qscanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/ext"
	"github.com/deploywatch/scanner-qualys/pkg/image"
)

const versionTimeout = 10 * time.Second

// Wrapper invokes the qscanner CLI against a container image with bounded
// retries and exponential backoff. Exit codes 0 and 1 both count as success
// because qscanner exits 1 when the scan completed with findings.
type Wrapper interface {
	Scan(ctx context.Context, ref image.Reference, tags map[string]string) (ScanOutput, error)
	Version() string
}

type wrapper struct {
	config     etc.Scanner
	ambassador ext.Ambassador
	classify   Classifier
}

func NewWrapper(config etc.Scanner, ambassador ext.Ambassador) Wrapper {
	return &wrapper{
		config:     config,
		ambassador: ambassador,
		classify:   DefaultClassify,
	}
}

func (w *wrapper) Scan(ctx context.Context, ref image.Reference, tags map[string]string) (ScanOutput, error) {
	imageRef := ref.Canonical()
	slog.Debug("Started scanning", slog.String("image_ref", imageRef))

	for attempt := 0; ; attempt++ {
		out, err := w.runOnce(ctx, imageRef, tags)
		if err == nil {
			slog.Debug("Finished scanning", slog.String("image_ref", imageRef))
			return ParseOutput(out), nil
		}

		kind := w.classify(err)
		switch {
		case kind == Timeout:
			return ScanOutput{}, &ScanError{Kind: Timeout, ImageRef: imageRef, Attempts: attempt + 1, Err: err}
		case kind == Retryable && attempt < w.config.MaxRetries:
			delay := w.config.RetryDelay << attempt
			slog.Warn("Transient scan failure, retrying",
				slog.String("image_ref", imageRef),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("err", err.Error()),
			)
			w.ambassador.Sleep(delay)
		case kind == Retryable:
			return ScanOutput{}, &ScanError{Kind: Retryable, ImageRef: imageRef, Attempts: attempt + 1, Err: err}
		default:
			return ScanOutput{}, &ScanError{Kind: Fatal, ImageRef: imageRef, Attempts: attempt + 1, Err: err}
		}
	}
}

func (w *wrapper) runOnce(ctx context.Context, imageRef string, tags map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.ScanTimeout)
	defer cancel()

	cmd, err := w.buildCommand(ctx, imageRef, tags)
	if err != nil {
		return nil, err
	}

	out, err := w.ambassador.RunCmd(cmd)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			// Completed, findings present.
			slog.Debug("qscanner exited with findings", slog.String("image_ref", imageRef))
			return out, nil
		}

		if ctx.Err() == context.DeadlineExceeded {
			return nil, xerrors.Errorf("qscanner timed out after %s: %w", w.config.ScanTimeout, context.DeadlineExceeded)
		}

		if errors.As(err, &exitErr) {
			return nil, xerrors.Errorf("qscanner exited with code %d: %s", exitErr.ExitCode(), string(exitErr.Stderr))
		}
		return nil, xerrors.Errorf("running qscanner: %w", err)
	}

	return out, nil
}

// buildCommand assembles the qscanner invocation for the configured runner.
// Credentials go in via the child process environment only, so they never
// show up in process listings or logs.
func (w *wrapper) buildCommand(ctx context.Context, imageRef string, tags map[string]string) (*exec.Cmd, error) {
	scanArgs := []string{
		"image", imageRef,
		"--scan-types", w.config.ScanTypes,
		"--format", "json",
		"--output-file", "-",
		"--save",
	}
	if w.config.SkipTLS {
		scanArgs = append(scanArgs, "--skip-verify-tls")
	}
	for _, key := range sortedKeys(tags) {
		scanArgs = append(scanArgs, "--tag", fmt.Sprintf("%s=%s", key, tags[key]))
	}
	scanArgs = append(scanArgs, "--tag", fmt.Sprintf("image=%s", imageRef))

	var cmd *exec.Cmd
	switch w.config.Runner {
	case "docker":
		args := []string{
			"run", "--rm",
			"-e", "QUALYS_POD",
			"-e", "QUALYS_ACCESS_TOKEN",
			w.config.DockerImage,
		}
		cmd = exec.CommandContext(ctx, "docker", append(args, scanArgs...)...)
	default:
		executable, err := w.ambassador.LookPath(w.config.Executable)
		if err != nil {
			return nil, xerrors.Errorf("locating qscanner executable: %w", err)
		}
		cmd = exec.CommandContext(ctx, executable, scanArgs...)
	}

	cmd.Env = append(w.ambassador.Environ(),
		fmt.Sprintf("QUALYS_POD=%s", w.config.Pod),
		fmt.Sprintf("QUALYS_ACCESS_TOKEN=%s", w.config.AccessToken),
	)

	return cmd, nil
}

// Version reports the qscanner version for outcome metadata, or "unknown"
// when it cannot be determined.
func (w *wrapper) Version() string {
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	executable := w.config.Executable
	if w.config.Runner != "docker" {
		path, err := w.ambassador.LookPath(executable)
		if err != nil {
			return "unknown"
		}
		executable = path
	}

	cmd := exec.CommandContext(ctx, executable, "--version")
	cmd.Env = w.ambassador.Environ()
	out, err := w.ambassador.RunCmd(cmd)
	if err != nil {
		slog.Debug("Cannot determine qscanner version", slog.String("err", err.Error()))
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
