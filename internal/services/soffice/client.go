// Package soffice wraps headless office-suite conversion to PDF as an
// external process with a hard timeout.
package soffice

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

	"ticketpdf/internal/fileutil"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps soffice CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a soffice client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("soffice binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Convert runs a headless conversion of src to PDF inside outDir and
// returns the produced file path. soffice names the output after the source
// basename; the path is verified before returning.
func (c *Client) Convert(ctx context.Context, src, outDir string) (string, error) {
	if err := fileutil.EnsureDir(outDir); err != nil {
		return "", err
	}

	convertCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		convertCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"--headless", "--convert-to", "pdf", src, "--outdir", outDir}
	if err := c.exec.Run(convertCtx, c.binary, args); err != nil {
		return "", fmt.Errorf("soffice convert: %w", err)
	}

	produced := filepath.Join(outDir, fileutil.StripExt(filepath.Base(src))+".pdf")
	if _, err := os.Stat(produced); err != nil {
		return "", fmt.Errorf("soffice produced no output for %s: %w", filepath.Base(src), err)
	}
	return produced, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("timed out: %w", ctx.Err())
		}
		detail := strings.TrimSpace(output.String())
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
