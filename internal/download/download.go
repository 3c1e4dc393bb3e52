// Package download fetches attachment bytes to the local download
// directory. Downloads are idempotent: an existing destination file is
// reused without touching the network.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ticketpdf/internal/fileutil"
	"ticketpdf/internal/logging"
	"ticketpdf/internal/services"
	"ticketpdf/internal/tickets"
)

const defaultTimeout = 60 * time.Second

// Downloader retrieves attachment source files over HTTP.
type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// New constructs a downloader. timeoutSeconds bounds each fetch.
func New(timeoutSeconds int, logger *slog.Logger, opts ...Option) *Downloader {
	timeout := defaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	d := &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "download"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DestPath returns the download destination for att inside dir, keyed by
// attachment id and sanitized name so concurrent workers never collide.
func DestPath(dir string, att tickets.Attachment) string {
	name := fmt.Sprintf("%s-%s.%s", att.ID, fileutil.SanitizeName(att.Name), att.Extension)
	return filepath.Join(dir, name)
}

// Fetch downloads att into dir and returns the local path. When the
// destination already exists the download is skipped entirely.
func (d *Downloader) Fetch(ctx context.Context, att tickets.Attachment, dir string) (string, error) {
	attrs := func(extra ...logging.Attr) []logging.Attr {
		out := []logging.Attr{logging.String(logging.FieldAssetID, att.ID)}
		if itemID, ok := services.ItemIDFromContext(ctx); ok {
			out = append(out, logging.String(logging.FieldItemID, itemID))
		}
		if runID, ok := services.RunIDFromContext(ctx); ok {
			out = append(out, logging.String(logging.FieldRunID, runID))
		}
		return append(out, extra...)
	}

	dest := DestPath(dir, att)
	if _, err := os.Stat(dest); err == nil {
		logging.Event(d.logger, "download", logging.OutcomeSuccess,
			attrs(logging.Bool("cached", true))...)
		return dest, nil
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", err
	}

	if err := d.fetchTo(ctx, att.SourceURL, dest); err != nil {
		logging.Event(d.logger, "download", logging.OutcomeFailure,
			attrs(logging.String(logging.FieldWarning, err.Error()))...)
		return "", err
	}

	logging.Event(d.logger, "download", logging.OutcomeSuccess,
		attrs(logging.Int64("bytes", att.Size))...)
	return dest, nil
}

func (d *Downloader) fetchTo(ctx context.Context, sourceURL, dest string) error {
	if sourceURL == "" {
		return fmt.Errorf("attachment has no source url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	tmp := dest + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write destination: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
