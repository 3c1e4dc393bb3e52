// Package workflow coordinates one reporting run end to end: plan the
// qualifying item set, download and convert every unique attachment with a
// bounded worker pool, assemble the merged report, export the workbook, and
// run the verification pass.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ticketpdf/internal/config"
	"ticketpdf/internal/convert"
	"ticketpdf/internal/download"
	"ticketpdf/internal/fileutil"
	"ticketpdf/internal/logging"
	"ticketpdf/internal/report"
	"ticketpdf/internal/services"
	"ticketpdf/internal/services/monday"
	"ticketpdf/internal/services/soffice"
	"ticketpdf/internal/services/wkhtmltopdf"
	"ticketpdf/internal/tickets"
	"ticketpdf/internal/verify"
	"ticketpdf/internal/workbook"
)

// Querier is the remote API surface the run consumes.
type Querier interface {
	StatusColumnSettings(ctx context.Context, boardID, columnID string) (string, error)
	FirstFilteredPage(ctx context.Context, q monday.ItemsQuery) (monday.ItemsPage, error)
	verify.Fetcher
}

// Manager owns the dependencies of a run. One manager serves any number of
// sequential runs; runs themselves are serialized per output directory.
type Manager struct {
	cfg        *config.Config
	client     Querier
	downloader *download.Downloader
	dispatcher *convert.Dispatcher
	logger     *slog.Logger
	runID      string
}

// ManagerOption customizes manager construction, mainly for tests.
type ManagerOption func(*Manager)

// WithDownloader overrides the attachment downloader.
func WithDownloader(d *download.Downloader) ManagerOption {
	return func(m *Manager) { m.downloader = d }
}

// WithDispatcher overrides the conversion dispatcher.
func WithDispatcher(d *convert.Dispatcher) ManagerOption {
	return func(m *Manager) { m.dispatcher = d }
}

// WithRunID pins the run correlation identifier.
func WithRunID(id string) ManagerOption {
	return func(m *Manager) { m.runID = id }
}

// NewManager wires a manager from configuration. The converter clients are
// built from the configured binaries; tests swap them via options.
func NewManager(cfg *config.Config, client Querier, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		client: client,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(logger, "workflow").With(
		slog.String(logging.FieldRunID, m.runID))

	if m.downloader == nil {
		m.downloader = download.New(cfg.Run.DownloadTimeoutSeconds, logger)
	}
	if m.dispatcher == nil {
		office, err := soffice.New(cfg.Convert.SofficeBinary, cfg.Run.ConvertTimeoutSeconds)
		if err != nil {
			return nil, err
		}
		var markup convert.MarkupConverter
		if cfg.Convert.HTMLEnabled {
			markup, err = wkhtmltopdf.New(cfg.Convert.WkhtmltopdfBinary, cfg.Run.ConvertTimeoutSeconds)
			if err != nil {
				return nil, err
			}
		}
		m.dispatcher = convert.NewDispatcher(office, markup, cfg.Convert.HTMLEnabled, logger)
	}
	return m, nil
}

// RunID returns the run correlation identifier.
func (m *Manager) RunID() string {
	return m.runID
}

// Plan describes the qualifying item set for a month before any download or
// conversion happens. Dry-run mode prints it and stops here.
type Plan struct {
	Month       string
	DateFrom    string
	DateTo      string
	StatusIndex int
	Fetched     int
	Items       []tickets.Item
	Index       *tickets.AttachmentIndex
	Truncated   bool
}

// Plan fetches, filters, and indexes the month's items. The max_items cap
// applies only in dry-run mode, where a truncated preview is cheaper than a
// full pull.
func (m *Manager) Plan(ctx context.Context, month string, dryRun bool) (*Plan, error) {
	from, to, err := tickets.MonthRange(month)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "plan", err.Error(), nil)
	}

	board := m.cfg.Board
	settings, err := m.client.StatusColumnSettings(ctx, board.ID, board.Columns.Status)
	if err != nil {
		return nil, err
	}
	statusIndex, err := monday.StatusIndex(settings, board.StatusLabelRequired)
	if err != nil {
		return nil, err
	}

	columnIDs := []string{board.Columns.Status, board.Columns.OpenDate, board.Columns.CloseDate}
	columns := tickets.Columns{
		Status:    board.Columns.Status,
		OpenDate:  board.Columns.OpenDate,
		CloseDate: board.Columns.CloseDate,
	}

	page, err := m.client.FirstFilteredPage(ctx, monday.ItemsQuery{
		BoardID:        board.ID,
		Limit:          m.cfg.Run.PageSize,
		ColumnIDs:      columnIDs,
		DateColumnID:   board.Columns.OpenDate,
		DateFrom:       from,
		DateTo:         to,
		StatusColumnID: board.Columns.Status,
		StatusIndex:    statusIndex,
	})
	if err != nil {
		return nil, err
	}
	acc := tickets.NewAccumulator()
	acc.Add(tickets.Materialize(page.Items, columns)...)
	for page.Cursor != "" {
		page, err = m.client.NextItemsPage(ctx, page.Cursor, m.cfg.Run.PageSize, columnIDs)
		if err != nil {
			return nil, err
		}
		acc.Add(tickets.Materialize(page.Items, columns)...)
	}

	plan := &Plan{
		Month:       month,
		DateFrom:    from,
		DateTo:      to,
		StatusIndex: statusIndex,
		Fetched:     acc.Len(),
	}
	plan.Items = tickets.Filter(acc.Items(), month, board.StatusLabelRequired)
	if dryRun && m.cfg.Run.MaxItems > 0 && len(plan.Items) > m.cfg.Run.MaxItems {
		plan.Items = plan.Items[:m.cfg.Run.MaxItems]
		plan.Truncated = true
	}
	plan.Index = tickets.BuildIndex(plan.Items)

	logging.Event(m.logger, "plan", logging.OutcomeSuccess,
		logging.String("month", month),
		logging.Int("fetched", plan.Fetched),
		logging.Int("qualified", len(plan.Items)),
		logging.Int("unique_attachments", plan.Index.Len()),
		logging.Int("duplicates_removed", plan.Index.DuplicateSavings()))
	return plan, nil
}

// Outcome summarizes one completed run.
type Outcome struct {
	Plan         *Plan
	ReportPath   string
	WorkbookPath string
	Converted    int
	Placeholders int
	Warnings     []string
	Verification verify.Result
}

// Run executes the full pipeline for month. Per-attachment failures degrade
// to placeholders; workbook and verification failures degrade to warnings;
// everything else aborts the run.
func (m *Manager) Run(ctx context.Context, month, outDir, downloadsDir string) (*Outcome, error) {
	if err := fileutil.EnsureDir(outDir); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(outDir, ".ticketpdf.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "workflow", "lock", "acquiring run lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrFatal, "workflow", "lock",
			fmt.Sprintf("another run holds the lock on %s", outDir), nil)
	}
	defer lock.Unlock()

	ctx = services.WithRunID(ctx, m.runID)
	plan, err := m.Plan(ctx, month, false)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Plan: plan}
	if len(plan.Items) == 0 {
		// Verification runs even when nothing qualified.
		outcome.Verification = m.verifyRun(ctx, plan)
		logging.Event(m.logger, "run", logging.OutcomeSuccess,
			logging.String("month", month),
			logging.Int("qualified", 0),
			logging.Int("verify_missing", len(outcome.Verification.Missing)))
		return outcome, nil
	}

	results, err := m.convertAll(ctx, plan, downloadsDir)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		if result.Success {
			outcome.Converted++
		} else {
			outcome.Placeholders++
			outcome.Warnings = append(outcome.Warnings, result.Warning)
		}
	}

	summaryPath := filepath.Join(outDir, fmt.Sprintf("%s-summary.pdf", month))
	if err := report.GenerateSummary(summaryPath, month, m.cfg.Board.ID, plan.Items, plan.Index); err != nil {
		return nil, err
	}
	docs := make([]string, len(results))
	for i, result := range results {
		docs[i] = result.Path
	}
	outcome.ReportPath = filepath.Join(outDir, fmt.Sprintf("%s-Resolved-Tickets.pdf", month))
	if err := report.Merge(summaryPath, docs, outcome.ReportPath); err != nil {
		return nil, err
	}

	workbookPath := filepath.Join(outDir, workbook.Filename(month))
	if err := workbook.Generate(workbookPath, month, plan.Items, plan.Index); err != nil {
		// The merged report already exists; a missing workbook is not worth
		// aborting over.
		m.logger.Warn("workbook generation failed", logging.Error(err))
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("workbook: %v", err))
	} else {
		outcome.WorkbookPath = workbookPath
	}

	outcome.Verification = m.verifyRun(ctx, plan)

	logging.Event(m.logger, "run", logging.OutcomeSuccess,
		logging.String("month", month),
		logging.Int("qualified", len(plan.Items)),
		logging.Int("converted", outcome.Converted),
		logging.Int("placeholders", outcome.Placeholders),
		logging.String("report", outcome.ReportPath))
	return outcome, nil
}

// convertAll downloads and converts every unique attachment with a bounded
// worker pool. Each worker writes to a path derived from the attachment's
// identity, so the indexed results slice is the only shared structure and
// each slot has exactly one writer.
func (m *Manager) convertAll(ctx context.Context, plan *Plan, downloadsDir string) ([]convert.Result, error) {
	refs := plan.Index.Unique()
	results := make([]convert.Result, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Run.Workers)
	for i, ref := range refs {
		g.Go(func() error {
			dir := filepath.Join(downloadsDir, plan.Month, ref.Tickets[0].ID)
			convertedDir := filepath.Join(dir, "converted")
			workCtx := services.WithItemID(gctx, ref.Tickets[0].ID)
			workCtx = services.WithAssetID(workCtx, ref.Attachment.ID)

			src, err := m.downloader.Fetch(workCtx, ref.Attachment, dir)
			if err != nil {
				// A failed download degrades to a placeholder the same way a
				// failed conversion does.
				if err := fileutil.EnsureDir(convertedDir); err != nil {
					return err
				}
				dest := filepath.Join(convertedDir,
					fileutil.StripExt(filepath.Base(download.DestPath(dir, ref.Attachment)))+".pdf")
				if werr := convert.WritePlaceholder(dest, convert.FailedMessage(ref.Attachment.Name)); werr != nil {
					return werr
				}
				results[i] = convert.Result{Success: false, Path: dest, Warning: err.Error()}
				return nil
			}

			result, err := m.dispatcher.Convert(workCtx, src, ref.Attachment.Extension, convertedDir)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// verifyRun re-checks the processed set against an independent full fetch.
// Failures here are reported, never fatal.
func (m *Manager) verifyRun(ctx context.Context, plan *Plan) verify.Result {
	processed := make(map[string]struct{}, len(plan.Items))
	for _, item := range plan.Items {
		processed[item.ID] = struct{}{}
	}
	result, err := verify.Run(ctx, m.client, verify.Params{
		BoardID:        m.cfg.Board.ID,
		Month:          plan.Month,
		RequiredStatus: m.cfg.Board.StatusLabelRequired,
		Columns: tickets.Columns{
			Status:    m.cfg.Board.Columns.Status,
			OpenDate:  m.cfg.Board.Columns.OpenDate,
			CloseDate: m.cfg.Board.Columns.CloseDate,
		},
		PageSize:  m.cfg.Run.PageSize,
		Processed: processed,
	}, m.logger)
	if err != nil {
		m.logger.Warn("verification pass failed", logging.Error(err))
		return verify.Result{}
	}
	return result
}
