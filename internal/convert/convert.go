// Package convert maps file extensions to conversion strategies and
// guarantees that every input yields a PDF: real content when a strategy
// succeeds, a placeholder page otherwise. A failing conversion never aborts
// the run.
package convert

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"ticketpdf/internal/fileutil"
	"ticketpdf/internal/logging"
	"ticketpdf/internal/services"
)

// Strategy tags how one extension is converted.
type Strategy int

const (
	// StrategyCopy passes already-PDF inputs through unchanged.
	StrategyCopy Strategy = iota
	// StrategyOffice converts documents, sheets, slides, text, and CSV via
	// the headless office suite.
	StrategyOffice
	// StrategyImage imports raster images into a PDF page.
	StrategyImage
	// StrategyMarkup renders HTML, only when enabled in configuration.
	StrategyMarkup
	// StrategyPlaceholder synthesizes a page for unsupported types.
	StrategyPlaceholder
)

var strategyByExt = map[string]Strategy{
	"pdf":  StrategyCopy,
	"docx": StrategyOffice,
	"xlsx": StrategyOffice,
	"pptx": StrategyOffice,
	"csv":  StrategyOffice,
	"txt":  StrategyOffice,
	"png":  StrategyImage,
	"jpg":  StrategyImage,
	"jpeg": StrategyImage,
	"webp": StrategyImage,
	"html": StrategyMarkup,
}

// Result is the uniform outcome of one conversion. Placeholder substitution
// is explicit rather than signalled through errors: Success is false and
// Warning carries the cause while Path still points at a usable document.
type Result struct {
	Success bool
	Path    string
	Warning string
}

// OfficeConverter converts office documents into outDir and returns the
// produced PDF path.
type OfficeConverter interface {
	Convert(ctx context.Context, src, outDir string) (string, error)
}

// MarkupConverter renders markup at src into the PDF at dest.
type MarkupConverter interface {
	Convert(ctx context.Context, src, dest string) error
}

// Dispatcher routes files to conversion strategies by extension.
type Dispatcher struct {
	office        OfficeConverter
	markup        MarkupConverter
	markupEnabled bool
	logger        *slog.Logger
}

// NewDispatcher builds a dispatcher. markup may be nil when markupEnabled
// is false.
func NewDispatcher(office OfficeConverter, markup MarkupConverter, markupEnabled bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		office:        office,
		markup:        markup,
		markupEnabled: markupEnabled,
		logger:        logging.NewComponentLogger(logger, "convert"),
	}
}

// Convert produces a PDF for src inside outDir. The only error condition is
// a missing input file; every strategy failure (process error, timeout,
// unreadable image) is masked with a placeholder document so one broken
// attachment cannot abort the run.
func (d *Dispatcher) Convert(ctx context.Context, src, ext, outDir string) (Result, error) {
	if src == "" {
		return Result{}, services.Wrap(services.ErrNotFound, "convert", "dispatch", "empty input path", nil)
	}
	if _, err := os.Stat(src); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "convert", "dispatch", src, err)
	}
	if err := fileutil.EnsureDir(outDir); err != nil {
		return Result{}, err
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	dest := filepath.Join(outDir, fileutil.StripExt(filepath.Base(src))+".pdf")
	name := filepath.Base(src)

	attrs := func(extra ...logging.Attr) []logging.Attr {
		out := []logging.Attr{logging.String("file", name)}
		if itemID, ok := services.ItemIDFromContext(ctx); ok {
			out = append(out, logging.String(logging.FieldItemID, itemID))
		}
		if assetID, ok := services.AssetIDFromContext(ctx); ok {
			out = append(out, logging.String(logging.FieldAssetID, assetID))
		}
		return append(out, extra...)
	}

	strategy, known := strategyByExt[ext]
	switch {
	case !known:
		strategy = StrategyPlaceholder
	case strategy == StrategyMarkup && !d.markupEnabled:
		strategy = StrategyPlaceholder
	}

	var err error
	switch strategy {
	case StrategyCopy:
		err = fileutil.CopyFile(src, dest)
	case StrategyOffice:
		var produced string
		produced, err = d.office.Convert(ctx, src, outDir)
		if err == nil {
			dest = produced
		}
	case StrategyImage:
		err = api.ImportImagesFile([]string{src}, dest, nil, nil)
	case StrategyMarkup:
		err = d.markup.Convert(ctx, src, dest)
	case StrategyPlaceholder:
		if werr := WritePlaceholder(dest, unsupportedMessage(name)); werr != nil {
			return Result{}, werr
		}
		result := Result{Success: false, Path: dest, Warning: "unsupported type"}
		logging.Event(d.logger, "convert", logging.OutcomeFailure,
			attrs(logging.String(logging.FieldWarning, result.Warning))...)
		return result, nil
	}

	if err != nil {
		// Always emit the placeholder; conversion failure is masked.
		err = services.Wrap(services.ErrConversion, "convert", name, "", err)
		if werr := WritePlaceholder(dest, FailedMessage(name)); werr != nil {
			return Result{}, werr
		}
		result := Result{Success: false, Path: dest, Warning: err.Error()}
		logging.Event(d.logger, "convert", logging.OutcomeFailure,
			attrs(logging.String(logging.FieldWarning, result.Warning))...)
		return result, nil
	}

	logging.Event(d.logger, "convert", logging.OutcomeSuccess, attrs()...)
	return Result{Success: true, Path: dest}, nil
}
