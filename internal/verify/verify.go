// Package verify re-fetches the full board after assembly and reports any
// qualifying item missing from the processed set. Findings are advisory:
// a verification failure never blocks or alters the produced report.
package verify

import (
	"context"
	"log/slog"

	"ticketpdf/internal/logging"
	"ticketpdf/internal/services"
	"ticketpdf/internal/services/monday"
	"ticketpdf/internal/tickets"
)

// Fetcher pages over the full board without server-side filtering.
type Fetcher interface {
	FirstItemsPage(ctx context.Context, boardID string, limit int, columnIDs []string) (monday.ItemsPage, error)
	NextItemsPage(ctx context.Context, cursor string, limit int, columnIDs []string) (monday.ItemsPage, error)
}

// Params carries everything the pass needs to re-derive the qualifying set.
type Params struct {
	BoardID        string
	Month          string
	RequiredStatus string
	Columns        tickets.Columns
	PageSize       int

	// Processed holds the identifiers of items included in the report.
	Processed map[string]struct{}
}

// Result describes the comparison between the fresh fetch and the
// processed set.
type Result struct {
	Fetched   int
	Qualified int
	Missing   []tickets.Item
}

// Clean reports whether the processed set covered every qualifying item.
func (r Result) Clean() bool {
	return len(r.Missing) == 0
}

// Run fetches every board item, applies the month and status predicates
// locally (deliberately ignoring attachment presence), and lists qualifying
// items absent from the processed set. A fetch error aborts the pass but the
// caller treats it as a warning.
func Run(ctx context.Context, fetcher Fetcher, params Params, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "verify")

	var result Result
	columnIDs := []string{params.Columns.Status, params.Columns.OpenDate, params.Columns.CloseDate}
	page, err := fetcher.FirstItemsPage(ctx, params.BoardID, params.PageSize, columnIDs)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "verify", "refetch", "fetching first verification page", err)
	}
	acc := tickets.NewAccumulator()
	acc.Add(tickets.Materialize(page.Items, params.Columns)...)
	for page.Cursor != "" {
		page, err = fetcher.NextItemsPage(ctx, page.Cursor, params.PageSize, columnIDs)
		if err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "verify", "refetch", "fetching verification page", err)
		}
		acc.Add(tickets.Materialize(page.Items, params.Columns)...)
	}
	result.Fetched = acc.Len()

	for _, item := range acc.Items() {
		if !tickets.Qualifies(item, params.Month, params.RequiredStatus) {
			continue
		}
		result.Qualified++
		if _, ok := params.Processed[item.ID]; !ok {
			result.Missing = append(result.Missing, item)
		}
	}

	if result.Clean() {
		logging.Event(logger, "verify", logging.OutcomeSuccess,
			slog.Int("fetched", result.Fetched),
			slog.Int("qualified", result.Qualified))
		return result, nil
	}
	for _, item := range result.Missing {
		logger.Warn("qualifying item missing from report",
			slog.String(logging.FieldItemID, item.ID),
			slog.String("name", item.Name),
			slog.String("open_date", item.OpenDate))
	}
	logging.Event(logger, "verify", logging.OutcomeFailure,
		slog.Int("qualified", result.Qualified),
		slog.Int("missing", len(result.Missing)))
	return result, nil
}
