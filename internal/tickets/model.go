package tickets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticketpdf/internal/services/monday"
)

// Attachment is one file referenced by an item. Two attachments with the
// same name on different items are treated as the same logical file.
type Attachment struct {
	ID        string
	Name      string
	Extension string
	SourceURL string
	Size      int64
}

// Item is a tracked work record for the reporting month. Immutable once
// materialized from a remote page.
type Item struct {
	ID          string
	Name        string
	OpenDate    string
	CloseDate   string
	Status      string
	Description string
	Attachments []Attachment
}

// Columns names the board columns consulted when materializing items.
type Columns struct {
	Status    string
	OpenDate  string
	CloseDate string
}

// Materialize converts one page of remote items into domain items using the
// configured column mapping.
func Materialize(items []monday.Item, cols Columns) []Item {
	out := make([]Item, 0, len(items))
	for _, raw := range items {
		item := Item{
			ID:        raw.ID,
			Name:      raw.Name,
			OpenDate:  raw.ColumnText(cols.OpenDate),
			CloseDate: raw.ColumnText(cols.CloseDate),
			Status:    raw.ColumnText(cols.Status),
		}
		for _, asset := range raw.Assets {
			item.Attachments = append(item.Attachments, Attachment{
				ID:        asset.ID,
				Name:      asset.Name,
				Extension: strings.ToLower(strings.TrimPrefix(asset.FileExtension, ".")),
				SourceURL: asset.DownloadURL(),
				Size:      asset.Size,
			})
		}
		out = append(out, item)
	}
	return out
}

// Accumulator collects items across pagination pages, dropping identifiers
// already seen so an item appears in the result set at most once.
type Accumulator struct {
	seen  map[string]struct{}
	items []Item
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Add appends items not yet seen, preserving arrival order.
func (a *Accumulator) Add(items ...Item) {
	for _, item := range items {
		if _, dup := a.seen[item.ID]; dup {
			continue
		}
		a.seen[item.ID] = struct{}{}
		a.items = append(a.items, item)
	}
}

// Items returns the accumulated items in arrival order.
func (a *Accumulator) Items() []Item {
	return a.items
}

// Len reports the number of accumulated items.
func (a *Accumulator) Len() int {
	return len(a.items)
}

// MonthRange expands a YYYY-MM month string into its first and last day.
func MonthRange(month string) (string, string, error) {
	parts := strings.SplitN(month, "-", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("month must be YYYY-MM, got %q", month)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("month must be YYYY-MM, got %q", month)
	}
	mon, err := strconv.Atoi(parts[1])
	if err != nil || mon < 1 || mon > 12 {
		return "", "", fmt.Errorf("month must be YYYY-MM, got %q", month)
	}
	first := time.Date(year, time.Month(mon), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02"), nil
}
