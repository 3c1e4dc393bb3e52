package verify

import (
	"context"
	"errors"
	"testing"

	"ticketpdf/internal/logging"
	"ticketpdf/internal/services"
	"ticketpdf/internal/services/monday"
	"ticketpdf/internal/tickets"
)

type fakeFetcher struct {
	pages []monday.ItemsPage
	err   error
	calls int
}

func (f *fakeFetcher) FirstItemsPage(_ context.Context, _ string, _ int, _ []string) (monday.ItemsPage, error) {
	return f.next()
}

func (f *fakeFetcher) NextItemsPage(_ context.Context, _ string, _ int, _ []string) (monday.ItemsPage, error) {
	return f.next()
}

func (f *fakeFetcher) next() (monday.ItemsPage, error) {
	if f.err != nil {
		return monday.ItemsPage{}, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func remoteItem(id, name, openDate, status string, attachments int) monday.Item {
	item := monday.Item{
		ID:   id,
		Name: name,
		ColumnValues: []monday.ColumnValue{
			{ID: "status", Text: status},
			{ID: "opened", Text: openDate},
			{ID: "closed", Text: ""},
		},
	}
	for i := 0; i < attachments; i++ {
		item.Assets = append(item.Assets, monday.Asset{ID: "a", Name: "file.pdf", FileExtension: ".pdf"})
	}
	return item
}

func testParams(processed ...string) Params {
	set := make(map[string]struct{}, len(processed))
	for _, id := range processed {
		set[id] = struct{}{}
	}
	return Params{
		BoardID:        "99",
		Month:          "2024-06",
		RequiredStatus: "Resolved",
		Columns:        tickets.Columns{Status: "status", OpenDate: "opened", CloseDate: "closed"},
		PageSize:       500,
		Processed:      set,
	}
}

func TestRunCleanWhenAllQualifyingProcessed(t *testing.T) {
	fetcher := &fakeFetcher{pages: []monday.ItemsPage{
		{Cursor: "more", Items: []monday.Item{
			remoteItem("1", "A", "2024-06-01", "Resolved", 1),
			remoteItem("2", "B", "2024-05-20", "Resolved", 1), // wrong month
		}},
		{Items: []monday.Item{
			remoteItem("3", "C", "2024-06-15", "Open", 1), // wrong status
			remoteItem("4", "D", "2024-06-16", "Resolved", 1),
		}},
	}}

	result, err := Run(context.Background(), fetcher, testParams("1", "4"), logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Clean() {
		t.Fatalf("missing = %v, want none", result.Missing)
	}
	if result.Fetched != 4 || result.Qualified != 2 {
		t.Fatalf("fetched %d qualified %d, want 4 and 2", result.Fetched, result.Qualified)
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", fetcher.calls)
	}
}

func TestRunReportsMissingItems(t *testing.T) {
	fetcher := &fakeFetcher{pages: []monday.ItemsPage{
		{Items: []monday.Item{
			remoteItem("1", "A", "2024-06-01", "Resolved", 1),
			remoteItem("5", "Late Arrival", "2024-06-28", "Resolved", 2),
			// Attachment presence is deliberately not required here, so a
			// qualifying item dropped by the report filter gets flagged.
			remoteItem("6", "No Files", "2024-06-05", "Resolved", 0),
		}},
	}}

	result, err := Run(context.Background(), fetcher, testParams("1"), logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Missing) != 2 {
		t.Fatalf("missing = %v, want two", result.Missing)
	}
	if result.Missing[0].ID != "5" || result.Missing[0].Name != "Late Arrival" {
		t.Fatalf("first missing item = %+v", result.Missing[0])
	}
	if result.Missing[1].ID != "6" {
		t.Fatalf("second missing item = %+v", result.Missing[1])
	}
}

func TestRunFetchErrorIsTransient(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}

	_, err := Run(context.Background(), fetcher, testParams(), logging.NewNop())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
}
