package monday

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ticketpdf/internal/services"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := New(Config{URL: serverURL, Token: "test-token"}, WithSleeper(func(d time.Duration) {}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestFirstItemsPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-token" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Variables["limit"].(float64) != 500 {
			t.Errorf("unexpected limit %v", req.Variables["limit"])
		}
		payload := map[string]any{
			"data": map[string]any{
				"boards": []any{
					map[string]any{
						"items_page": map[string]any{
							"cursor": "cursor-1",
							"items": []any{
								map[string]any{
									"id":   "101",
									"name": "Ticket A",
									"assets": []any{
										map[string]any{"id": "9", "name": "report.pdf", "file_extension": "pdf", "public_url": "http://x/report.pdf"},
									},
									"column_values": []any{
										map[string]any{"id": "status95", "text": "Resolved", "index": 1, "label": "Resolved"},
									},
								},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	page, err := newTestClient(t, server.URL).FirstItemsPage(context.Background(), "12345", 500, []string{"status95"})
	if err != nil {
		t.Fatalf("FirstItemsPage returned error: %v", err)
	}
	if page.Cursor != "cursor-1" {
		t.Fatalf("unexpected cursor %q", page.Cursor)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Ticket A" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if got := page.Items[0].Assets[0].DownloadURL(); got != "http://x/report.pdf" {
		t.Fatalf("unexpected download url %q", got)
	}
}

func TestFirstFilteredPageSendsQueryRules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		dateRange, ok := req.Variables["dateRange"].([]any)
		if !ok || len(dateRange) != 2 || dateRange[0] != "2024-06-01" || dateRange[1] != "2024-06-30" {
			t.Errorf("unexpected dateRange %v", req.Variables["dateRange"])
		}
		statusIndex, ok := req.Variables["statusIndex"].([]any)
		if !ok || len(statusIndex) != 1 || statusIndex[0].(float64) != 1 {
			t.Errorf("unexpected statusIndex %v", req.Variables["statusIndex"])
		}
		payload := map[string]any{
			"data": map[string]any{
				"boards": []any{
					map[string]any{
						"items_page": map[string]any{"cursor": "", "items": []any{}},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FirstFilteredPage(context.Background(), ItemsQuery{
		BoardID:        "12345",
		Limit:          500,
		ColumnIDs:      []string{"status95", "date4", "date_closed"},
		DateColumnID:   "date4",
		DateFrom:       "2024-06-01",
		DateTo:         "2024-06-30",
		StatusColumnID: "status95",
		StatusIndex:    1,
	})
	if err != nil {
		t.Fatalf("FirstFilteredPage returned error: %v", err)
	}
}

func TestNextItemsPageEndOfPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"data": map[string]any{
				"next_items_page": map[string]any{
					"cursor": "",
					"items":  []any{},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	page, err := newTestClient(t, server.URL).NextItemsPage(context.Background(), "cursor-1", 500, nil)
	if err != nil {
		t.Fatalf("NextItemsPage returned error: %v", err)
	}
	if page.Cursor != "" {
		t.Fatalf("expected empty cursor, got %q", page.Cursor)
	}
}

func TestGraphQLErrorsFieldIsFatalWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		payload := map[string]any{
			"data":   map[string]any{},
			"errors": []any{map[string]any{"message": "bad query"}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FirstItemsPage(context.Background(), "12345", 500, nil)
	if err == nil {
		t.Fatal("expected error from errors field")
	}
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal classification, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fatal response must not be retried, got %d calls", got)
	}
}

func TestServerErrorRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		payload := map[string]any{
			"data": map[string]any{
				"next_items_page": map[string]any{"cursor": "", "items": []any{}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	if _, err := newTestClient(t, server.URL).NextItemsPage(context.Background(), "c", 500, nil); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).NextItemsPage(context.Background(), "c", 500, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 5 attempts") {
		t.Fatalf("exhausted error should carry the attempt count, got %v", err)
	}
	if got := calls.Load(); got != 5 {
		t.Fatalf("expected 5 attempts, got %d", got)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).NextItemsPage(context.Background(), "c", 500, nil)
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "not retryable") {
		t.Fatalf("client error should be marked not retryable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", got)
	}
}

func TestStatusColumnSettings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"data": map[string]any{
				"boards": []any{
					map[string]any{
						"columns": []any{
							map[string]any{"id": "status95", "settings_str": `{"labels":{"0":"Open","1":"Resolved"}}`},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	settings, err := newTestClient(t, server.URL).StatusColumnSettings(context.Background(), "12345", "status95")
	if err != nil {
		t.Fatalf("StatusColumnSettings returned error: %v", err)
	}
	idx, err := StatusIndex(settings, "resolved")
	if err != nil {
		t.Fatalf("StatusIndex returned error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
}

func TestStatusIndexMissingLabel(t *testing.T) {
	_, err := StatusIndex(`{"labels":{"0":"Open"}}`, "Resolved")
	if err == nil {
		t.Fatal("expected error for missing label")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration classification, got %v", err)
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error without token")
	}
}
