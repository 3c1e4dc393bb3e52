package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"ticketpdf/internal/tickets"
)

func TestFetchWritesKeyedFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("file bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	att := tickets.Attachment{ID: "42", Name: "My Report (v2).pdf", Extension: "pdf", SourceURL: server.URL}

	path, err := New(5, nil).Fetch(context.Background(), att, dir)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if filepath.Base(path) != "42-My_Report__v2__pdf.pdf" {
		t.Fatalf("unexpected destination name %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "file bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestFetchIdempotent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dir := t.TempDir()
	att := tickets.Attachment{ID: "7", Name: "a.pdf", Extension: "pdf", SourceURL: server.URL}
	d := New(5, nil)

	if _, err := d.Fetch(context.Background(), att, dir); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := d.Fetch(context.Background(), att, dir); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("existing destination must skip the download, got %d requests", got)
	}
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	att := tickets.Attachment{ID: "9", Name: "gone.pdf", Extension: "pdf", SourceURL: server.URL}
	if _, err := New(5, nil).Fetch(context.Background(), att, t.TempDir()); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetchMissingURL(t *testing.T) {
	att := tickets.Attachment{ID: "1", Name: "x.pdf", Extension: "pdf"}
	if _, err := New(5, nil).Fetch(context.Background(), att, t.TempDir()); err == nil {
		t.Fatal("expected error for missing source url")
	}
}

func TestFetchLeavesNoPartialOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("short"))
	}))
	server.Close() // fail the connection outright

	dir := t.TempDir()
	att := tickets.Attachment{ID: "3", Name: "b.pdf", Extension: "pdf", SourceURL: server.URL}
	if _, err := New(5, nil).Fetch(context.Background(), att, dir); err == nil {
		t.Fatal("expected connection error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover files, found %d", len(entries))
	}
}
