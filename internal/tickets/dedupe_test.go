package tickets

import "testing"

func TestBuildIndexSharedAttachment(t *testing.T) {
	// Items A and C share report.pdf; B carries photo.jpg.
	items := []Item{
		item("1", "A", "2024-06-01", "Resolved", att("10", "report.pdf")),
		item("2", "B", "2024-06-02", "Resolved", att("11", "photo.jpg")),
		item("3", "C", "2024-06-03", "Resolved", att("12", "report.pdf")),
	}

	idx := BuildIndex(items)
	if idx.Len() != 2 {
		t.Fatalf("expected 2 unique attachments, got %d", idx.Len())
	}
	if idx.TotalRefs() != 3 {
		t.Fatalf("expected 3 references, got %d", idx.TotalRefs())
	}
	if idx.DuplicateSavings() != 1 {
		t.Fatalf("expected savings 1, got %d", idx.DuplicateSavings())
	}

	entry, ok := idx.Lookup("report.pdf")
	if !ok {
		t.Fatal("report.pdf missing from index")
	}
	if len(entry.Tickets) != 2 || entry.Tickets[0].Name != "A" || entry.Tickets[1].Name != "C" {
		t.Fatalf("unexpected reference list %+v", entry.Tickets)
	}
	if !entry.Shared() {
		t.Fatal("report.pdf must report as shared")
	}
	// The canonical attachment is the first occurrence.
	if entry.Attachment.ID != "10" {
		t.Fatalf("first occurrence must be canonical, got id %s", entry.Attachment.ID)
	}

	shared := idx.SharedEntries()
	if len(shared) != 1 || shared[0].Attachment.Name != "report.pdf" {
		t.Fatalf("unexpected shared entries %+v", shared)
	}
}

func TestBuildIndexIntraItemDuplicates(t *testing.T) {
	// Same asset attached twice to one item registers once.
	items := []Item{
		item("1", "A", "2024-06-01", "Resolved", att("10", "report.pdf"), att("10", "report.pdf")),
	}
	idx := BuildIndex(items)
	if idx.Len() != 1 || idx.TotalRefs() != 1 {
		t.Fatalf("intra-item duplicate not suppressed: len=%d refs=%d", idx.Len(), idx.TotalRefs())
	}
	if TotalAttachmentRefs(items) != idx.TotalRefs() {
		t.Fatal("TotalAttachmentRefs must agree with index registration")
	}
}

func TestBuildIndexDistinctIDsSameName(t *testing.T) {
	// Same name under different asset ids within one item is still two
	// intra-item entries, but only one cross-item canonical.
	items := []Item{
		item("1", "A", "2024-06-01", "Resolved", att("10", "report.pdf"), att("11", "report.pdf")),
	}
	idx := BuildIndex(items)
	if idx.Len() != 1 {
		t.Fatalf("expected 1 unique name, got %d", idx.Len())
	}
	if idx.TotalRefs() != 2 {
		t.Fatalf("expected 2 references, got %d", idx.TotalRefs())
	}
}

func TestUniqueOrderIsFirstOccurrence(t *testing.T) {
	items := []Item{
		item("1", "A", "2024-06-01", "Resolved", att("10", "b.pdf"), att("11", "a.pdf")),
		item("2", "B", "2024-06-02", "Resolved", att("12", "a.pdf"), att("13", "c.pdf")),
	}
	idx := BuildIndex(items)
	got := idx.Unique()
	want := []string{"b.pdf", "a.pdf", "c.pdf"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Attachment.Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Attachment.Name)
		}
	}
}

func TestIndexUniqueNeverExceedsRefs(t *testing.T) {
	items := []Item{
		item("1", "A", "2024-06-01", "Resolved", att("10", "x.pdf")),
		item("2", "B", "2024-06-02", "Resolved", att("11", "y.pdf")),
	}
	idx := BuildIndex(items)
	if idx.Len() > idx.TotalRefs() {
		t.Fatal("unique count must never exceed total references")
	}
	// Equality holds iff no name repeats across items.
	if idx.Len() != idx.TotalRefs() {
		t.Fatal("expected equality when no attachment name repeats")
	}
}
