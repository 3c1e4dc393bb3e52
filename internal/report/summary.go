// Package report renders the summary document and merges it with every
// converted attachment into the final monthly report.
package report

import (
	"fmt"

	"github.com/go-pdf/fpdf"

	"ticketpdf/internal/tickets"
)

// Page layout constants, A4 in points. Rows spill to a fresh page when the
// cursor passes pageBottom.
const (
	pageBottom   = 790.0
	rowHeight    = 18.0
	leftMargin   = 30.0
	appendixLeft = 50.0
)

type summaryWriter struct {
	doc *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

// GenerateSummary writes the cover document for the month: a title block
// with counts and deduplication savings, one table row per ticket, and a
// shared-attachment appendix when any attachment is referenced by more than
// one ticket.
func GenerateSummary(path, month, boardID string, items []tickets.Item, idx *tickets.AttachmentIndex) error {
	w := &summaryWriter{doc: fpdf.New("P", "pt", "A4", "")}
	w.tr = w.doc.UnicodeTranslatorFromDescriptor("")
	w.doc.AddPage()

	w.doc.SetFont("Helvetica", "B", 16)
	w.text(leftMargin+20, 50, fmt.Sprintf("Resolved Tickets — %s", month))
	w.doc.SetFont("Helvetica", "", 12)
	w.text(leftMargin+20, 72, fmt.Sprintf("Board: %s", boardID))
	w.text(leftMargin+20, 87, fmt.Sprintf("Total Tickets: %d", len(items)))
	w.text(leftMargin+20, 102, fmt.Sprintf("Unique Attachments: %d (saved %d duplicates)",
		idx.Len(), idx.DuplicateSavings()))

	w.y = 130
	w.tableHeader()
	w.doc.SetFont("Helvetica", "", 11)
	for i, item := range items {
		if w.y > pageBottom {
			w.doc.AddPage()
			w.y = 50
			w.tableHeader()
			w.doc.SetFont("Helvetica", "", 11)
		}
		w.text(leftMargin, w.y, fmt.Sprintf("%d", i+1))
		w.text(60, w.y, item.Name)
		w.text(220, w.y, item.OpenDate)
		w.text(330, w.y, item.CloseDate)
		w.text(460, w.y, fmt.Sprintf("%d", len(item.Attachments)))
		w.y += rowHeight
	}

	if shared := idx.SharedEntries(); len(shared) > 0 {
		w.appendix(shared)
	}

	return w.doc.OutputFileAndClose(path)
}

func (w *summaryWriter) tableHeader() {
	w.doc.SetFont("Helvetica", "B", 12)
	w.text(leftMargin, w.y, "#")
	w.text(60, w.y, "Ticket #")
	w.text(220, w.y, "Open Date")
	w.text(330, w.y, "Close Date")
	w.text(460, w.y, "Attachments")
	w.y += rowHeight + 2
}

func (w *summaryWriter) appendix(shared []*tickets.AttachmentRef) {
	w.doc.AddPage()
	w.doc.SetFont("Helvetica", "B", 16)
	w.text(appendixLeft, 50, "Shared Attachments Reference")
	w.doc.SetFont("Helvetica", "", 12)
	w.text(appendixLeft, 72, fmt.Sprintf("The following %d files appear in multiple tickets:", len(shared)))

	w.y = 100
	w.doc.SetFont("Helvetica", "", 11)
	for _, entry := range shared {
		w.appendixLine(appendixLeft, fmt.Sprintf("- %s", entry.Attachment.Name), 15)
		for _, ref := range entry.Tickets {
			w.appendixLine(appendixLeft+20, fmt.Sprintf("  %s", ref.Name), 12)
		}
		w.y += 5
	}
}

func (w *summaryWriter) appendixLine(x float64, line string, advance float64) {
	if w.y > pageBottom {
		w.doc.AddPage()
		w.doc.SetFont("Helvetica", "", 11)
		w.y = 50
	}
	w.text(x, w.y, line)
	w.y += advance
}

func (w *summaryWriter) text(x, y float64, value string) {
	w.doc.Text(x, y, w.tr(value))
}
