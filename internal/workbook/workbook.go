// Package workbook exports the multi-sheet summary workbook reviewed
// alongside the merged report. Every sheet is computed from the same items
// and deduplication index as the PDF summary so the two artifacts agree on
// all counts.
package workbook

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ticketpdf/internal/tickets"
)

const (
	sheetSummary = "Summary"
	sheetDetail  = "Tickets Detail"
	sheetShared  = "Shared Attachments"

	descriptionLimit = 100
)

// Filename returns the workbook name for a reporting month.
func Filename(month string) string {
	return fmt.Sprintf("%s-Resolved-Tickets-Summary.xlsx", month)
}

// Generate writes the workbook to path. The shared-attachments sheet is
// only present when at least one attachment is referenced by multiple
// tickets.
func Generate(path, month string, items []tickets.Item, idx *tickets.AttachmentIndex) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := buildSummarySheet(f, month, items, idx); err != nil {
		return err
	}
	if err := buildDetailSheet(f, items, idx); err != nil {
		return err
	}
	if shared := idx.SharedEntries(); len(shared) > 0 {
		if err := buildSharedSheet(f, shared); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func buildSummarySheet(f *excelize.File, month string, items []tickets.Item, idx *tickets.AttachmentIndex) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9D9D9"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	setCell := func(cell string, value any) {
		_ = f.SetCellValue(sheetSummary, cell, value)
	}

	setCell("A1", fmt.Sprintf("Resolved Tickets Summary - %s", month))
	_ = f.SetCellStyle(sheetSummary, "A1", "A1", titleStyle)
	_ = f.MergeCell(sheetSummary, "A1", "C1")
	setCell("A3", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")))

	withAttachments := 0
	for _, item := range items {
		if len(item.Attachments) > 0 {
			withAttachments++
		}
	}
	stats := []struct {
		name  string
		value int
	}{
		{"Total Resolved Tickets", len(items)},
		{"Total Attachments", idx.TotalRefs()},
		{"Unique Attachments (After Deduplication)", idx.Len()},
		{"Duplicate Attachments Removed", idx.DuplicateSavings()},
		{"Shared Attachment Files", len(idx.SharedEntries())},
		{"Tickets with Attachments", withAttachments},
		{"Tickets without Attachments", len(items) - withAttachments},
	}
	row := 5
	for _, stat := range stats {
		setCell(fmt.Sprintf("A%d", row), stat.name)
		setCell(fmt.Sprintf("B%d", row), stat.value)
		_ = f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
		row++
	}

	row += 2
	setCell(fmt.Sprintf("A%d", row), "Ticket Status Breakdown")
	_ = f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), sectionStyle)
	row++
	for _, line := range statusBreakdown(items) {
		setCell(fmt.Sprintf("A%d", row), line.status)
		setCell(fmt.Sprintf("B%d", row), line.count)
		row++
	}

	if earliest, latest, ok := dateRange(items); ok {
		row += 2
		setCell(fmt.Sprintf("A%d", row), "Date Analysis")
		_ = f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), sectionStyle)
		row++
		setCell(fmt.Sprintf("A%d", row), "Earliest Ticket Date")
		setCell(fmt.Sprintf("B%d", row), earliest)
		row++
		setCell(fmt.Sprintf("A%d", row), "Latest Ticket Date")
		setCell(fmt.Sprintf("B%d", row), latest)
	}

	return f.SetColWidth(sheetSummary, "A", "A", 42)
}

func buildDetailSheet(f *excelize.File, items []tickets.Item, idx *tickets.AttachmentIndex) error {
	if _, err := f.NewSheet(sheetDetail); err != nil {
		return err
	}
	headers := []string{
		"Ticket #", "Item ID", "Date Opened", "Date Closed", "Status",
		"Summary", "Attachments Count", "Attachment Files", "Has Shared Attachments",
	}
	if err := writeHeaderRow(f, sheetDetail, headers); err != nil {
		return err
	}

	for i, item := range items {
		row := i + 2
		values := []any{
			item.Name,
			item.ID,
			item.OpenDate,
			item.CloseDate,
			item.Status,
			Truncate(item.Description, descriptionLimit),
			len(item.Attachments),
			attachmentPreview(item.Attachments),
			yesNo(hasSharedAttachment(item, idx)),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetDetail, cell, value); err != nil {
				return err
			}
		}
	}

	if len(items) > 0 {
		last, err := excelize.CoordinatesToCellName(len(headers), len(items)+1)
		if err != nil {
			return err
		}
		stripes := true
		if err := f.AddTable(sheetDetail, &excelize.Table{
			Range:          "A1:" + last,
			Name:           "TicketsTable",
			StyleName:      "TableStyleMedium9",
			ShowRowStripes: &stripes,
		}); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetDetail, "A", "I", 24)
}

func buildSharedSheet(f *excelize.File, shared []*tickets.AttachmentRef) error {
	if _, err := f.NewSheet(sheetShared); err != nil {
		return err
	}
	if err := writeHeaderRow(f, sheetShared, []string{"Attachment Filename", "Usage Count", "Tickets Using This File"}); err != nil {
		return err
	}
	for i, entry := range shared {
		row := i + 2
		names := make([]string, 0, len(entry.Tickets))
		for _, ref := range entry.Tickets {
			names = append(names, ref.Name)
		}
		_ = f.SetCellValue(sheetShared, fmt.Sprintf("A%d", row), entry.Attachment.Name)
		_ = f.SetCellValue(sheetShared, fmt.Sprintf("B%d", row), len(entry.Tickets))
		_ = f.SetCellValue(sheetShared, fmt.Sprintf("C%d", row), strings.Join(names, ", "))
	}

	stripes := true
	if err := f.AddTable(sheetShared, &excelize.Table{
		Range:          fmt.Sprintf("A1:C%d", len(shared)+1),
		Name:           "SharedAttachmentsTable",
		StyleName:      "TableStyleMedium12",
		ShowRowStripes: &stripes,
	}); err != nil {
		return err
	}
	return f.SetColWidth(sheetShared, "C", "C", 60)
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	return nil
}

// Truncate shortens value to limit runes, marking the cut with an ellipsis.
func Truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func attachmentPreview(attachments []tickets.Attachment) string {
	if len(attachments) == 0 {
		return "No attachments"
	}
	names := make([]string, 0, 3)
	for i, att := range attachments {
		if i == 3 {
			break
		}
		names = append(names, att.Name)
	}
	preview := strings.Join(names, ", ")
	if extra := len(attachments) - 3; extra > 0 {
		preview += fmt.Sprintf(" ... (+%d more)", extra)
	}
	return preview
}

func hasSharedAttachment(item tickets.Item, idx *tickets.AttachmentIndex) bool {
	for _, att := range item.Attachments {
		if entry, ok := idx.Lookup(att.Name); ok && entry.Shared() {
			return true
		}
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

type statusCount struct {
	status string
	count  int
}

func statusBreakdown(items []tickets.Item) []statusCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, item := range items {
		status := item.Status
		if status == "" {
			status = "Unknown"
		}
		if _, seen := counts[status]; !seen {
			order = append(order, status)
		}
		counts[status]++
	}
	out := make([]statusCount, 0, len(order))
	for _, status := range order {
		out = append(out, statusCount{status, counts[status]})
	}
	return out
}

func dateRange(items []tickets.Item) (string, string, bool) {
	var earliest, latest time.Time
	found := false
	for _, item := range items {
		parsed, err := time.Parse("2006-01-02", item.OpenDate)
		if err != nil {
			continue
		}
		if !found || parsed.Before(earliest) {
			earliest = parsed
		}
		if !found || parsed.After(latest) {
			latest = parsed
		}
		found = true
	}
	if !found {
		return "", "", false
	}
	return earliest.Format("2006-01-02"), latest.Format("2006-01-02"), true
}
