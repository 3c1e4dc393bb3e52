package report

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"ticketpdf/internal/services"
)

// Merge concatenates the summary document and each converted attachment, in
// order, into outPath. A corrupt or unreadable input fails the merge: a
// silently incomplete final report is worse than no report.
func Merge(summaryPath string, docs []string, outPath string) error {
	inputs := make([]string, 0, 1+len(docs))
	inputs = append(inputs, summaryPath)
	inputs = append(inputs, docs...)
	if err := api.MergeCreateFile(inputs, outPath, false, nil); err != nil {
		return services.Wrap(services.ErrAssembly, "report", "merge", "", err)
	}
	return nil
}

// PageCount reports the page count of a PDF file.
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
