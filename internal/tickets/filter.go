package tickets

import (
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// StatusMatches compares status labels under Unicode case folding.
func StatusMatches(status, required string) bool {
	status = strings.TrimSpace(status)
	if status == "" {
		return false
	}
	return fold.String(status) == fold.String(required)
}

// Qualifies reports whether the item matches the month and status
// predicates. The month check is substring containment on the rendered date
// string, not a calendar-range comparison.
func Qualifies(item Item, month, requiredStatus string) bool {
	if !StatusMatches(item.Status, requiredStatus) {
		return false
	}
	return item.OpenDate != "" && strings.Contains(item.OpenDate, month)
}

// Filter selects items that qualify for the month and status and carry at
// least one attachment. Pure and order preserving.
func Filter(items []Item, month, requiredStatus string) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if !Qualifies(item, month, requiredStatus) {
			continue
		}
		if len(item.Attachments) == 0 {
			continue
		}
		out = append(out, item)
	}
	return out
}

// TotalAttachmentRefs counts attachment references across items after
// intra-item duplicate suppression, matching what the deduplication index
// registers.
func TotalAttachmentRefs(items []Item) int {
	total := 0
	for _, item := range items {
		total += len(dedupeWithinItem(item.Attachments))
	}
	return total
}
