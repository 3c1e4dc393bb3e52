package tickets

// TicketRef identifies one item referencing an attachment.
type TicketRef struct {
	ID   string
	Name string
}

// AttachmentRef is one entry of the deduplication index: the canonical
// attachment and the ordered list of items referencing it. Two or more
// references make the attachment shared.
type AttachmentRef struct {
	Attachment Attachment
	Tickets    []TicketRef
}

// Shared reports whether more than one item references the attachment.
func (r *AttachmentRef) Shared() bool {
	return len(r.Tickets) > 1
}

// AttachmentIndex maps attachment names to their canonical attachment and
// referencing items. Entry order is first-occurrence order across items in
// retrieval order, which also fixes the conversion and merge order of the
// final report.
type AttachmentIndex struct {
	order   []string
	entries map[string]*AttachmentRef
}

// BuildIndex registers every attachment of every item, suppressing
// intra-item duplicates by (id, name) first. The first occurrence of a name
// becomes canonical; later occurrences only append their item reference.
func BuildIndex(items []Item) *AttachmentIndex {
	idx := &AttachmentIndex{entries: make(map[string]*AttachmentRef)}
	for _, item := range items {
		ref := TicketRef{ID: item.ID, Name: item.Name}
		for _, att := range dedupeWithinItem(item.Attachments) {
			entry, ok := idx.entries[att.Name]
			if !ok {
				entry = &AttachmentRef{Attachment: att}
				idx.entries[att.Name] = entry
				idx.order = append(idx.order, att.Name)
			}
			entry.Tickets = append(entry.Tickets, ref)
		}
	}
	return idx
}

// Len returns the number of unique attachment names.
func (idx *AttachmentIndex) Len() int {
	return len(idx.order)
}

// TotalRefs returns the total attachment references registered, summed
// across entries.
func (idx *AttachmentIndex) TotalRefs() int {
	total := 0
	for _, name := range idx.order {
		total += len(idx.entries[name].Tickets)
	}
	return total
}

// DuplicateSavings returns how many downloads and conversions deduplication
// avoided.
func (idx *AttachmentIndex) DuplicateSavings() int {
	return idx.TotalRefs() - idx.Len()
}

// Lookup returns the entry for name, if registered.
func (idx *AttachmentIndex) Lookup(name string) (*AttachmentRef, bool) {
	entry, ok := idx.entries[name]
	return entry, ok
}

// Unique returns the canonical attachments in first-occurrence order. These
// are exactly the attachments that need downloading and conversion.
func (idx *AttachmentIndex) Unique() []*AttachmentRef {
	out := make([]*AttachmentRef, 0, len(idx.order))
	for _, name := range idx.order {
		out = append(out, idx.entries[name])
	}
	return out
}

// SharedEntries returns the entries referenced by more than one item, in
// first-occurrence order.
func (idx *AttachmentIndex) SharedEntries() []*AttachmentRef {
	out := make([]*AttachmentRef, 0, len(idx.order))
	for _, name := range idx.order {
		if entry := idx.entries[name]; entry.Shared() {
			out = append(out, entry)
		}
	}
	return out
}

// dedupeWithinItem removes same-asset duplicates attached twice to one item,
// keyed by (id, name).
func dedupeWithinItem(attachments []Attachment) []Attachment {
	type key struct{ id, name string }
	seen := make(map[key]struct{}, len(attachments))
	out := make([]Attachment, 0, len(attachments))
	for _, att := range attachments {
		k := key{att.ID, att.Name}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, att)
	}
	return out
}
