package monday

// Asset describes one file attached to a board item.
type Asset struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FileExtension string `json:"file_extension"`
	PublicURL     string `json:"public_url"`
	URL           string `json:"url"`
	Size          int64  `json:"file_size"`
}

// DownloadURL returns the preferred URL for fetching the asset bytes.
func (a Asset) DownloadURL() string {
	if a.PublicURL != "" {
		return a.PublicURL
	}
	return a.URL
}

// ColumnValue carries the rendered text of one board column on an item.
type ColumnValue struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Item is one board item as returned by the items_page queries.
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Assets       []Asset       `json:"assets"`
	ColumnValues []ColumnValue `json:"column_values"`
}

// ColumnText returns the text of the column with the given id, if present.
func (i Item) ColumnText(columnID string) string {
	for _, cv := range i.ColumnValues {
		if cv.ID == columnID {
			return cv.Text
		}
	}
	return ""
}

// ItemsPage is one page of items plus the cursor for the next page. An
// empty cursor means the final page has been reached.
type ItemsPage struct {
	Cursor string `json:"cursor"`
	Items  []Item `json:"items"`
}

type boardsEnvelope struct {
	Boards []struct {
		Columns []struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Type        string `json:"type"`
			SettingsStr string `json:"settings_str"`
		} `json:"columns"`
		ItemsPage *ItemsPage `json:"items_page"`
	} `json:"boards"`
}

type nextPageEnvelope struct {
	NextItemsPage *ItemsPage `json:"next_items_page"`
}

type apiError struct {
	Message string `json:"message"`
}
