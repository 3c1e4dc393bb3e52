package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ticketpdf/internal/services"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	URL            string
	Token          string
	Version        string
	TimeoutSeconds int
}

// Client wraps the tracking service's GraphQL API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// New constructs a client using the supplied configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.URL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "monday", "new", "api url required", nil)
	}
	if cfg.Token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "monday", "new", "api token required", nil)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// StatusColumnSettings fetches the settings_str of the given status column,
// consumed once per run to resolve the required label's index.
func (c *Client) StatusColumnSettings(ctx context.Context, boardID, columnID string) (string, error) {
	data, err := c.graphql(ctx, "status_column", queryStatusColumn, map[string]any{
		"boardId":  []string{boardID},
		"columnId": []string{columnID},
	})
	if err != nil {
		return "", err
	}
	var envelope boardsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", services.Wrap(services.ErrFatal, "monday", "status_column", "decode response", err)
	}
	if len(envelope.Boards) == 0 || len(envelope.Boards[0].Columns) == 0 {
		return "", services.Wrap(services.ErrFatal, "monday", "status_column",
			fmt.Sprintf("column %q not found on board %s", columnID, boardID), nil)
	}
	return envelope.Boards[0].Columns[0].SettingsStr, nil
}

// ItemsQuery carries the server-side filter for the first report page: the
// open-date column bounded to the reporting month and the status column
// pinned to the required label's index.
type ItemsQuery struct {
	BoardID        string
	Limit          int
	ColumnIDs      []string
	DateColumnID   string
	DateFrom       string
	DateTo         string
	StatusColumnID string
	StatusIndex    int
}

// FirstFilteredPage fetches the first page of items matching the query's
// date-range and status rules. Subsequent pages come from NextItemsPage;
// the cursor carries the filter.
func (c *Client) FirstFilteredPage(ctx context.Context, q ItemsQuery) (ItemsPage, error) {
	data, err := c.graphql(ctx, "items_page", queryFilteredItemsPage, map[string]any{
		"boardId":      []string{q.BoardID},
		"limit":        q.Limit,
		"columnIds":    q.ColumnIDs,
		"dateColumn":   q.DateColumnID,
		"dateRange":    []string{q.DateFrom, q.DateTo},
		"statusColumn": q.StatusColumnID,
		"statusIndex":  []int{q.StatusIndex},
	})
	if err != nil {
		return ItemsPage{}, err
	}
	var envelope boardsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ItemsPage{}, services.Wrap(services.ErrFatal, "monday", "items_page", "decode response", err)
	}
	if len(envelope.Boards) == 0 || envelope.Boards[0].ItemsPage == nil {
		return ItemsPage{}, services.Wrap(services.ErrFatal, "monday", "items_page",
			fmt.Sprintf("board %s missing from response", q.BoardID), nil)
	}
	return *envelope.Boards[0].ItemsPage, nil
}

// FirstItemsPage fetches the first page of board items with no server-side
// filtering, together with the cursor for the next page. The verification
// pass uses this to re-derive the qualifying set independently.
func (c *Client) FirstItemsPage(ctx context.Context, boardID string, limit int, columnIDs []string) (ItemsPage, error) {
	data, err := c.graphql(ctx, "items_page", queryItemsPage, map[string]any{
		"boardId":   []string{boardID},
		"limit":     limit,
		"columnIds": columnIDs,
	})
	if err != nil {
		return ItemsPage{}, err
	}
	var envelope boardsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ItemsPage{}, services.Wrap(services.ErrFatal, "monday", "items_page", "decode response", err)
	}
	if len(envelope.Boards) == 0 || envelope.Boards[0].ItemsPage == nil {
		return ItemsPage{}, services.Wrap(services.ErrFatal, "monday", "items_page",
			fmt.Sprintf("board %s missing from response", boardID), nil)
	}
	return *envelope.Boards[0].ItemsPage, nil
}

// NextItemsPage fetches the page identified by the opaque cursor.
func (c *Client) NextItemsPage(ctx context.Context, cursor string, limit int, columnIDs []string) (ItemsPage, error) {
	data, err := c.graphql(ctx, "next_items_page", queryNextItemsPage, map[string]any{
		"cursor":    cursor,
		"limit":     limit,
		"columnIds": columnIDs,
	})
	if err != nil {
		return ItemsPage{}, err
	}
	var envelope nextPageEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ItemsPage{}, services.Wrap(services.ErrFatal, "monday", "next_items_page", "decode response", err)
	}
	if envelope.NextItemsPage == nil {
		return ItemsPage{}, services.Wrap(services.ErrFatal, "monday", "next_items_page", "next_items_page missing from response", nil)
	}
	return *envelope.NextItemsPage, nil
}

// StatusIndex resolves the required label to its numeric index by parsing
// the column's settings_str. A missing label is a configuration error.
func StatusIndex(settingsStr, requiredLabel string) (int, error) {
	var settings struct {
		Labels map[string]string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(settingsStr), &settings); err != nil {
		return 0, services.Wrap(services.ErrFatal, "monday", "status_index", "parse settings_str", err)
	}
	for idx, label := range settings.Labels {
		if strings.EqualFold(label, requiredLabel) {
			index, err := strconv.Atoi(idx)
			if err != nil {
				return 0, services.Wrap(services.ErrFatal, "monday", "status_index",
					fmt.Sprintf("non-numeric label index %q", idx), err)
			}
			return index, nil
		}
	}
	return 0, services.Wrap(services.ErrConfiguration, "monday", "status_index",
		fmt.Sprintf("status label %q not found", requiredLabel), nil)
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// graphql executes one query with retry. Only transient conditions are
// retried; a response carrying a GraphQL errors field fails immediately.
func (c *Client) graphql(ctx context.Context, op, query string, variables map[string]any) (json.RawMessage, error) {
	attempts := c.retryAttempts()

	for attempt := 1; ; attempt++ {
		data, err := c.sendOnce(ctx, query, variables)
		if err == nil {
			return data, nil
		}
		if services.Fatal(err) {
			return nil, err
		}
		if !c.retryable(ctx, err) {
			return nil, services.Wrap(services.ErrTransient, "monday", op, "not retryable", err)
		}
		if attempt >= attempts {
			return nil, services.Wrap(services.ErrTransient, "monday", op,
				fmt.Sprintf("failed after %d attempts", attempts), err)
		}
		if sleepErr := c.sleep(ctx, c.delayFor(err, attempt)); sleepErr != nil {
			return nil, services.Wrap(services.ErrTransient, "monday", op, "canceled during backoff", sleepErr)
		}
	}
}

func (c *Client) sendOnce(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	encoded, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "monday", "request", "encode body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "monday", "request", "new request", err)
	}
	req.Header.Set("Authorization", c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Version != "" {
		req.Header.Set("API-Version", c.cfg.Version)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []apiError      `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, services.Wrap(services.ErrFatal, "monday", "request", "decode response", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, apiErr := range envelope.Errors {
			messages = append(messages, apiErr.Message)
		}
		return nil, services.Wrap(services.ErrFatal, "monday", "request",
			"api errors: "+strings.Join(messages, "; "), nil)
	}
	if len(envelope.Data) == 0 {
		return nil, services.Wrap(services.ErrFatal, "monday", "request", "response missing data field", nil)
	}
	return envelope.Data, nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// retryable reports whether err is a transient condition worth another
// attempt. Client errors other than 408 and 429 are not.
func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// delayFor honors a server-supplied Retry-After when present, otherwise
// backs off exponentially.
func (c *Client) delayFor(err error, attempt int) time.Duration {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return c.capDelay(statusErr.RetryAfter)
	}
	return c.backoffDelay(attempt)
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
