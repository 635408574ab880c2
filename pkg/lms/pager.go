package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// UpstreamError indicates a failed request against the remote LMS API.
// Source names the logical collection that failed (courses, assignments, ...).
type UpstreamError struct {
	Source string
	Status int
	URL    string
	Err    error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lms %s fetch failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("lms %s fetch failed: status %d from %s", e.Source, e.Status, e.URL)
}

// Unwrap returns the underlying transport error, if any
func (e *UpstreamError) Unwrap() error { return e.Err }

// Pager fetches a cursor-paginated LMS collection. The pagination cursor is
// communicated via the Link response header with rel="next"; the pager follows
// only server-provided links and never synthesizes page URLs, so recursion is
// bounded by the pages the server declares.
type Pager struct {
	client *http.Client
	token  string
}

// NewPager creates a pager with the given bearer credential and per-request timeout
func NewPager(token string, timeout time.Duration) *Pager {
	return &Pager{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		token: token,
	}
}

// FetchAll retrieves every page of the collection starting at startURL and
// returns the raw array elements concatenated in page order. Any non-success
// page fails the whole fetch with an UpstreamError.
func (p *Pager) FetchAll(ctx context.Context, source, startURL string) ([]json.RawMessage, error) {
	var all []json.RawMessage

	next := startURL
	for next != "" {
		page, nextLink, err := p.fetchPage(ctx, source, next)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = nextLink
	}

	return all, nil
}

// fetchPage retrieves a single page and the server-declared next link, if any
func (p *Pager) fetchPage(ctx context.Context, source, pageURL string) (items []json.RawMessage, next string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request for %s: %w", pageURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", &UpstreamError{Source: source, URL: pageURL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &UpstreamError{Source: source, Status: resp.StatusCode, URL: pageURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, "", fmt.Errorf("decode %s page %s: %w", source, pageURL, err)
	}

	return items, nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" target from a Link response header,
// returning empty when the header declares no next page
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
