package lipana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// listItem is one entry of the transaction list
type listItem struct {
	ID     string
	Status string
}

// decodeListItem reads the id and status of one entry. Entries that are not
// objects are skipped; ids may be strings or numbers.
func decodeListItem(raw json.RawMessage) (listItem, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return listItem{}, false
	}

	item := listItem{
		ID:     scalarString(fields["transactionId"]),
		Status: scalarString(fields["status"]),
	}
	if item.ID == "" {
		item.ID = scalarString(fields["transaction_id"])
	}
	return item, true
}

// listPage is the body of GET /transactions. "data" is either the item
// array or an object wrapping it under its own "data" key.
type listPage struct {
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Pages *int `json:"pages"`
	} `json:"pagination"`
}

// parseListPage decodes a page. ok is false for malformed bodies; a single
// odd entry does not make the page malformed.
func parseListPage(body []byte) (items []listItem, totalPages int, ok bool) {
	var page listPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, false
	}

	totalPages = 1
	if page.Pagination.Pages != nil {
		totalPages = *page.Pagination.Pages
	}

	if len(page.Data) == 0 {
		return nil, totalPages, true
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(page.Data, &raw); err != nil {
		var wrapped struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(page.Data, &wrapped); err != nil {
			return nil, 0, false
		}
		raw = wrapped.Data
	}

	items = make([]listItem, 0, len(raw))
	for _, r := range raw {
		if item, ok := decodeListItem(r); ok {
			items = append(items, item)
		}
	}
	return items, totalPages, true
}

// FetchStatus implements StatusFetcher.FetchStatus.
//
// The transaction list is scanned page by page, newest first, until the id
// is found, a page is empty or malformed, the last reported page is reached,
// or MaxPages pages have been read. The whole scan shares one
// StatusFetchTimeout. Any transport problem ends the scan as
// FetchTransportFailure; nothing is retried.
func (c *Client) FetchStatus(ctx context.Context, trackingID string) ports.FetchResult {
	ctx, cancel := context.WithTimeout(ctx, c.config.StatusFetchTimeout)
	defer cancel()

	result := ports.FetchResult{Outcome: ports.FetchNotFound}

	for page := 1; page <= c.config.MaxPages; page++ {
		body, err := c.fetchPage(ctx, page)
		if err != nil {
			c.logger.Debug("Lipana list request failed",
				ports.String("tracking_id", trackingID),
				ports.Int("page", page),
				ports.Err(err),
			)
			result.Outcome = ports.FetchTransportFailure
			result.Err = err
			return result
		}
		result.PagesScanned = page

		items, totalPages, ok := parseListPage(body)
		if !ok || len(items) == 0 {
			break
		}

		for _, item := range items {
			if item.ID == trackingID {
				result.Outcome = ports.FetchFound
				result.Status = domain.NormalizeStatus(item.Status)
				c.logger.Info("Lipana list scan found transaction",
					ports.String("tracking_id", trackingID),
					ports.String("raw_status", item.Status),
					ports.Int("page", page),
				)
				return result
			}
		}

		if page >= totalPages {
			break
		}
	}

	c.logger.Debug("Transaction not found in Lipana list",
		ports.String("tracking_id", trackingID),
		ports.Int("pages_scanned", result.PagesScanned),
	)
	return result
}

// fetchPage reads one list page through the circuit breaker
func (c *Client) fetchPage(ctx context.Context, page int) ([]byte, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.config.PageSize))
	query.Set("page", strconv.Itoa(page))

	var body []byte
	call := func() error {
		statusCode, respBody, err := c.do(ctx, http.MethodGet, transactionsPath, query, nil)
		if err != nil {
			return err
		}
		if !isSuccess(statusCode) {
			return &StatusError{StatusCode: statusCode, Body: respBody}
		}
		body = respBody
		return nil
	}

	if c.breaker == nil {
		return body, call()
	}
	err := c.breaker.Call(call)
	return body, err
}

// IsProviderFailure reports whether err should count against the provider's
// circuit breaker. Cancellation by the caller does not.
func IsProviderFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
