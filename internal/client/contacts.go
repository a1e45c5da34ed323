package client

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/dto"
	"contacts-backend/internal/governance"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Fields(ctx context.Context) ([]string, error) {
	var resp dto.FieldsResponse
	if err := c.get(ctx, "/contacts/fields", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) FilterValues(ctx context.Context, key, searchTerm string, page int) (governance.ValuePage, error) {
	query := url.Values{}
	query.Set("key", key)
	query.Set("searchTerm", searchTerm)
	query.Set("page", strconv.Itoa(page))

	var resp dto.FilterValuesResponse
	if err := c.get(ctx, "/contacts/filters/values", query, &resp); err != nil {
		return governance.ValuePage{}, err
	}
	return governance.ValuePage{Values: resp.Values, HasMore: resp.HasMore}, nil
}

func (c *Client) Preview(ctx context.Context, criteria []string) (string, error) {
	var resp dto.MessageResponse
	if err := c.send(ctx, http.MethodPost, "/contacts/filters/preview", dto.PreviewRequest{Criteria: criteria}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) Contacts(ctx context.Context, query governance.ContactQuery) (governance.ContactPage, error) {
	req := dto.SearchRequest{
		Page:     query.Page,
		PageSize: query.PageSize,
		Filters:  query.Filter,
	}
	if len(query.QuickFilters) > 0 {
		req.QuickFilterFlags = make(map[string]bool, len(query.QuickFilters))
		for flag, on := range query.QuickFilters {
			req.QuickFilterFlags[string(flag)] = on
		}
	}

	var resp dto.SearchResponse
	if err := c.send(ctx, http.MethodPost, "/contacts/search", req, &resp); err != nil {
		return governance.ContactPage{}, err
	}
	return governance.ContactPage{Contacts: resp.Data, Total: resp.Total}, nil
}

func (c *Client) Aggregates(ctx context.Context) (governance.Aggregates, error) {
	var resp dto.AggregatesResponse
	if err := c.get(ctx, "/contacts/aggregates", nil, &resp); err != nil {
		return governance.Aggregates{}, err
	}
	return governance.Aggregates{
		Total:             resp.Total,
		InvalidEmailCount: resp.InvalidEmailCount,
		DuplicateCount:    resp.DuplicateCount,
	}, nil
}

func (c *Client) Finalize(ctx context.Context) (governance.KeyConfig, error) {
	var resp dto.KeyConfigResponse
	if err := c.send(ctx, http.MethodPost, "/contacts/finalize", nil, &resp); err != nil {
		return governance.KeyConfig{}, err
	}
	return keyConfigFromResponse(resp), nil
}

// UpdateContacts patches one contact through its own route and several
// through the bulk route.
func (c *Client) UpdateContacts(ctx context.Context, ids []string, fields contact.Fields) error {
	if len(ids) == 1 {
		return c.send(ctx, http.MethodPatch, contactPath(ids[0]), dto.UpdateContactRequest{Fields: fields}, nil)
	}
	return c.send(ctx, http.MethodPatch, "/contacts/bulk", dto.BulkContactsRequest{IDs: ids, Fields: fields}, nil)
}

func (c *Client) DeleteContacts(ctx context.Context, ids []string) error {
	if len(ids) == 1 {
		return c.send(ctx, http.MethodDelete, contactPath(ids[0]), nil, nil)
	}
	return c.send(ctx, http.MethodDelete, "/contacts/bulk", dto.BulkContactsRequest{IDs: ids}, nil)
}

func contactPath(id string) string {
	return "/contacts/" + url.PathEscape(id)
}

func (c *Client) Import(ctx context.Context, records []contact.Fields) (governance.ImportResult, error) {
	var resp dto.ImportResponse
	if err := c.send(ctx, http.MethodPost, "/contacts/import", dto.ImportRequest{Contacts: records}, &resp); err != nil {
		return governance.ImportResult{}, err
	}
	return governance.ImportResult{Created: resp.Created, Duplicates: resp.Duplicates}, nil
}

// Export streams the CSV export into w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.open(ctx, http.MethodGet, "/contacts/export", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &governance.Error{Kind: governance.KindTransient, Err: fmt.Errorf("reading export: %w", err)}
	}
	return nil
}

func (c *Client) Columns(ctx context.Context) (governance.ColumnProfile, error) {
	var resp dto.ColumnsResponse
	if err := c.get(ctx, "/profile/columns", nil, &resp); err != nil {
		return governance.ColumnProfile{}, err
	}
	return governance.ColumnProfile{Columns: resp.Columns, Saved: resp.Saved}, nil
}

func (c *Client) SaveColumns(ctx context.Context, columns []string) (governance.ColumnProfile, error) {
	var resp dto.ColumnsResponse
	if err := c.send(ctx, http.MethodPut, "/profile/columns", dto.ColumnsRequest{Columns: columns}, &resp); err != nil {
		return governance.ColumnProfile{}, err
	}
	return governance.ColumnProfile{Columns: resp.Columns, Saved: resp.Saved}, nil
}
