package client

import (
	"contacts-backend/internal/dto"
	"contacts-backend/internal/governance"
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Duplicates(ctx context.Context, page int) (governance.DuplicatePage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	var resp dto.DuplicatesResponse
	if err := c.get(ctx, "/contacts/duplicates", query, &resp); err != nil {
		return governance.DuplicatePage{}, err
	}

	out := governance.DuplicatePage{
		TotalRecords: resp.TotalRecords,
		Pairs:        make([]governance.DuplicatePair, 0, len(resp.DuplicateContacts)),
	}
	for _, p := range resp.DuplicateContacts {
		out.Pairs = append(out.Pairs, governance.DuplicatePair{ID: p.ID, Old: p.Old, New: p.New})
	}
	return out, nil
}

func (c *Client) ResolveDuplicates(ctx context.Context, resolved []governance.ResolvedContact) error {
	req := dto.ResolveDuplicatesRequest{
		ContactsToBeSaved: make([]dto.ResolvedContactRequest, 0, len(resolved)),
	}
	for _, r := range resolved {
		req.ContactsToBeSaved = append(req.ContactsToBeSaved, dto.ResolvedContactRequest{
			DuplicateID: r.DuplicateID,
			Fields:      r.Fields,
		})
	}
	return c.send(ctx, http.MethodPost, "/contacts/duplicates/resolve", req, nil)
}

// ResolveAllDuplicates sends the blanket flag, which covers pairs not loaded
// by this session.
func (c *Client) ResolveAllDuplicates(ctx context.Context, saveNew bool) error {
	req := dto.ResolveDuplicatesRequest{IsSaveNewContact: &saveNew}
	return c.send(ctx, http.MethodPost, "/contacts/duplicates/resolve", req, nil)
}
