package client

import (
	"contacts-backend/internal/dto"
	"contacts-backend/internal/governance"
	"context"
	"net/http"
	"net/url"
)

func keyConfigFromResponse(resp dto.KeyConfigResponse) governance.KeyConfig {
	cfg := governance.KeyConfig{
		IsPrimaryKeyLocked: resp.IsPrimaryKeyLocked,
		IsEmailKeyLocked:   resp.IsEmailKeyLocked,
		IsFinalized:        resp.IsFinalized,
	}
	if resp.PrimaryKey != nil {
		cfg.PrimaryKey = *resp.PrimaryKey
	}
	if resp.EmailKey != nil {
		cfg.EmailKey = *resp.EmailKey
	}
	return cfg
}

func revertRequestFromResponse(resp dto.RevertRequestResponse) governance.RevertRequest {
	status := governance.RequestStatus(resp.Status)
	if status == "" {
		status = governance.StatusNone
	}
	return governance.RevertRequest{
		RequestType: governance.RequestType(resp.RequestType),
		Status:      status,
	}
}

func keyPath(kind governance.KeyKind) string {
	if kind == governance.KeyEmail {
		return "/contacts/keys/email"
	}
	return "/contacts/keys/primary"
}

func (c *Client) KeyConfig(ctx context.Context) (governance.KeyConfig, error) {
	var resp dto.KeyConfigResponse
	if err := c.get(ctx, "/contacts/keys", nil, &resp); err != nil {
		return governance.KeyConfig{}, err
	}
	return keyConfigFromResponse(resp), nil
}

func (c *Client) CreatePrimaryKey(ctx context.Context, attribute string) (governance.KeyConfig, error) {
	var resp dto.KeyConfigResponse
	if err := c.send(ctx, http.MethodPost, "/contacts/keys/primary", dto.KeyRequest{Attribute: attribute}, &resp); err != nil {
		return governance.KeyConfig{}, err
	}
	return keyConfigFromResponse(resp), nil
}

func (c *Client) UpdateKey(ctx context.Context, kind governance.KeyKind, attribute string) (governance.KeyConfig, error) {
	var resp dto.KeyConfigResponse
	if err := c.send(ctx, http.MethodPut, keyPath(kind), dto.KeyRequest{Attribute: attribute}, &resp); err != nil {
		return governance.KeyConfig{}, err
	}
	return keyConfigFromResponse(resp), nil
}

func (c *Client) DeletePrimaryKey(ctx context.Context) (governance.KeyConfig, error) {
	var resp dto.KeyConfigResponse
	if err := c.send(ctx, http.MethodDelete, "/contacts/keys/primary", nil, &resp); err != nil {
		return governance.KeyConfig{}, err
	}
	return keyConfigFromResponse(resp), nil
}

func (c *Client) RevertRequest(ctx context.Context, requestType governance.RequestType) (governance.RevertRequest, error) {
	query := url.Values{}
	query.Set("requestType", string(requestType))

	var resp dto.RevertRequestResponse
	if err := c.get(ctx, "/contacts/revert-requests", query, &resp); err != nil {
		return governance.RevertRequest{}, err
	}
	return revertRequestFromResponse(resp), nil
}

func (c *Client) SubmitRevertRequest(ctx context.Context, requestType governance.RequestType) (governance.RevertRequest, error) {
	var resp dto.RevertRequestResponse
	body := dto.RevertRequestBody{RequestType: string(requestType)}
	if err := c.send(ctx, http.MethodPost, "/contacts/revert-requests", body, &resp); err != nil {
		return governance.RevertRequest{}, err
	}
	return revertRequestFromResponse(resp), nil
}

func (c *Client) CancelRevertRequest(ctx context.Context, requestType governance.RequestType) error {
	body := dto.RevertRequestBody{RequestType: string(requestType)}
	return c.send(ctx, http.MethodDelete, "/contacts/revert-requests", body, nil)
}

// DecideRevertRequest approves or rejects a tenant's pending request. It
// needs a client built with an admin token.
func (c *Client) DecideRevertRequest(ctx context.Context, tenantID string, requestType governance.RequestType, approve bool) (governance.RevertRequest, error) {
	var resp dto.RevertRequestResponse
	body := dto.AdminRevertDecisionRequest{TenantID: tenantID, RequestType: string(requestType), Approve: approve}
	if err := c.send(ctx, http.MethodPost, "/admin/revert-requests", body, &resp); err != nil {
		return governance.RevertRequest{}, err
	}
	return revertRequestFromResponse(resp), nil
}
