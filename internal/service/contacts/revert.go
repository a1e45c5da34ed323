package contacts

import (
	"contacts-backend/internal/events"
	"contacts-backend/internal/model"
	"context"
	"errors"
	"strings"
)

type RevertRequest struct {
	RequestType RequestType
	Status      RequestStatus
	RequestedBy string
	CreatedAt   string
	DecidedAt   string
}

func revertRequestFromItem(item model.RevertRequestItem) RevertRequest {
	return RevertRequest{
		RequestType: RequestType(item.RequestType),
		Status:      RequestStatus(item.Status),
		RequestedBy: item.RequestedBy,
		CreatedAt:   item.CreatedAt,
		DecidedAt:   item.DecidedAt,
	}
}

func parseRequestType(raw string) (RequestType, error) {
	requestType := RequestType(strings.TrimSpace(raw))
	if !requestType.Valid() {
		return "", newError(ErrorCodeValidation, "unknown request type", nil)
	}
	return requestType, nil
}

// GetRevertRequest returns the tenant's request of the given type, with status NONE when absent.
func (s *Service) GetRevertRequest(ctx context.Context, identity Identity, rawType string) (RevertRequest, error) {
	if err := validateIdentity(identity); err != nil {
		return RevertRequest{}, err
	}
	requestType, err := parseRequestType(rawType)
	if err != nil {
		return RevertRequest{}, err
	}

	item, err := s.repo.GetRevertRequest(ctx, identity.TenantID, string(requestType))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RevertRequest{RequestType: requestType, Status: StatusNone}, nil
		}
		return RevertRequest{}, newError(ErrorCodeInternal, "failed to load revert request", err)
	}
	return revertRequestFromItem(item), nil
}

func (s *Service) SubmitRevertRequest(ctx context.Context, identity Identity, rawType string) (RevertRequest, error) {
	if err := validateIdentity(identity); err != nil {
		return RevertRequest{}, err
	}
	requestType, err := parseRequestType(rawType)
	if err != nil {
		return RevertRequest{}, err
	}

	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return RevertRequest{}, err
	}
	if !locked(settings, requestType.Kind()) {
		return RevertRequest{}, newError(ErrorCodeConflict, "key is not locked", nil)
	}

	existing, err := s.repo.GetRevertRequest(ctx, identity.TenantID, string(requestType))
	switch {
	case err == nil && RequestStatus(existing.Status) == StatusPending:
		return RevertRequest{}, newError(ErrorCodeConflict, "a revert request is already pending", nil)
	case err != nil && !errors.Is(err, ErrNotFound):
		return RevertRequest{}, newError(ErrorCodeInternal, "failed to load revert request", err)
	}

	item := model.RevertRequestItem{
		TenantID:    identity.TenantID,
		RequestType: string(requestType),
		Status:      string(StatusPending),
		RequestedBy: identity.UserID,
		CreatedAt:   s.timestamp(),
	}
	if err := s.repo.PutRevertRequest(ctx, item); err != nil {
		return RevertRequest{}, newError(ErrorCodeInternal, "failed to save revert request", err)
	}

	incRevertSubmitted(requestType)
	s.publish(ctx, identity.TenantID, events.RevertRequestChanged)
	return revertRequestFromItem(item), nil
}

func (s *Service) CancelRevertRequest(ctx context.Context, identity Identity, rawType string) (RevertRequest, error) {
	if err := validateIdentity(identity); err != nil {
		return RevertRequest{}, err
	}
	requestType, err := parseRequestType(rawType)
	if err != nil {
		return RevertRequest{}, err
	}

	if _, err := s.pendingRequest(ctx, identity.TenantID, requestType); err != nil {
		return RevertRequest{}, err
	}
	if err := s.repo.DeleteRevertRequest(ctx, identity.TenantID, string(requestType)); err != nil {
		return RevertRequest{}, newError(ErrorCodeInternal, "failed to cancel revert request", err)
	}

	s.publish(ctx, identity.TenantID, events.RevertRequestChanged)
	return RevertRequest{RequestType: requestType, Status: StatusNone}, nil
}

// DecideRevertRequest records an administrator's approval or rejection of a pending request.
func (s *Service) DecideRevertRequest(ctx context.Context, tenantID, rawType string, approve bool) (RevertRequest, error) {
	if strings.TrimSpace(tenantID) == "" {
		return RevertRequest{}, newError(ErrorCodeValidation, "tenantId is required", nil)
	}
	requestType, err := parseRequestType(rawType)
	if err != nil {
		return RevertRequest{}, err
	}

	item, err := s.pendingRequest(ctx, tenantID, requestType)
	if err != nil {
		return RevertRequest{}, err
	}

	item.Status = string(StatusRejected)
	if approve {
		item.Status = string(StatusApproved)
	}
	item.DecidedAt = s.timestamp()
	if err := s.repo.PutRevertRequest(ctx, item); err != nil {
		return RevertRequest{}, newError(ErrorCodeInternal, "failed to save revert request", err)
	}

	s.publish(ctx, tenantID, events.RevertRequestChanged)
	return revertRequestFromItem(item), nil
}

func (s *Service) pendingRequest(ctx context.Context, tenantID string, requestType RequestType) (model.RevertRequestItem, error) {
	item, err := s.repo.GetRevertRequest(ctx, tenantID, string(requestType))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.RevertRequestItem{}, newError(ErrorCodeNotFound, "no pending revert request", nil)
		}
		return model.RevertRequestItem{}, newError(ErrorCodeInternal, "failed to load revert request", err)
	}
	if RequestStatus(item.Status) != StatusPending {
		return model.RevertRequestItem{}, newError(ErrorCodeNotFound, "no pending revert request", nil)
	}
	return item, nil
}
