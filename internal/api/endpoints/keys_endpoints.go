package endpoints

import (
	"contacts-backend/internal/dto"
	contactsservice "contacts-backend/internal/service/contacts"
	"net/http"
)

type KeysEndpoints interface {
	KeyConfig(http.ResponseWriter, *http.Request) error
	PrimaryKey(http.ResponseWriter, *http.Request) error
	EmailKey(http.ResponseWriter, *http.Request) error
	RevertRequests(http.ResponseWriter, *http.Request) error
	AdminRevertRequests(http.ResponseWriter, *http.Request) error
}

type keysEndpoints struct {
	service *contactsservice.Service
}

func NewKeysEndpoints(service *contactsservice.Service) KeysEndpoints {
	return &keysEndpoints{
		service: service,
	}
}

func (h *keysEndpoints) KeyConfig(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGetKeyConfig,
	})
}

func (h *keysEndpoints) PrimaryKey(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost:   h.handleCreatePrimaryKey,
		http.MethodPut:    h.handleUpdatePrimaryKey,
		http.MethodDelete: h.handleDeletePrimaryKey,
	})
}

func (h *keysEndpoints) EmailKey(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleUpdateEmailKey,
	})
}

func (h *keysEndpoints) RevertRequests(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGetRevertRequest,
		http.MethodPost:   h.handleSubmitRevertRequest,
		http.MethodDelete: h.handleCancelRevertRequest,
	})
}

func (h *keysEndpoints) AdminRevertRequests(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleDecideRevertRequest,
	})
}

func (h *keysEndpoints) identity(r *http.Request) (contactsservice.Identity, error) {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return contactsservice.Identity{}, mapContactsServiceError(err)
	}
	return identity, nil
}

func (h *keysEndpoints) handleGetKeyConfig(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	cfg, err := h.service.GetKeyConfig(r.Context(), identity)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toKeyConfigResponse(cfg))
}

func (h *keysEndpoints) handleCreatePrimaryKey(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.KeyRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("create primary key", err)
	}

	cfg, err := h.service.CreatePrimaryKey(r.Context(), identity, req.Attribute)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toKeyConfigResponse(cfg))
}

func (h *keysEndpoints) handleUpdatePrimaryKey(w http.ResponseWriter, r *http.Request) error {
	return h.updateKey(w, r, contactsservice.KeyPrimary)
}

func (h *keysEndpoints) handleUpdateEmailKey(w http.ResponseWriter, r *http.Request) error {
	return h.updateKey(w, r, contactsservice.KeyEmail)
}

func (h *keysEndpoints) updateKey(w http.ResponseWriter, r *http.Request, kind contactsservice.KeyKind) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.KeyRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("update key", err)
	}

	cfg, err := h.service.UpdateKey(r.Context(), identity, kind, req.Attribute)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toKeyConfigResponse(cfg))
}

func (h *keysEndpoints) handleDeletePrimaryKey(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	cfg, err := h.service.DeleteKey(r.Context(), identity, contactsservice.KeyPrimary)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toKeyConfigResponse(cfg))
}

func (h *keysEndpoints) handleGetRevertRequest(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	req, err := h.service.GetRevertRequest(r.Context(), identity, r.URL.Query().Get("requestType"))
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toRevertRequestResponse(req))
}

func (h *keysEndpoints) handleSubmitRevertRequest(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var body dto.RevertRequestBody
	if err := decodeJSON(r, &body); err != nil {
		return invalidPayload("submit revert request", err)
	}

	req, err := h.service.SubmitRevertRequest(r.Context(), identity, body.RequestType)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toRevertRequestResponse(req))
}

func (h *keysEndpoints) handleCancelRevertRequest(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var body dto.RevertRequestBody
	if err := decodeJSON(r, &body); err != nil {
		return invalidPayload("cancel revert request", err)
	}

	req, err := h.service.CancelRevertRequest(r.Context(), identity, body.RequestType)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toRevertRequestResponse(req))
}

func (h *keysEndpoints) handleDecideRevertRequest(w http.ResponseWriter, r *http.Request) error {
	var body dto.AdminRevertDecisionRequest
	if err := decodeJSON(r, &body); err != nil {
		return invalidPayload("decide revert request", err)
	}

	req, err := h.service.DecideRevertRequest(r.Context(), body.TenantID, body.RequestType, body.Approve)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toRevertRequestResponse(req))
}
