package endpoints

import (
	"contacts-backend/internal/dto"
	contactsservice "contacts-backend/internal/service/contacts"
	"net/http"
)

type ProfileEndpoints interface {
	Columns(http.ResponseWriter, *http.Request) error
}

type profileEndpoints struct {
	service *contactsservice.Service
}

func NewProfileEndpoints(service *contactsservice.Service) ProfileEndpoints {
	return &profileEndpoints{
		service: service,
	}
}

func (h *profileEndpoints) Columns(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGetColumns,
		http.MethodPut: h.handleSaveColumns,
	})
}

func (h *profileEndpoints) handleGetColumns(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return mapContactsServiceError(err)
	}

	pref, err := h.service.GetColumns(r.Context(), identity)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ColumnsResponse{Columns: pref.Columns, Saved: pref.Saved})
}

func (h *profileEndpoints) handleSaveColumns(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return mapContactsServiceError(err)
	}

	var req dto.ColumnsRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("save columns", err)
	}

	pref, err := h.service.SaveColumns(r.Context(), identity, req.Columns)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ColumnsResponse{Columns: pref.Columns, Saved: pref.Saved})
}
