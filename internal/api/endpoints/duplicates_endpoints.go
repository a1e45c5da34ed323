package endpoints

import (
	"contacts-backend/internal/dto"
	contactsservice "contacts-backend/internal/service/contacts"
	"net/http"
)

type DuplicatesEndpoints interface {
	Duplicates(http.ResponseWriter, *http.Request) error
	Resolve(http.ResponseWriter, *http.Request) error
}

type duplicatesEndpoints struct {
	service *contactsservice.Service
}

func NewDuplicatesEndpoints(service *contactsservice.Service) DuplicatesEndpoints {
	return &duplicatesEndpoints{
		service: service,
	}
}

func (h *duplicatesEndpoints) Duplicates(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListDuplicates,
	})
}

func (h *duplicatesEndpoints) Resolve(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleResolve,
	})
}

func (h *duplicatesEndpoints) handleListDuplicates(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return mapContactsServiceError(err)
	}

	page, err := positiveQueryInt(r.URL.Query().Get("page"), 1)
	if err != nil {
		return badRequest("page must be a positive integer", err)
	}

	result, err := h.service.ListDuplicates(r.Context(), identity, page)
	if err != nil {
		return mapContactsServiceError(err)
	}

	resp := dto.DuplicatesResponse{
		DuplicateContacts: make([]dto.DuplicatePairResponse, 0, len(result.Pairs)),
		TotalRecords:      result.TotalRecords,
	}
	for _, pair := range result.Pairs {
		resp.DuplicateContacts = append(resp.DuplicateContacts, dto.DuplicatePairResponse{
			ID:  pair.ID,
			Old: pair.Old,
			New: pair.New,
		})
	}

	return WriteJSON(w, http.StatusOK, resp)
}

func (h *duplicatesEndpoints) handleResolve(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return mapContactsServiceError(err)
	}

	var req dto.ResolveDuplicatesRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("resolve duplicates", err)
	}

	resolution := contactsservice.Resolution{IsSaveNewContact: req.IsSaveNewContact}
	for _, c := range req.ContactsToBeSaved {
		resolution.ContactsToBeSaved = append(resolution.ContactsToBeSaved, contactsservice.ResolvedContact{
			DuplicateID: c.DuplicateID,
			Fields:      c.Fields,
		})
	}

	if err := h.service.ResolveDuplicates(r.Context(), identity, resolution); err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Duplicates resolved"})
}
