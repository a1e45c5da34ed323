package endpoints

import (
	"bytes"
	"contacts-backend/internal/contact"
	"contacts-backend/internal/dto"
	contactsservice "contacts-backend/internal/service/contacts"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

type ContactsEndpoints interface {
	Fields(http.ResponseWriter, *http.Request) error
	FilterValues(http.ResponseWriter, *http.Request) error
	FilterPreview(http.ResponseWriter, *http.Request) error
	Search(http.ResponseWriter, *http.Request) error
	Aggregates(http.ResponseWriter, *http.Request) error
	Finalize(http.ResponseWriter, *http.Request) error
	Import(http.ResponseWriter, *http.Request) error
	Export(http.ResponseWriter, *http.Request) error
	Bulk(http.ResponseWriter, *http.Request) error
	Contact(http.ResponseWriter, *http.Request) error
}

type contactsEndpoints struct {
	service *contactsservice.Service
}

func NewContactsEndpoints(service *contactsservice.Service) ContactsEndpoints {
	return &contactsEndpoints{
		service: service,
	}
}

func (h *contactsEndpoints) Fields(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleFields,
	})
}

func (h *contactsEndpoints) FilterValues(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleFilterValues,
	})
}

func (h *contactsEndpoints) FilterPreview(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleFilterPreview,
	})
}

func (h *contactsEndpoints) Search(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSearch,
	})
}

func (h *contactsEndpoints) Aggregates(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleAggregates,
	})
}

func (h *contactsEndpoints) Finalize(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleFinalize,
	})
}

func (h *contactsEndpoints) Import(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleImport,
	})
}

func (h *contactsEndpoints) Export(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleExport,
	})
}

func (h *contactsEndpoints) Bulk(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch:  h.handleBulkUpdate,
		http.MethodDelete: h.handleBulkDelete,
	})
}

func (h *contactsEndpoints) Contact(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch:  h.handleUpdateContact,
		http.MethodDelete: h.handleDeleteContact,
	})
}

func (h *contactsEndpoints) identity(r *http.Request) (contactsservice.Identity, error) {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return contactsservice.Identity{}, mapContactsServiceError(err)
	}
	return identity, nil
}

func (h *contactsEndpoints) handleFields(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	fields, err := h.service.KnownFields(r.Context(), identity)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.FieldsResponse{Data: fields})
}

func (h *contactsEndpoints) handleFilterValues(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	query := r.URL.Query()
	page, err := positiveQueryInt(query.Get("page"), 1)
	if err != nil {
		return badRequest("page must be a positive integer", err)
	}

	values, hasMore, err := h.service.FilterValues(r.Context(), identity, query.Get("key"), query.Get("searchTerm"), page)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.FilterValuesResponse{Values: values, HasMore: hasMore})
}

func (h *contactsEndpoints) handleFilterPreview(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("preview", err)
	}

	message, err := h.service.Preview(r.Context(), identity, req.Criteria)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: message})
}

func (h *contactsEndpoints) handleSearch(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("search", err)
	}

	result, err := h.service.Search(r.Context(), identity, contactsservice.SearchQuery{
		Page:         req.Page,
		PageSize:     req.PageSize,
		Filter:       req.Filters,
		QuickFilters: enabledQuickFilters(req.QuickFilterFlags),
	})
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.SearchResponse{Data: result.Contacts, Total: result.Total})
}

func (h *contactsEndpoints) handleAggregates(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	agg, err := h.service.Aggregates(r.Context(), identity)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.AggregatesResponse{
		Total:             agg.Total,
		InvalidEmailCount: agg.InvalidEmailCount,
		DuplicateCount:    agg.DuplicateCount,
	})
}

func (h *contactsEndpoints) handleFinalize(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	cfg, err := h.service.Finalize(r.Context(), identity)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toKeyConfigResponse(cfg))
}

func (h *contactsEndpoints) handleImport(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("import", err)
	}

	result, err := h.service.Import(r.Context(), identity, req.Contacts)
	if err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.ImportResponse{Created: result.Created, Duplicates: result.Duplicates})
}

func (h *contactsEndpoints) handleExport(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), identity, &buf); err != nil {
		return mapContactsServiceError(err)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.csv"`)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(buf.Bytes())
	return err
}

func (h *contactsEndpoints) handleBulkUpdate(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.BulkContactsRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("bulk update", err)
	}

	if err := h.service.UpdateContacts(r.Context(), identity, req.IDs, req.Fields); err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: fmt.Sprintf("%d contacts updated", len(req.IDs))})
}

func (h *contactsEndpoints) handleBulkDelete(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.BulkContactsRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("bulk delete", err)
	}

	if err := h.service.DeleteContacts(r.Context(), identity, req.IDs); err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: fmt.Sprintf("%d contacts deleted", len(req.IDs))})
}

func (h *contactsEndpoints) handleUpdateContact(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.UpdateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		return invalidPayload("update contact", err)
	}

	if err := h.service.UpdateContacts(r.Context(), identity, []string{r.PathValue("id")}, req.Fields); err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Contact updated"})
}

func (h *contactsEndpoints) handleDeleteContact(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	if err := h.service.DeleteContacts(r.Context(), identity, []string{r.PathValue("id")}); err != nil {
		return mapContactsServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Contact deleted"})
}

func enabledQuickFilters(flags map[string]bool) []contact.QuickFilter {
	out := make([]contact.QuickFilter, 0, len(flags))
	for name, on := range flags {
		if on {
			out = append(out, contact.QuickFilter(name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func positiveQueryInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("value %d is not positive", n)
	}
	return n, nil
}
