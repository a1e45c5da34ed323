package dto

import "contacts-backend/internal/contact"

type FieldsResponse struct {
	Data []string `json:"data"`
}

type FilterValuesResponse struct {
	Values  []string `json:"values"`
	HasMore bool     `json:"hasMore"`
}

type PreviewRequest struct {
	Criteria []string `json:"criteria"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SearchRequest struct {
	Page             int             `json:"page"`
	PageSize         int             `json:"pageSize"`
	Filters          contact.Filter  `json:"filters"`
	QuickFilterFlags map[string]bool `json:"quickFilterFlags,omitempty"`
}

type SearchResponse struct {
	Data  []contact.Contact `json:"data"`
	Total int               `json:"total"`
}

type AggregatesResponse struct {
	Total             int `json:"total"`
	InvalidEmailCount int `json:"invalidEmailCount"`
	DuplicateCount    int `json:"duplicateCount"`
}

type ImportRequest struct {
	Contacts []contact.Fields `json:"contacts"`
}

type ImportResponse struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
}

type UpdateContactRequest struct {
	Fields contact.Fields `json:"fields"`
}

type BulkContactsRequest struct {
	IDs    []string       `json:"ids"`
	Fields contact.Fields `json:"fields"`
}

type ColumnsRequest struct {
	Columns []string `json:"columns"`
}

type ColumnsResponse struct {
	Columns []string `json:"columns"`
	Saved   bool     `json:"saved"`
}
