package dto

import "contacts-backend/internal/contact"

type DuplicatePairResponse struct {
	ID  string          `json:"id"`
	Old contact.Contact `json:"old"`
	New contact.Contact `json:"new"`
}

type DuplicatesResponse struct {
	DuplicateContacts []DuplicatePairResponse `json:"duplicateContacts"`
	TotalRecords      int                     `json:"totalRecords"`
}

type ResolvedContactRequest struct {
	DuplicateID string         `json:"duplicateId"`
	Fields      contact.Fields `json:"fields"`
}

// ResolveDuplicatesRequest carries exactly one of the two resolution forms.
type ResolveDuplicatesRequest struct {
	ContactsToBeSaved []ResolvedContactRequest `json:"contactsToBeSaved,omitempty"`
	IsSaveNewContact  *bool                    `json:"isSaveNewContact,omitempty"`
}
