// Package governance drives the contact governance workflow of one tenant
// session: key configuration with its lock and revert-request protocol, the
// grouped filter builder, duplicate resolution and the contact list that
// composes them. All server access goes through API.
package governance

import (
	"contacts-backend/internal/contact"
	"context"
	"io"
)

type KeyKind string

const (
	KeyPrimary KeyKind = "PRIMARY"
	KeyEmail   KeyKind = "EMAIL"
)

func (k KeyKind) Valid() bool {
	return k == KeyPrimary || k == KeyEmail
}

type RequestType string

const (
	RequestEditPrimaryKey RequestType = "EDIT_CONTACTS_PRIMARY_KEY"
	RequestEditEmailKey   RequestType = "EDIT_CONTACTS_EMAIL_KEY"
)

func (k KeyKind) RequestType() RequestType {
	if k == KeyEmail {
		return RequestEditEmailKey
	}
	return RequestEditPrimaryKey
}

type RequestStatus string

const (
	StatusNone     RequestStatus = "NONE"
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

type KeyConfig struct {
	PrimaryKey         string
	EmailKey           string
	IsPrimaryKeyLocked bool
	IsEmailKeyLocked   bool
	IsFinalized        bool
}

type RevertRequest struct {
	RequestType RequestType
	Status      RequestStatus
}

type ValuePage struct {
	Values  []string
	HasMore bool
}

// DuplicatePair is a stored record and an incoming record sharing a
// primary-key value.
type DuplicatePair struct {
	ID  string
	Old contact.Contact
	New contact.Contact
}

func (p DuplicatePair) clone() DuplicatePair {
	return DuplicatePair{ID: p.ID, Old: p.Old.Clone(), New: p.New.Clone()}
}

type DuplicatePage struct {
	Pairs        []DuplicatePair
	TotalRecords int
}

type ResolvedContact struct {
	DuplicateID string
	Fields      contact.Fields
}

type ContactQuery struct {
	Page         int
	PageSize     int
	Filter       contact.Filter
	QuickFilters map[contact.QuickFilter]bool
}

type ContactPage struct {
	Contacts []contact.Contact
	Total    int
}

type Aggregates struct {
	Total             int
	InvalidEmailCount int
	DuplicateCount    int
}

type ImportResult struct {
	Created    int
	Duplicates int
}

type ColumnProfile struct {
	Columns []string
	Saved   bool
}

// API is the tenant-scoped server surface the workflow consumes.
type API interface {
	Fields(ctx context.Context) ([]string, error)
	FilterValues(ctx context.Context, key, searchTerm string, page int) (ValuePage, error)
	Preview(ctx context.Context, criteria []string) (string, error)

	KeyConfig(ctx context.Context) (KeyConfig, error)
	CreatePrimaryKey(ctx context.Context, attribute string) (KeyConfig, error)
	UpdateKey(ctx context.Context, kind KeyKind, attribute string) (KeyConfig, error)
	DeletePrimaryKey(ctx context.Context) (KeyConfig, error)

	RevertRequest(ctx context.Context, requestType RequestType) (RevertRequest, error)
	SubmitRevertRequest(ctx context.Context, requestType RequestType) (RevertRequest, error)
	CancelRevertRequest(ctx context.Context, requestType RequestType) error

	Duplicates(ctx context.Context, page int) (DuplicatePage, error)
	ResolveDuplicates(ctx context.Context, resolved []ResolvedContact) error
	ResolveAllDuplicates(ctx context.Context, saveNew bool) error

	Contacts(ctx context.Context, query ContactQuery) (ContactPage, error)
	Finalize(ctx context.Context) (KeyConfig, error)
	UpdateContacts(ctx context.Context, ids []string, fields contact.Fields) error
	DeleteContacts(ctx context.Context, ids []string) error
	Import(ctx context.Context, records []contact.Fields) (ImportResult, error)
	Export(ctx context.Context, w io.Writer) error
	Aggregates(ctx context.Context) (Aggregates, error)

	Columns(ctx context.Context) (ColumnProfile, error)
	SaveColumns(ctx context.Context, columns []string) (ColumnProfile, error)
}
