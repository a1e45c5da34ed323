// Package events defines the tenant change notifications fanned out from the
// API server to connected sessions.
package events

import (
	"context"
	"time"
)

type Type string

const (
	KeysChanged          Type = "keys.changed"
	ContactsFinalized    Type = "contacts.finalized"
	ContactsChanged      Type = "contacts.changed"
	ContactsImported     Type = "contacts.imported"
	DuplicatesResolved   Type = "duplicates.resolved"
	RevertRequestChanged Type = "revert_request.changed"
)

type Event struct {
	Type     Type   `json:"type"`
	TenantID string `json:"tenantId"`
	At       string `json:"at"`
}

func New(t Type, tenantID string, at time.Time) Event {
	return Event{Type: t, TenantID: tenantID, At: at.UTC().Format(time.RFC3339)}
}

// AffectsAggregates reports whether invalid-email or duplicate counts may have
// moved because of the event.
func (e Event) AffectsAggregates() bool {
	switch e.Type {
	case KeysChanged, ContactsFinalized, ContactsChanged, ContactsImported, DuplicatesResolved:
		return true
	}
	return false
}

// Channel is the pub/sub channel and websocket room for a tenant.
func Channel(tenantID string) string {
	return "tenant:" + tenantID
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
