package contacts

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/events"
	"contacts-backend/internal/model"
	"context"
	"errors"
	"sort"
)

type KeyKind string

const (
	KeyPrimary KeyKind = "primary"
	KeyEmail   KeyKind = "email"
)

func (k KeyKind) Valid() bool {
	return k == KeyPrimary || k == KeyEmail
}

type RequestType string

const (
	RequestEditPrimaryKey RequestType = "EDIT_CONTACTS_PRIMARY_KEY"
	RequestEditEmailKey   RequestType = "EDIT_CONTACTS_EMAIL_KEY"
)

func (t RequestType) Valid() bool {
	return t == RequestEditPrimaryKey || t == RequestEditEmailKey
}

func (t RequestType) Kind() KeyKind {
	if t == RequestEditEmailKey {
		return KeyEmail
	}
	return KeyPrimary
}

func RequestTypeFor(kind KeyKind) RequestType {
	if kind == KeyEmail {
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

func keyConfigFromSettings(settings model.ContactSettingsItem) KeyConfig {
	return KeyConfig{
		PrimaryKey:         settings.PrimaryKey,
		EmailKey:           settings.EmailKey,
		IsPrimaryKeyLocked: settings.IsPrimaryKeyLocked,
		IsEmailKeyLocked:   settings.IsEmailKeyLocked,
		IsFinalized:        settings.IsFinalized,
	}
}

// locked reports whether kind is behind the revert-request gate. Locks only
// bind once the contact set is finalized.
func locked(settings model.ContactSettingsItem, kind KeyKind) bool {
	if !settings.IsFinalized {
		return false
	}
	if kind == KeyEmail {
		return settings.IsEmailKeyLocked
	}
	return settings.IsPrimaryKeyLocked
}

func currentKey(settings model.ContactSettingsItem, kind KeyKind) string {
	if kind == KeyEmail {
		return settings.EmailKey
	}
	return settings.PrimaryKey
}

func (s *Service) GetKeyConfig(ctx context.Context, identity Identity) (KeyConfig, error) {
	if err := validateIdentity(identity); err != nil {
		return KeyConfig{}, err
	}
	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return KeyConfig{}, err
	}
	return keyConfigFromSettings(settings), nil
}

// KnownFields returns the union of field names across the tenant's stored contacts, sorted.
func (s *Service) KnownFields(ctx context.Context, identity Identity) ([]string, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return s.knownFields(ctx, identity.TenantID)
}

func (s *Service) knownFields(ctx context.Context, tenantID string) ([]string, error) {
	items, err := s.repo.ListContacts(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load contacts", err)
	}
	seen := make(map[string]struct{})
	for _, item := range items {
		for key := range item.Fields {
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) CreatePrimaryKey(ctx context.Context, identity Identity, attribute string) (KeyConfig, error) {
	return s.setKey(ctx, identity, KeyPrimary, attribute, true)
}

func (s *Service) UpdateKey(ctx context.Context, identity Identity, kind KeyKind, attribute string) (KeyConfig, error) {
	return s.setKey(ctx, identity, kind, attribute, false)
}

func (s *Service) setKey(ctx context.Context, identity Identity, kind KeyKind, attribute string, create bool) (KeyConfig, error) {
	if err := validateIdentity(identity); err != nil {
		return KeyConfig{}, err
	}
	if !kind.Valid() {
		return KeyConfig{}, newError(ErrorCodeValidation, "unknown key kind", nil)
	}
	if err := contact.ValidateKey(attribute); err != nil {
		return KeyConfig{}, newError(ErrorCodeValidation, "attribute is required", err)
	}

	known, err := s.knownFields(ctx, identity.TenantID)
	if err != nil {
		return KeyConfig{}, err
	}
	if !containsString(known, attribute) {
		return KeyConfig{}, newError(ErrorCodeValidation, "attribute is not a known contact field", nil)
	}

	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return KeyConfig{}, err
	}

	if kind == KeyPrimary {
		if create && settings.PrimaryKey != "" {
			return KeyConfig{}, newError(ErrorCodeConflict, "primary key is already configured", nil)
		}
		if !create && settings.PrimaryKey == "" {
			return KeyConfig{}, newError(ErrorCodeNotFound, "primary key is not configured", nil)
		}
	}

	previous := settings.PrimaryKey
	requestType := RequestTypeFor(kind)
	consumeApproval := false
	if locked(settings, kind) {
		request, err := s.repo.GetRevertRequest(ctx, identity.TenantID, string(requestType))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return KeyConfig{}, newError(ErrorCodeInternal, "failed to load revert request", err)
		}
		if err != nil || RequestStatus(request.Status) != StatusApproved {
			return KeyConfig{}, newError(ErrorCodeConflict, "key is locked; submit a revert request to change it", nil)
		}
		consumeApproval = true
	}

	if kind == KeyEmail {
		settings.EmailKey = attribute
	} else {
		settings.PrimaryKey = attribute
	}
	settings.TenantID = identity.TenantID
	settings.UpdatedAt = s.timestamp()

	if err := s.repo.PutSettings(ctx, settings); err != nil {
		return KeyConfig{}, newError(ErrorCodeInternal, "failed to save key configuration", err)
	}

	if consumeApproval {
		if err := s.repo.DeleteRevertRequest(ctx, identity.TenantID, string(requestType)); err != nil {
			return KeyConfig{}, newError(ErrorCodeInternal, "failed to clear revert request", err)
		}
		s.publish(ctx, identity.TenantID, events.RevertRequestChanged)
	}

	s.publish(ctx, identity.TenantID, events.KeysChanged)
	if kind == KeyPrimary && attribute != previous {
		if err := s.rekeyDuplicates(ctx, identity.TenantID, attribute); err != nil {
			return KeyConfig{}, err
		}
	}
	return keyConfigFromSettings(settings), nil
}

func (s *Service) DeleteKey(ctx context.Context, identity Identity, kind KeyKind) (KeyConfig, error) {
	if err := validateIdentity(identity); err != nil {
		return KeyConfig{}, err
	}
	if kind != KeyPrimary {
		return KeyConfig{}, newError(ErrorCodeForbidden, "only the primary key can be deleted", nil)
	}

	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return KeyConfig{}, err
	}
	if locked(settings, kind) {
		return KeyConfig{}, newError(ErrorCodeForbidden, "primary key is locked", nil)
	}
	if settings.PrimaryKey == "" {
		return KeyConfig{}, newError(ErrorCodeNotFound, "primary key is not configured", nil)
	}

	settings.PrimaryKey = ""
	settings.TenantID = identity.TenantID
	settings.UpdatedAt = s.timestamp()
	if err := s.repo.PutSettings(ctx, settings); err != nil {
		return KeyConfig{}, newError(ErrorCodeInternal, "failed to save key configuration", err)
	}

	s.publish(ctx, identity.TenantID, events.KeysChanged)
	if err := s.rekeyDuplicates(ctx, identity.TenantID, ""); err != nil {
		return KeyConfig{}, err
	}
	return keyConfigFromSettings(settings), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
