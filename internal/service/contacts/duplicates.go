package contacts

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/events"
	"contacts-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

const duplicatePageSize = 10

// DuplicatePair is a stored contact and an incoming record sharing its
// primary-key value. Both sides carry the stored contact's id.
type DuplicatePair struct {
	ID  string
	Old contact.Contact
	New contact.Contact
}

type DuplicatePage struct {
	Pairs        []DuplicatePair
	TotalRecords int
}

type ResolvedContact struct {
	DuplicateID string
	Fields      contact.Fields
}

// Resolution is either a list of per-pair records or a blanket preference for
// the whole pending set.
type Resolution struct {
	ContactsToBeSaved []ResolvedContact
	IsSaveNewContact  *bool
}

func (s *Service) sortedDuplicates(ctx context.Context, tenantID string) ([]model.DuplicateContactItem, error) {
	items, err := s.repo.ListDuplicates(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load duplicates", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt < items[j].CreatedAt
		}
		return items[i].DuplicateID < items[j].DuplicateID
	})
	return items, nil
}

func (s *Service) ListDuplicates(ctx context.Context, identity Identity, page int) (DuplicatePage, error) {
	if err := validateIdentity(identity); err != nil {
		return DuplicatePage{}, err
	}
	if page < 1 {
		return DuplicatePage{}, newError(ErrorCodeValidation, "page must be positive", nil)
	}

	items, err := s.sortedDuplicates(ctx, identity.TenantID)
	if err != nil {
		return DuplicatePage{}, err
	}

	result := DuplicatePage{TotalRecords: len(items), Pairs: []DuplicatePair{}}
	start := (page - 1) * duplicatePageSize
	if start >= len(items) {
		return result, nil
	}
	end := start + duplicatePageSize
	if end > len(items) {
		end = len(items)
	}

	for _, item := range items[start:end] {
		pair, err := s.pairFromItem(ctx, item)
		if err != nil {
			return DuplicatePage{}, err
		}
		result.Pairs = append(result.Pairs, pair)
	}
	return result, nil
}

func (s *Service) pairFromItem(ctx context.Context, item model.DuplicateContactItem) (DuplicatePair, error) {
	stored, err := s.repo.GetContact(ctx, item.TenantID, item.OldContactID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return DuplicatePair{}, newError(ErrorCodeInternal, "failed to load contact", err)
	}

	old := contact.Contact{ID: item.OldContactID}
	if err == nil {
		old, err = itemToContact(stored)
		if err != nil {
			return DuplicatePair{}, newError(ErrorCodeInternal, "stored contact is unreadable", err)
		}
	}

	fields, err := contact.FieldsFromMap(item.NewFields, item.NewFieldOrder)
	if err != nil {
		return DuplicatePair{}, newError(ErrorCodeInternal, "duplicate record is unreadable", err)
	}

	return DuplicatePair{
		ID:  item.DuplicateID,
		Old: old,
		New: contact.Contact{ID: item.OldContactID, Fields: fields},
	}, nil
}

func (s *Service) ResolveDuplicates(ctx context.Context, identity Identity, resolution Resolution) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	perPair := len(resolution.ContactsToBeSaved) > 0
	if perPair == (resolution.IsSaveNewContact != nil) {
		return newError(ErrorCodeValidation, "provide either contactsToBeSaved or isSaveNewContact", nil)
	}

	if perPair {
		return s.resolvePairs(ctx, identity, resolution.ContactsToBeSaved)
	}
	return s.resolveAll(ctx, identity, *resolution.IsSaveNewContact)
}

func (s *Service) resolvePairs(ctx context.Context, identity Identity, resolved []ResolvedContact) error {
	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return err
	}

	now := s.timestamp()
	contacts := make([]model.ContactItem, 0, len(resolved))
	pairIDs := make([]string, 0, len(resolved))
	for _, r := range resolved {
		item, err := s.repo.GetDuplicate(ctx, identity.TenantID, r.DuplicateID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(ErrorCodeNotFound, fmt.Sprintf("duplicate %s not found", r.DuplicateID), nil)
			}
			return newError(ErrorCodeInternal, "failed to load duplicate", err)
		}
		for _, key := range r.Fields.Keys() {
			if err := contact.ValidateKey(key); err != nil {
				return newError(ErrorCodeValidation, err.Error(), err)
			}
		}

		pair, err := s.pairFromItem(ctx, item)
		if err != nil {
			return err
		}
		final := contact.Contact{ID: item.OldContactID, Fields: r.Fields.Clone()}
		if settings.PrimaryKey != "" {
			want, _ := pair.New.FieldText(settings.PrimaryKey)
			got, _ := final.FieldText(settings.PrimaryKey)
			if want != got {
				return newError(ErrorCodeValidation, "primary key value cannot be changed while resolving a duplicate", nil)
			}
		}

		createdAt := now
		if stored, err := s.repo.GetContact(ctx, identity.TenantID, item.OldContactID); err == nil {
			createdAt = stored.CreatedAt
		}
		contacts = append(contacts, contactToItem(identity.TenantID, final, createdAt, now))
		pairIDs = append(pairIDs, item.DuplicateID)
	}

	if err := s.repo.PutContacts(ctx, contacts); err != nil {
		return newError(ErrorCodeInternal, "failed to save resolved contacts", err)
	}
	if err := s.repo.DeleteDuplicates(ctx, identity.TenantID, pairIDs); err != nil {
		return newError(ErrorCodeInternal, "failed to clear duplicates", err)
	}

	addResolved("pair", len(pairIDs))
	s.publish(ctx, identity.TenantID, events.DuplicatesResolved)
	return nil
}

// resolveAll applies one preference to every pending pair, loaded or not.
func (s *Service) resolveAll(ctx context.Context, identity Identity, saveNew bool) error {
	items, err := s.sortedDuplicates(ctx, identity.TenantID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	now := s.timestamp()
	pairIDs := make([]string, 0, len(items))
	latest := make(map[string]model.ContactItem)
	var order []string
	for _, item := range items {
		pairIDs = append(pairIDs, item.DuplicateID)
		if !saveNew {
			continue
		}
		pair, err := s.pairFromItem(ctx, item)
		if err != nil {
			return err
		}
		createdAt := now
		if prev, ok := latest[item.OldContactID]; ok {
			createdAt = prev.CreatedAt
		} else {
			order = append(order, item.OldContactID)
			if stored, err := s.repo.GetContact(ctx, identity.TenantID, item.OldContactID); err == nil {
				createdAt = stored.CreatedAt
			}
		}
		latest[item.OldContactID] = contactToItem(identity.TenantID, pair.New, createdAt, now)
	}

	if len(order) > 0 {
		contacts := make([]model.ContactItem, 0, len(order))
		for _, id := range order {
			contacts = append(contacts, latest[id])
		}
		if err := s.repo.PutContacts(ctx, contacts); err != nil {
			return newError(ErrorCodeInternal, "failed to save resolved contacts", err)
		}
	}
	if err := s.repo.DeleteDuplicates(ctx, identity.TenantID, pairIDs); err != nil {
		return newError(ErrorCodeInternal, "failed to clear duplicates", err)
	}

	mode := "keep_existing"
	if saveNew {
		mode = "save_new"
	}
	addResolved(mode, len(pairIDs))
	s.publish(ctx, identity.TenantID, events.DuplicatesResolved)
	return nil
}

// rekeyDuplicates matches every pending pair again under primaryKey. A record
// whose value now belongs to a different stored contact is paired with that
// contact. A record that no longer collides with any contact, which is every
// record once the key is cleared, is stored as a new contact and its pair is
// dropped.
func (s *Service) rekeyDuplicates(ctx context.Context, tenantID, primaryKey string) error {
	items, err := s.sortedDuplicates(ctx, tenantID)
	if err != nil || len(items) == 0 {
		return err
	}
	existing, err := s.loadContacts(ctx, tenantID)
	if err != nil {
		return err
	}

	byKey := make(map[string]string)
	if primaryKey != "" {
		for _, c := range existing {
			if text, ok := c.FieldText(primaryKey); ok && text != "" {
				byKey[text] = c.ID
			}
		}
	}

	now := s.timestamp()
	var (
		repaired []model.DuplicateContactItem
		created  []model.ContactItem
		dropped  []string
	)
	for _, item := range items {
		fields, err := contact.FieldsFromMap(item.NewFields, item.NewFieldOrder)
		if err != nil {
			return newError(ErrorCodeInternal, "duplicate record is unreadable", err)
		}
		text := ""
		if primaryKey != "" {
			text, _ = (contact.Contact{Fields: fields}).FieldText(primaryKey)
		}
		if oldID, taken := byKey[text]; text != "" && taken {
			if oldID != item.OldContactID {
				item.OldContactID = oldID
				repaired = append(repaired, item)
			}
			continue
		}

		c := contact.Contact{ID: uuid.NewString(), Fields: fields}
		if text != "" {
			byKey[text] = c.ID
		}
		created = append(created, contactToItem(tenantID, c, now, now))
		dropped = append(dropped, item.DuplicateID)
	}

	if len(created) > 0 {
		if err := s.repo.PutContacts(ctx, created); err != nil {
			return newError(ErrorCodeInternal, "failed to store contacts", err)
		}
	}
	if len(repaired) > 0 {
		if err := s.repo.PutDuplicates(ctx, repaired); err != nil {
			return newError(ErrorCodeInternal, "failed to store duplicates", err)
		}
	}
	if len(dropped) > 0 {
		if err := s.repo.DeleteDuplicates(ctx, tenantID, dropped); err != nil {
			return newError(ErrorCodeInternal, "failed to clear duplicates", err)
		}
		addResolved("rekey", len(dropped))
		s.publish(ctx, tenantID, events.ContactsChanged)
	}
	if len(repaired)+len(dropped) > 0 {
		s.publish(ctx, tenantID, events.DuplicatesResolved)
	}
	return nil
}
