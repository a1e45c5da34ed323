package contacts

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/events"
	"contacts-backend/internal/model"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	suggestionPageSize    = 20
	defaultSearchPageSize = 25
	maxSearchPageSize     = 500
)

type SearchQuery struct {
	Page         int
	PageSize     int
	Filter       contact.Filter
	QuickFilters []contact.QuickFilter
}

type SearchResult struct {
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

func itemToContact(item model.ContactItem) (contact.Contact, error) {
	fields, err := contact.FieldsFromMap(item.Fields, item.FieldOrder)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("contact %s: %w", item.ContactID, err)
	}
	return contact.Contact{ID: item.ContactID, Fields: fields}, nil
}

func contactToItem(tenantID string, c contact.Contact, createdAt, updatedAt string) model.ContactItem {
	return model.ContactItem{
		PK:         model.TenantScopedPK(tenantID, c.ID),
		TenantID:   tenantID,
		ContactID:  c.ID,
		Fields:     c.Fields.Map(),
		FieldOrder: c.Fields.Keys(),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

// loadContacts returns the tenant's contacts in creation order.
func (s *Service) loadContacts(ctx context.Context, tenantID string) ([]contact.Contact, error) {
	items, err := s.repo.ListContacts(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load contacts", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt < items[j].CreatedAt
		}
		return items[i].ContactID < items[j].ContactID
	})

	out := make([]contact.Contact, 0, len(items))
	for _, item := range items {
		c, err := itemToContact(item)
		if err != nil {
			return nil, newError(ErrorCodeInternal, "stored contact is unreadable", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// FilterValues lists distinct values of key containing searchTerm, case-insensitively, one page at a time.
func (s *Service) FilterValues(ctx context.Context, identity Identity, key, searchTerm string, page int) ([]string, bool, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, newError(ErrorCodeValidation, "key is required", nil)
	}
	if page < 1 {
		return nil, false, newError(ErrorCodeValidation, "page must be positive", nil)
	}

	all, err := s.loadContacts(ctx, identity.TenantID)
	if err != nil {
		return nil, false, err
	}

	term := strings.ToLower(searchTerm)
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, c := range all {
		text, ok := c.FieldText(key)
		if !ok || text == "" {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(text), term) {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		values = append(values, text)
	}
	sort.Strings(values)

	start := (page - 1) * suggestionPageSize
	if start >= len(values) {
		return []string{}, false, nil
	}
	end := start + suggestionPageSize
	if end > len(values) {
		end = len(values)
	}
	return values[start:end], end < len(values), nil
}

func (s *Service) Preview(ctx context.Context, identity Identity, rawCriteria []string) (string, error) {
	if err := validateIdentity(identity); err != nil {
		return "", err
	}
	criteria, err := contact.ParseCriteria(rawCriteria)
	if err != nil {
		return "", newError(ErrorCodeValidation, err.Error(), err)
	}

	all, err := s.loadContacts(ctx, identity.TenantID)
	if err != nil {
		return "", err
	}

	count := 0
	for _, c := range all {
		if contact.MatchCriteria(c, criteria) {
			count++
		}
	}
	if count == 1 {
		return "1 contact matches the selected criteria", nil
	}
	return fmt.Sprintf("%d contacts match the selected criteria", count), nil
}

func (s *Service) Search(ctx context.Context, identity Identity, query SearchQuery) (SearchResult, error) {
	if err := validateIdentity(identity); err != nil {
		return SearchResult{}, err
	}
	if query.Page < 0 {
		return SearchResult{}, newError(ErrorCodeValidation, "page must not be negative", nil)
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultSearchPageSize
	}
	if pageSize > maxSearchPageSize {
		return SearchResult{}, newError(ErrorCodeValidation, fmt.Sprintf("pageSize must not exceed %d", maxSearchPageSize), nil)
	}
	for _, q := range query.QuickFilters {
		if !q.Valid() {
			return SearchResult{}, newError(ErrorCodeValidation, fmt.Sprintf("unknown quick filter %q", q), nil)
		}
	}

	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return SearchResult{}, err
	}
	all, err := s.loadContacts(ctx, identity.TenantID)
	if err != nil {
		return SearchResult{}, err
	}

	var duplicateOf map[string]struct{}
	if hasQuickFilter(query.QuickFilters, contact.QuickFilterDuplicate) {
		duplicateOf, err = s.duplicateContactIDs(ctx, identity.TenantID)
		if err != nil {
			return SearchResult{}, err
		}
	}

	matched := make([]contact.Contact, 0)
	for _, c := range all {
		if !query.Filter.Match(c) {
			continue
		}
		if !matchQuickFilters(c, query.QuickFilters, settings, duplicateOf) {
			continue
		}
		matched = append(matched, c)
	}

	result := SearchResult{Total: len(matched), Contacts: []contact.Contact{}}
	start := query.Page * pageSize
	if start < len(matched) {
		end := start + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		result.Contacts = matched[start:end]
	}
	return result, nil
}

func hasQuickFilter(flags []contact.QuickFilter, want contact.QuickFilter) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func matchQuickFilters(c contact.Contact, flags []contact.QuickFilter, settings model.ContactSettingsItem, duplicateOf map[string]struct{}) bool {
	for _, flag := range flags {
		switch flag {
		case contact.QuickFilterInvalidEmail:
			if !invalidEmail(c, settings.EmailKey) {
				return false
			}
		case contact.QuickFilterMissingPrimaryKey:
			if settings.PrimaryKey == "" {
				return false
			}
			if text, ok := c.FieldText(settings.PrimaryKey); ok && text != "" {
				return false
			}
		case contact.QuickFilterDuplicate:
			if _, ok := duplicateOf[c.ID]; !ok {
				return false
			}
		}
	}
	return true
}

func invalidEmail(c contact.Contact, emailKey string) bool {
	if emailKey == "" {
		return false
	}
	text, ok := c.FieldText(emailKey)
	return !ok || !contact.ValidEmail(text)
}

func (s *Service) duplicateContactIDs(ctx context.Context, tenantID string) (map[string]struct{}, error) {
	duplicates, err := s.repo.ListDuplicates(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load duplicates", err)
	}
	out := make(map[string]struct{}, len(duplicates))
	for _, d := range duplicates {
		out[d.OldContactID] = struct{}{}
	}
	return out, nil
}

func (s *Service) Aggregates(ctx context.Context, identity Identity) (Aggregates, error) {
	if err := validateIdentity(identity); err != nil {
		return Aggregates{}, err
	}
	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return Aggregates{}, err
	}
	all, err := s.loadContacts(ctx, identity.TenantID)
	if err != nil {
		return Aggregates{}, err
	}
	duplicates, err := s.repo.ListDuplicates(ctx, identity.TenantID)
	if err != nil {
		return Aggregates{}, newError(ErrorCodeInternal, "failed to load duplicates", err)
	}

	agg := Aggregates{Total: len(all), DuplicateCount: len(duplicates)}
	for _, c := range all {
		if invalidEmail(c, settings.EmailKey) {
			agg.InvalidEmailCount++
		}
	}
	return agg, nil
}

// Finalize moves the tenant's contact list to FINALIZED and locks both keys.
func (s *Service) Finalize(ctx context.Context, identity Identity) (KeyConfig, error) {
	if err := validateIdentity(identity); err != nil {
		return KeyConfig{}, err
	}
	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return KeyConfig{}, err
	}
	if settings.IsFinalized {
		return KeyConfig{}, newError(ErrorCodeConflict, "contacts are already finalized", nil)
	}
	if settings.PrimaryKey == "" || settings.EmailKey == "" {
		return KeyConfig{}, newError(ErrorCodeValidation, "primary and email keys must be configured before finalizing", nil)
	}

	now := s.timestamp()
	settings.TenantID = identity.TenantID
	settings.IsFinalized = true
	settings.IsPrimaryKeyLocked = true
	settings.IsEmailKeyLocked = true
	settings.FinalizedAt = now
	settings.UpdatedAt = now
	if err := s.repo.PutSettings(ctx, settings); err != nil {
		return KeyConfig{}, newError(ErrorCodeInternal, "failed to finalize contacts", err)
	}

	s.publish(ctx, identity.TenantID, events.ContactsFinalized)
	return keyConfigFromSettings(settings), nil
}

// UpdateContacts merges fields into every addressed contact. All ids must exist.
func (s *Service) UpdateContacts(ctx context.Context, identity Identity, ids []string, fields contact.Fields) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return newError(ErrorCodeValidation, "ids are required", nil)
	}
	if fields.Len() == 0 {
		return newError(ErrorCodeValidation, "fields are required", nil)
	}
	for _, key := range fields.Keys() {
		if err := contact.ValidateKey(key); err != nil {
			return newError(ErrorCodeValidation, err.Error(), err)
		}
	}

	items := make([]model.ContactItem, 0, len(ids))
	now := s.timestamp()
	for _, id := range ids {
		item, err := s.repo.GetContact(ctx, identity.TenantID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(ErrorCodeNotFound, fmt.Sprintf("contact %s not found", id), nil)
			}
			return newError(ErrorCodeInternal, "failed to load contact", err)
		}
		c, err := itemToContact(item)
		if err != nil {
			return newError(ErrorCodeInternal, "stored contact is unreadable", err)
		}
		for _, key := range fields.Keys() {
			v, _ := fields.Get(key)
			c.Fields.Set(key, v)
		}
		items = append(items, contactToItem(identity.TenantID, c, item.CreatedAt, now))
	}

	if err := s.repo.PutContacts(ctx, items); err != nil {
		return newError(ErrorCodeInternal, "failed to update contacts", err)
	}
	s.publish(ctx, identity.TenantID, events.ContactsChanged)
	return nil
}

// DeleteContacts removes the addressed contacts and any duplicate pairs they anchor.
func (s *Service) DeleteContacts(ctx context.Context, identity Identity, ids []string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return newError(ErrorCodeValidation, "ids are required", nil)
	}
	for _, id := range ids {
		if _, err := s.repo.GetContact(ctx, identity.TenantID, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(ErrorCodeNotFound, fmt.Sprintf("contact %s not found", id), nil)
			}
			return newError(ErrorCodeInternal, "failed to load contact", err)
		}
	}

	duplicates, err := s.repo.ListDuplicates(ctx, identity.TenantID)
	if err != nil {
		return newError(ErrorCodeInternal, "failed to load duplicates", err)
	}
	deleted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		deleted[id] = struct{}{}
	}
	var orphaned []string
	for _, d := range duplicates {
		if _, ok := deleted[d.OldContactID]; ok {
			orphaned = append(orphaned, d.DuplicateID)
		}
	}

	if err := s.repo.DeleteContacts(ctx, identity.TenantID, ids); err != nil {
		return newError(ErrorCodeInternal, "failed to delete contacts", err)
	}
	if len(orphaned) > 0 {
		if err := s.repo.DeleteDuplicates(ctx, identity.TenantID, orphaned); err != nil {
			return newError(ErrorCodeInternal, "failed to delete duplicates", err)
		}
	}
	s.publish(ctx, identity.TenantID, events.ContactsChanged)
	return nil
}

// Import stores incoming records. A record whose primary-key value is already
// taken, by a stored contact or an earlier record of the same batch, becomes a
// pending duplicate pair instead.
func (s *Service) Import(ctx context.Context, identity Identity, records []contact.Fields) (ImportResult, error) {
	if err := validateIdentity(identity); err != nil {
		return ImportResult{}, err
	}
	if len(records) == 0 {
		return ImportResult{}, newError(ErrorCodeValidation, "contacts are required", nil)
	}
	for _, r := range records {
		for _, key := range r.Keys() {
			if err := contact.ValidateKey(key); err != nil {
				return ImportResult{}, newError(ErrorCodeValidation, err.Error(), err)
			}
		}
	}

	settings, err := s.loadSettings(ctx, identity.TenantID)
	if err != nil {
		return ImportResult{}, err
	}
	existing, err := s.loadContacts(ctx, identity.TenantID)
	if err != nil {
		return ImportResult{}, err
	}

	byKey := make(map[string]string)
	if settings.PrimaryKey != "" {
		for _, c := range existing {
			if text, ok := c.FieldText(settings.PrimaryKey); ok && text != "" {
				byKey[text] = c.ID
			}
		}
	}

	now := s.timestamp()
	var created []model.ContactItem
	var duplicates []model.DuplicateContactItem
	for _, r := range records {
		fields := r.Clone()
		if settings.PrimaryKey != "" {
			if text, ok := (contact.Contact{Fields: fields}).FieldText(settings.PrimaryKey); ok && text != "" {
				if oldID, taken := byKey[text]; taken {
					duplicates = append(duplicates, model.DuplicateContactItem{
						TenantID:      identity.TenantID,
						DuplicateID:   uuid.NewString(),
						OldContactID:  oldID,
						NewFields:     fields.Map(),
						NewFieldOrder: fields.Keys(),
						CreatedAt:     now,
					})
					continue
				}
			}
		}

		c := contact.Contact{ID: uuid.NewString(), Fields: fields}
		if settings.PrimaryKey != "" {
			if text, ok := c.FieldText(settings.PrimaryKey); ok && text != "" {
				byKey[text] = c.ID
			}
		}
		created = append(created, contactToItem(identity.TenantID, c, now, now))
	}

	if len(created) > 0 {
		if err := s.repo.PutContacts(ctx, created); err != nil {
			return ImportResult{}, newError(ErrorCodeInternal, "failed to store contacts", err)
		}
	}
	if len(duplicates) > 0 {
		if err := s.repo.PutDuplicates(ctx, duplicates); err != nil {
			return ImportResult{}, newError(ErrorCodeInternal, "failed to store duplicates", err)
		}
	}

	addImported(len(created), len(duplicates))
	s.publish(ctx, identity.TenantID, events.ContactsImported)
	return ImportResult{Created: len(created), Duplicates: len(duplicates)}, nil
}

// Export writes every contact as CSV: an id column followed by the known fields in sorted order.
func (s *Service) Export(ctx context.Context, identity Identity, w io.Writer) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	known, err := s.knownFields(ctx, identity.TenantID)
	if err != nil {
		return err
	}
	all, err := s.loadContacts(ctx, identity.TenantID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, known...)); err != nil {
		return newError(ErrorCodeInternal, "failed to write export", err)
	}
	for _, c := range all {
		row := make([]string, 0, len(known)+1)
		row = append(row, c.ID)
		for _, key := range known {
			text, _ := c.FieldText(key)
			row = append(row, text)
		}
		if err := cw.Write(row); err != nil {
			return newError(ErrorCodeInternal, "failed to write export", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return newError(ErrorCodeInternal, "failed to write export", err)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
