package contacts

import (
	"contacts-backend/internal/model"
	"context"
	"sync"
)

// MemoryRepository keeps everything in process memory. It backs local runs
// without DynamoDB and the package tests.
type MemoryRepository struct {
	mu         sync.Mutex
	settings   map[string]model.ContactSettingsItem
	requests   map[string]model.RevertRequestItem
	contacts   map[string]model.ContactItem
	duplicates map[string]model.DuplicateContactItem
	profiles   map[string]model.UserProfileItem
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		settings:   make(map[string]model.ContactSettingsItem),
		requests:   make(map[string]model.RevertRequestItem),
		contacts:   make(map[string]model.ContactItem),
		duplicates: make(map[string]model.DuplicateContactItem),
		profiles:   make(map[string]model.UserProfileItem),
	}
}

func (m *MemoryRepository) GetSettings(ctx context.Context, tenantID string) (model.ContactSettingsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[tenantID]
	if !ok {
		return model.ContactSettingsItem{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryRepository) PutSettings(ctx context.Context, settings model.ContactSettingsItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.TenantID] = settings
	return nil
}

func (m *MemoryRepository) GetRevertRequest(ctx context.Context, tenantID, requestType string) (model.RevertRequestItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[model.TenantScopedPK(tenantID, requestType)]
	if !ok {
		return model.RevertRequestItem{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryRepository) PutRevertRequest(ctx context.Context, request model.RevertRequestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[model.TenantScopedPK(request.TenantID, request.RequestType)] = request
	return nil
}

func (m *MemoryRepository) DeleteRevertRequest(ctx context.Context, tenantID, requestType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, model.TenantScopedPK(tenantID, requestType))
	return nil
}

func (m *MemoryRepository) ListContacts(ctx context.Context, tenantID string) ([]model.ContactItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ContactItem, 0)
	for _, c := range m.contacts {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetContact(ctx context.Context, tenantID, contactID string) (model.ContactItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[model.TenantScopedPK(tenantID, contactID)]
	if !ok {
		return model.ContactItem{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryRepository) PutContacts(ctx context.Context, contacts []model.ContactItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range contacts {
		m.contacts[model.TenantScopedPK(c.TenantID, c.ContactID)] = c
	}
	return nil
}

func (m *MemoryRepository) DeleteContacts(ctx context.Context, tenantID string, contactIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range contactIDs {
		delete(m.contacts, model.TenantScopedPK(tenantID, id))
	}
	return nil
}

func (m *MemoryRepository) ListDuplicates(ctx context.Context, tenantID string) ([]model.DuplicateContactItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DuplicateContactItem, 0)
	for _, d := range m.duplicates {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetDuplicate(ctx context.Context, tenantID, duplicateID string) (model.DuplicateContactItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.duplicates[model.TenantScopedPK(tenantID, duplicateID)]
	if !ok {
		return model.DuplicateContactItem{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryRepository) PutDuplicates(ctx context.Context, duplicates []model.DuplicateContactItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range duplicates {
		m.duplicates[model.TenantScopedPK(d.TenantID, d.DuplicateID)] = d
	}
	return nil
}

func (m *MemoryRepository) DeleteDuplicates(ctx context.Context, tenantID string, duplicateIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range duplicateIDs {
		delete(m.duplicates, model.TenantScopedPK(tenantID, id))
	}
	return nil
}

func (m *MemoryRepository) GetProfile(ctx context.Context, tenantID, userID string) (model.UserProfileItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[model.TenantScopedPK(tenantID, userID)]
	if !ok {
		return model.UserProfileItem{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryRepository) PutProfile(ctx context.Context, profile model.UserProfileItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[model.TenantScopedPK(profile.TenantID, profile.UserID)] = profile
	return nil
}
