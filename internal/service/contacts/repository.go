package contacts

import (
	"contacts-backend/internal/database"
	"contacts-backend/internal/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("contacts repository: not found")

type Repository interface {
	GetSettings(ctx context.Context, tenantID string) (model.ContactSettingsItem, error)
	PutSettings(ctx context.Context, settings model.ContactSettingsItem) error

	GetRevertRequest(ctx context.Context, tenantID, requestType string) (model.RevertRequestItem, error)
	PutRevertRequest(ctx context.Context, request model.RevertRequestItem) error
	DeleteRevertRequest(ctx context.Context, tenantID, requestType string) error

	ListContacts(ctx context.Context, tenantID string) ([]model.ContactItem, error)
	GetContact(ctx context.Context, tenantID, contactID string) (model.ContactItem, error)
	PutContacts(ctx context.Context, contacts []model.ContactItem) error
	DeleteContacts(ctx context.Context, tenantID string, contactIDs []string) error

	ListDuplicates(ctx context.Context, tenantID string) ([]model.DuplicateContactItem, error)
	GetDuplicate(ctx context.Context, tenantID, duplicateID string) (model.DuplicateContactItem, error)
	PutDuplicates(ctx context.Context, duplicates []model.DuplicateContactItem) error
	DeleteDuplicates(ctx context.Context, tenantID string, duplicateIDs []string) error

	GetProfile(ctx context.Context, tenantID, userID string) (model.UserProfileItem, error)
	PutProfile(ctx context.Context, profile model.UserProfileItem) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func pkKey(tenantID, id string) database.Key {
	return database.StringKey("pk", model.TenantScopedPK(tenantID, id))
}

func (r *DynamoRepository) GetSettings(ctx context.Context, tenantID string) (model.ContactSettingsItem, error) {
	var settings model.ContactSettingsItem
	if err := r.db.Client.Get(ctx, model.ContactSettingsTable, database.StringKey("tenantId", tenantID), &settings); err != nil {
		return model.ContactSettingsItem{}, notFoundOr(err)
	}
	return settings, nil
}

func (r *DynamoRepository) PutSettings(ctx context.Context, settings model.ContactSettingsItem) error {
	return r.db.Client.Put(ctx, model.ContactSettingsTable, settings)
}

func (r *DynamoRepository) GetRevertRequest(ctx context.Context, tenantID, requestType string) (model.RevertRequestItem, error) {
	var request model.RevertRequestItem
	if err := r.db.Client.Get(ctx, model.RevertRequestsTable, pkKey(tenantID, requestType), &request); err != nil {
		return model.RevertRequestItem{}, notFoundOr(err)
	}
	return request, nil
}

func (r *DynamoRepository) PutRevertRequest(ctx context.Context, request model.RevertRequestItem) error {
	request.PK = model.TenantScopedPK(request.TenantID, request.RequestType)
	return r.db.Client.Put(ctx, model.RevertRequestsTable, request)
}

func (r *DynamoRepository) DeleteRevertRequest(ctx context.Context, tenantID, requestType string) error {
	return r.db.Client.Delete(ctx, model.RevertRequestsTable, pkKey(tenantID, requestType))
}

func (r *DynamoRepository) ListContacts(ctx context.Context, tenantID string) ([]model.ContactItem, error) {
	var contacts []model.ContactItem
	if err := r.db.Client.QueryIndex(ctx, model.ContactsTable, model.ByTenantIndex, "tenantId", tenantID, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *DynamoRepository) GetContact(ctx context.Context, tenantID, contactID string) (model.ContactItem, error) {
	var c model.ContactItem
	if err := r.db.Client.Get(ctx, model.ContactsTable, pkKey(tenantID, contactID), &c); err != nil {
		return model.ContactItem{}, notFoundOr(err)
	}
	return c, nil
}

func (r *DynamoRepository) PutContacts(ctx context.Context, contacts []model.ContactItem) error {
	items := make([]any, 0, len(contacts))
	for _, c := range contacts {
		c.PK = model.TenantScopedPK(c.TenantID, c.ContactID)
		items = append(items, c)
	}
	return r.db.Client.WriteBatch(ctx, model.ContactsTable, items, nil)
}

func (r *DynamoRepository) DeleteContacts(ctx context.Context, tenantID string, contactIDs []string) error {
	return r.db.Client.WriteBatch(ctx, model.ContactsTable, nil, scopedKeys(tenantID, contactIDs))
}

func (r *DynamoRepository) ListDuplicates(ctx context.Context, tenantID string) ([]model.DuplicateContactItem, error) {
	var duplicates []model.DuplicateContactItem
	if err := r.db.Client.QueryIndex(ctx, model.DuplicateContactsTable, model.ByTenantIndex, "tenantId", tenantID, &duplicates); err != nil {
		return nil, err
	}
	return duplicates, nil
}

func (r *DynamoRepository) GetDuplicate(ctx context.Context, tenantID, duplicateID string) (model.DuplicateContactItem, error) {
	var d model.DuplicateContactItem
	if err := r.db.Client.Get(ctx, model.DuplicateContactsTable, pkKey(tenantID, duplicateID), &d); err != nil {
		return model.DuplicateContactItem{}, notFoundOr(err)
	}
	return d, nil
}

func (r *DynamoRepository) PutDuplicates(ctx context.Context, duplicates []model.DuplicateContactItem) error {
	items := make([]any, 0, len(duplicates))
	for _, d := range duplicates {
		d.PK = model.TenantScopedPK(d.TenantID, d.DuplicateID)
		items = append(items, d)
	}
	return r.db.Client.WriteBatch(ctx, model.DuplicateContactsTable, items, nil)
}

func (r *DynamoRepository) DeleteDuplicates(ctx context.Context, tenantID string, duplicateIDs []string) error {
	return r.db.Client.WriteBatch(ctx, model.DuplicateContactsTable, nil, scopedKeys(tenantID, duplicateIDs))
}

func (r *DynamoRepository) GetProfile(ctx context.Context, tenantID, userID string) (model.UserProfileItem, error) {
	var p model.UserProfileItem
	if err := r.db.Client.Get(ctx, model.UserProfilesTable, pkKey(tenantID, userID), &p); err != nil {
		return model.UserProfileItem{}, notFoundOr(err)
	}
	return p, nil
}

func (r *DynamoRepository) PutProfile(ctx context.Context, profile model.UserProfileItem) error {
	profile.PK = model.TenantScopedPK(profile.TenantID, profile.UserID)
	return r.db.Client.Put(ctx, model.UserProfilesTable, profile)
}

func scopedKeys(tenantID string, ids []string) []database.Key {
	keys := make([]database.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, pkKey(tenantID, id))
	}
	return keys
}

func notFoundOr(err error) error {
	if errors.Is(err, database.ErrItemNotFound) {
		return ErrNotFound
	}
	return err
}
