package model

import "fmt"

const (
	ContactsTable          = "Contacts"
	ContactSettingsTable   = "ContactSettings"
	RevertRequestsTable    = "ContactRevertRequests"
	DuplicateContactsTable = "DuplicateContacts"
	UserProfilesTable      = "UserProfiles"
)

const (
	ByTenantIndex = "byTenant"
)

func TenantScopedPK(tenantID, entityID string) string {
	return fmt.Sprintf("%s#%s", tenantID, entityID)
}
