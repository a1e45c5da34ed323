package model

type ContactItem struct {
	PK         string                 `dynamodbav:"pk"`
	TenantID   string                 `dynamodbav:"tenantId"`
	ContactID  string                 `dynamodbav:"contactId"`
	Fields     map[string]interface{} `dynamodbav:"fields"`
	FieldOrder []string               `dynamodbav:"fieldOrder,omitempty"`
	CreatedAt  string                 `dynamodbav:"createdAt"`
	UpdatedAt  string                 `dynamodbav:"updatedAt"`
}

type ContactSettingsItem struct {
	TenantID           string `dynamodbav:"tenantId"`
	PrimaryKey         string `dynamodbav:"primaryKey,omitempty"`
	EmailKey           string `dynamodbav:"emailKey,omitempty"`
	IsPrimaryKeyLocked bool   `dynamodbav:"isPrimaryKeyLocked"`
	IsEmailKeyLocked   bool   `dynamodbav:"isEmailKeyLocked"`
	IsFinalized        bool   `dynamodbav:"isFinalized"`
	FinalizedAt        string `dynamodbav:"finalizedAt,omitempty"`
	UpdatedAt          string `dynamodbav:"updatedAt"`
}

type RevertRequestItem struct {
	PK          string `dynamodbav:"pk"`
	TenantID    string `dynamodbav:"tenantId"`
	RequestType string `dynamodbav:"requestType"`
	Status      string `dynamodbav:"status"`
	RequestedBy string `dynamodbav:"requestedBy"`
	CreatedAt   string `dynamodbav:"createdAt"`
	DecidedAt   string `dynamodbav:"decidedAt,omitempty"`
}

// DuplicateContactItem pairs a stored contact with an incoming record that
// shares its primary-key value.
type DuplicateContactItem struct {
	PK            string                 `dynamodbav:"pk"`
	TenantID      string                 `dynamodbav:"tenantId"`
	DuplicateID   string                 `dynamodbav:"duplicateId"`
	OldContactID  string                 `dynamodbav:"oldContactId"`
	NewFields     map[string]interface{} `dynamodbav:"newFields"`
	NewFieldOrder []string               `dynamodbav:"newFieldOrder,omitempty"`
	CreatedAt     string                 `dynamodbav:"createdAt"`
}

type UserProfileItem struct {
	PK        string   `dynamodbav:"pk"`
	TenantID  string   `dynamodbav:"tenantId"`
	UserID    string   `dynamodbav:"userId"`
	Columns   []string `dynamodbav:"columns"`
	UpdatedAt string   `dynamodbav:"updatedAt"`
}
