package dto

// KeyConfigResponse reports the tenant's key configuration. Unset keys are null.
type KeyConfigResponse struct {
	PrimaryKey         *string `json:"primaryKey"`
	EmailKey           *string `json:"emailKey"`
	IsPrimaryKeyLocked bool    `json:"isPrimaryKeyLocked"`
	IsEmailKeyLocked   bool    `json:"isEmailKeyLocked"`
	IsFinalized        bool    `json:"isFinalized"`
}

type KeyRequest struct {
	Attribute string `json:"attribute"`
}

type RevertRequestBody struct {
	RequestType string `json:"requestType"`
}

type RevertRequestResponse struct {
	RequestType string `json:"requestType"`
	Status      string `json:"status"`
	RequestedBy string `json:"requestedBy,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	DecidedAt   string `json:"decidedAt,omitempty"`
}

type AdminRevertDecisionRequest struct {
	TenantID    string `json:"tenantId"`
	RequestType string `json:"requestType"`
	Approve     bool   `json:"approve"`
}
