package jwt

type Role int

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type User struct {
	Id       string `json:"id"`
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
}
