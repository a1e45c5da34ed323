package jwt

import (
	"contacts-backend/internal/env"
	"time"
)

const AccessTokenTTL = 15 * time.Minute

const (
	RoleUser Role = iota
	RoleAdmin
)

var RoleSecrets = map[Role]string{}

func init() {
	Configure(env.Get(env.UserSecretKey), env.Get(env.AdminSecretKey))
}

// Configure replaces the signing secrets. An empty admin secret disables admin tokens.
func Configure(userSecret, adminSecret string) {
	RoleSecrets[RoleUser] = userSecret
	if adminSecret != "" {
		RoleSecrets[RoleAdmin] = adminSecret
	} else {
		delete(RoleSecrets, RoleAdmin)
	}
}
