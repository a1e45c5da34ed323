package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

func appendRoleChar(token string, role Role) string {
	return token + expectedRoleChar(role)
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleUser:
		return "1"
	case RoleAdmin:
		return "9"
	}
	return ""
}

func CreateToken(user User, role Role, validUntil int64) (string, error) {
	secret, ok := RoleSecrets[role]
	if !ok || secret == "" {
		return "", fmt.Errorf("invalid role specified")
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(AccessTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"id":       user.Id,
		"email":    user.Email,
		"tenantId": user.TenantID,
		"exp":      validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return appendRoleChar(tokenString, role), nil
}

// ParseToken validates an access token for role, including its trailing role character.
func ParseToken(tokenString string, role Role) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}

	if tokenString[len(tokenString)-1:] != expectedRoleChar(role) {
		return nil, fmt.Errorf("invalid role character in token")
	}
	tokenString = tokenString[:len(tokenString)-1]

	secret, ok := RoleSecrets[role]
	if !ok || secret == "" {
		return nil, fmt.Errorf("invalid role specified")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}

	return claims, nil
}

// UserFromClaims extracts the identifying claims of an access token.
func UserFromClaims(claims jwt.MapClaims) User {
	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	tenantID, _ := claims["tenantId"].(string)
	return User{Id: id, TenantID: tenantID, Email: email}
}

// TenantFromToken reads the tenant claim of an access token without
// verifying its signature. Callers that only need to scope local state use
// it; the server still validates every request.
func TenantFromToken(tokenString string) (string, error) {
	if len(tokenString) < 2 {
		return "", fmt.Errorf("token string is empty")
	}
	tokenString = tokenString[:len(tokenString)-1]

	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return "", err
	}
	tenantID := UserFromClaims(claims).TenantID
	if tenantID == "" {
		return "", fmt.Errorf("token carries no tenant")
	}
	return tenantID, nil
}
