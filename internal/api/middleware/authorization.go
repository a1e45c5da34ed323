package middleware

import (
	internaljwt "contacts-backend/internal/jwt"
	"net/http"
	"strings"
)

func ValidateJWTMiddleware(role internaljwt.Role) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(tokenString, "Bearer ") {
				writeUnauthorized(w, "Unauthorized")
				return
			}

			claims, err := internaljwt.ParseToken(strings.TrimPrefix(tokenString, "Bearer "), role)
			if err != nil {
				writeUnauthorized(w, "Unauthorized")
				return
			}

			if role == internaljwt.RoleUser && internaljwt.UserFromClaims(claims).TenantID == "" {
				writeUnauthorized(w, "Unauthorized")
				return
			}

			next(w, r)
		}
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"` + message + `"}`))
}

var ValidateUserJWT = ValidateJWTMiddleware(internaljwt.RoleUser)
var ValidateAdminJWT = ValidateJWTMiddleware(internaljwt.RoleAdmin)
