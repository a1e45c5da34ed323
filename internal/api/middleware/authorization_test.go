package middleware

import (
	internaljwt "contacts-backend/internal/jwt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidateUserJWT(t *testing.T) {
	internaljwt.Configure("user-secret", "admin-secret")

	valid, err := internaljwt.CreateToken(internaljwt.User{Id: "u1", TenantID: "t1"}, internaljwt.RoleUser, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	noTenant, err := internaljwt.CreateToken(internaljwt.User{Id: "u1"}, internaljwt.RoleUser, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	admin, err := internaljwt.CreateToken(internaljwt.User{Id: "a1"}, internaljwt.RoleAdmin, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer", valid, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"no tenant", "Bearer " + noTenant, http.StatusUnauthorized},
		{"admin token", "Bearer " + admin, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := ValidateUserJWT(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}
