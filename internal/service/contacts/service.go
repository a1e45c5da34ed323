package contacts

import (
	"contacts-backend/internal/database"
	"contacts-backend/internal/events"
	internaljwt "contacts-backend/internal/jwt"
	"contacts-backend/internal/logger"
	"contacts-backend/internal/model"
	"context"
	"errors"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of a service error, or ErrorCodeInternal.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ErrorCodeInternal
}

type Identity struct {
	UserID   string
	TenantID string
	Email    string
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	now       func() time.Time
}

func New(db *database.Database, publisher events.Publisher) *Service {
	return NewWithRepository(NewDynamoRepository(db), publisher, time.Now)
}

func NewWithRepository(repo Repository, publisher events.Publisher, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       now,
	}
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleUser)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	user := internaljwt.UserFromClaims(claims)
	if user.Id == "" || user.TenantID == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "token missing identifiers", nil)
	}

	return Identity{
		UserID:   user.Id,
		TenantID: user.TenantID,
		Email:    user.Email,
	}, nil
}

func validateIdentity(identity Identity) error {
	if identity.UserID == "" || identity.TenantID == "" {
		return newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// publish never fails the calling operation; subscribers reconcile on their next read.
func (s *Service) publish(ctx context.Context, tenantID string, t events.Type) {
	if err := s.publisher.Publish(ctx, events.New(t, tenantID, s.now())); err != nil {
		logger.FromContext(ctx).Warn("publish tenant event failed", "tenant", tenantID, "type", string(t), "error", err)
	}
}

func (s *Service) loadSettings(ctx context.Context, tenantID string) (model.ContactSettingsItem, error) {
	settings, err := s.repo.GetSettings(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ContactSettingsItem{TenantID: tenantID}, nil
		}
		return model.ContactSettingsItem{}, newError(ErrorCodeInternal, "failed to load contact settings", err)
	}
	return settings, nil
}
