package endpoints

import (
	"contacts-backend/internal/dto"
	contactsservice "contacts-backend/internal/service/contacts"
	"errors"
	"fmt"
	"net/http"
)

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toKeyConfigResponse(cfg contactsservice.KeyConfig) dto.KeyConfigResponse {
	return dto.KeyConfigResponse{
		PrimaryKey:         optionalString(cfg.PrimaryKey),
		EmailKey:           optionalString(cfg.EmailKey),
		IsPrimaryKeyLocked: cfg.IsPrimaryKeyLocked,
		IsEmailKeyLocked:   cfg.IsEmailKeyLocked,
		IsFinalized:        cfg.IsFinalized,
	}
}

func toRevertRequestResponse(req contactsservice.RevertRequest) dto.RevertRequestResponse {
	return dto.RevertRequestResponse{
		RequestType: string(req.RequestType),
		Status:      string(req.Status),
		RequestedBy: req.RequestedBy,
		CreatedAt:   req.CreatedAt,
		DecidedAt:   req.DecidedAt,
	}
}

func mapContactsServiceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *contactsservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("contacts service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	status := http.StatusInternalServerError
	message := svcErr.Message
	switch svcErr.Code {
	case contactsservice.ErrorCodeValidation:
		status = http.StatusBadRequest
	case contactsservice.ErrorCodeUnauthorized:
		status = http.StatusUnauthorized
	case contactsservice.ErrorCodeForbidden:
		status = http.StatusForbidden
	case contactsservice.ErrorCodeNotFound:
		status = http.StatusNotFound
	case contactsservice.ErrorCodeConflict:
		status = http.StatusConflict
	default:
		message = "Internal server error"
	}

	return &HTTPError{
		StatusCode: status,
		Message:    message,
		ErrorLog:   errorLog,
	}
}
