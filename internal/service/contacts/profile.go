package contacts

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/model"
	"context"
	"errors"
)

type ColumnPreference struct {
	Columns []string
	Saved   bool
}

func (s *Service) GetColumns(ctx context.Context, identity Identity) (ColumnPreference, error) {
	if err := validateIdentity(identity); err != nil {
		return ColumnPreference{}, err
	}
	profile, err := s.repo.GetProfile(ctx, identity.TenantID, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ColumnPreference{Columns: []string{}}, nil
		}
		return ColumnPreference{}, newError(ErrorCodeInternal, "failed to load profile", err)
	}
	columns := profile.Columns
	if columns == nil {
		columns = []string{}
	}
	return ColumnPreference{Columns: columns, Saved: true}, nil
}

// SaveColumns stores the user's ordered column list. Repeated names keep their first position.
func (s *Service) SaveColumns(ctx context.Context, identity Identity, columns []string) (ColumnPreference, error) {
	if err := validateIdentity(identity); err != nil {
		return ColumnPreference{}, err
	}
	seen := make(map[string]struct{}, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if err := contact.ValidateKey(c); err != nil {
			return ColumnPreference{}, newError(ErrorCodeValidation, err.Error(), err)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	profile := model.UserProfileItem{
		TenantID:  identity.TenantID,
		UserID:    identity.UserID,
		Columns:   out,
		UpdatedAt: s.timestamp(),
	}
	if err := s.repo.PutProfile(ctx, profile); err != nil {
		return ColumnPreference{}, newError(ErrorCodeInternal, "failed to save profile", err)
	}
	return ColumnPreference{Columns: out, Saved: true}, nil
}
