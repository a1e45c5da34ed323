package governance

import (
	"contacts-backend/internal/logger"
	"context"
)

// MergeColumns keeps the saved columns still present in known, in saved
// order. With nothing left it falls back to every known field.
func MergeColumns(saved, known []string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}

	seen := make(map[string]struct{}, len(saved))
	out := make([]string, 0, len(saved))
	for _, c := range saved {
		if _, ok := knownSet[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return append([]string(nil), known...)
	}
	return out
}

// loadSavedColumns returns the saved preference: the server profile when it
// has one, otherwise the local cache. A server preference refreshes the cache.
func loadSavedColumns(ctx context.Context, api API, cache ColumnCache, tenantID string) []string {
	log := logger.FromContext(ctx)

	profile, err := api.Columns(ctx)
	if err != nil {
		log.Debug("column profile unavailable, using local cache", "error", err)
	}
	if err == nil && profile.Saved {
		if err := cache.Store(tenantID, profile.Columns); err != nil {
			log.Debug("column cache write failed", "error", err)
		}
		return profile.Columns
	}

	cached, err := cache.Load(tenantID)
	if err != nil {
		log.Debug("column cache read failed", "error", err)
	}
	return cached
}
