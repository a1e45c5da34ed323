package governance

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// KeyRegistry tracks the tenant's primary and email keys and the revert
// requests gating edits to them once the contact list is finalized.
type KeyRegistry struct {
	api API

	mu          sync.Mutex
	config      KeyConfig
	requests    map[KeyKind]RevertRequest
	knownFields []string
	onChange    func(context.Context)
}

func NewKeyRegistry(api API) *KeyRegistry {
	return &KeyRegistry{
		api: api,
		requests: map[KeyKind]RevertRequest{
			KeyPrimary: {RequestType: RequestEditPrimaryKey, Status: StatusNone},
			KeyEmail:   {RequestType: RequestEditEmailKey, Status: StatusNone},
		},
	}
}

// OnKeysChanged registers the dependent refresh run after every successful
// SetKey or DeleteKey.
func (r *KeyRegistry) OnKeysChanged(fn func(context.Context)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Load fetches the key configuration, known fields and both revert requests.
func (r *KeyRegistry) Load(ctx context.Context) error {
	var (
		config   KeyConfig
		fields   []string
		requests = make([]RevertRequest, 2)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		config, err = r.api.KeyConfig(gctx)
		return err
	})
	g.Go(func() (err error) {
		fields, err = r.api.Fields(gctx)
		return err
	})
	for i, kind := range []KeyKind{KeyPrimary, KeyEmail} {
		g.Go(func() (err error) {
			requests[i], err = r.api.RevertRequest(gctx, kind.RequestType())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	r.knownFields = append([]string(nil), fields...)
	r.requests[KeyPrimary] = requests[0]
	r.requests[KeyEmail] = requests[1]
	return nil
}

func (r *KeyRegistry) Config() KeyConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// GetCurrentKey returns the configured attribute for kind, or false when none is set.
func (r *KeyRegistry) GetCurrentKey(kind KeyKind) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.currentKey(kind)
	return key, key != ""
}

func (r *KeyRegistry) currentKey(kind KeyKind) string {
	if kind == KeyEmail {
		return r.config.EmailKey
	}
	return r.config.PrimaryKey
}

func (r *KeyRegistry) KnownFields() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.knownFields...)
}

// IsLocked reports whether kind is locked. Locks only bind once finalized.
func (r *KeyRegistry) IsLocked(kind KeyKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked(kind)
}

func (r *KeyRegistry) locked(kind KeyKind) bool {
	if !r.config.IsFinalized {
		return false
	}
	if kind == KeyEmail {
		return r.config.IsEmailKeyLocked
	}
	return r.config.IsPrimaryKeyLocked
}

func (r *KeyRegistry) PendingRequest(kind KeyKind) RevertRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[kind]
}

func (r *KeyRegistry) HasPendingRequest(kind KeyKind) bool {
	return r.PendingRequest(kind).Status == StatusPending
}

func (r *KeyRegistry) isKnown(attribute string) bool {
	for _, f := range r.knownFields {
		if f == attribute {
			return true
		}
	}
	return false
}

// SetKey configures attribute as the kind key. A locked key is rejected
// without a server call unless its revert request has been approved.
func (r *KeyRegistry) SetKey(ctx context.Context, kind KeyKind, attribute string) (string, error) {
	if !kind.Valid() {
		return "", errorf(KindValidation, "unknown key kind %q", kind)
	}
	attribute = strings.TrimSpace(attribute)
	if attribute == "" {
		return "", newError(KindValidation, "attribute is required", nil)
	}

	r.mu.Lock()
	if !r.isKnown(attribute) {
		r.mu.Unlock()
		return "", errorf(KindValidation, "%q is not a known contact field", attribute)
	}
	if r.locked(kind) {
		status := r.requests[kind].Status
		if status == StatusPending {
			r.mu.Unlock()
			return "", newError(KindConflict, "key is locked while its unlock request awaits approval", nil)
		}
		if status != StatusApproved {
			r.mu.Unlock()
			return "", newError(KindConflict, "key is locked; request an unlock first", nil)
		}
	}
	create := kind == KeyPrimary && r.config.PrimaryKey == ""
	r.mu.Unlock()

	var (
		config KeyConfig
		err    error
	)
	if create {
		config, err = r.api.CreatePrimaryKey(ctx, attribute)
	} else {
		config, err = r.api.UpdateKey(ctx, kind, attribute)
	}
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.config = config
	if r.requests[kind].Status == StatusApproved {
		// An approval is spent by the edit it allowed.
		r.requests[kind] = RevertRequest{RequestType: kind.RequestType(), Status: StatusNone}
	}
	current := r.currentKey(kind)
	r.mu.Unlock()

	r.keysChanged(ctx)
	return current, nil
}

// DeleteKey clears the primary key. The email key cannot be deleted.
func (r *KeyRegistry) DeleteKey(ctx context.Context, kind KeyKind) error {
	if kind != KeyPrimary {
		return newError(KindNotAllowed, "only the primary key can be deleted", nil)
	}

	r.mu.Lock()
	if r.locked(kind) {
		r.mu.Unlock()
		return newError(KindNotAllowed, "primary key is locked", nil)
	}
	if r.config.PrimaryKey == "" {
		r.mu.Unlock()
		return newError(KindNotFound, "no primary key is configured", nil)
	}
	r.mu.Unlock()

	config, err := r.api.DeletePrimaryKey(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.config = config
	r.mu.Unlock()

	r.keysChanged(ctx)
	return nil
}

// RequestUnlock asks an admin to unlock kind for one edit.
func (r *KeyRegistry) RequestUnlock(ctx context.Context, kind KeyKind) (RevertRequest, error) {
	if !kind.Valid() {
		return RevertRequest{}, errorf(KindValidation, "unknown key kind %q", kind)
	}
	r.mu.Lock()
	if r.requests[kind].Status == StatusPending {
		r.mu.Unlock()
		return RevertRequest{}, newError(KindConflict, "an unlock request is already pending", nil)
	}
	r.mu.Unlock()

	req, err := r.api.SubmitRevertRequest(ctx, kind.RequestType())
	if err != nil {
		return RevertRequest{}, err
	}

	r.mu.Lock()
	r.requests[kind] = req
	r.mu.Unlock()
	return req, nil
}

// CancelUnlockRequest withdraws the pending request for kind.
func (r *KeyRegistry) CancelUnlockRequest(ctx context.Context, kind KeyKind) error {
	if !kind.Valid() {
		return errorf(KindValidation, "unknown key kind %q", kind)
	}
	r.mu.Lock()
	if r.requests[kind].Status != StatusPending {
		r.mu.Unlock()
		return newError(KindNotFound, "no pending unlock request", nil)
	}
	r.mu.Unlock()

	err := r.api.CancelRevertRequest(ctx, kind.RequestType())
	if err != nil && !IsKind(err, KindNotFound) {
		return err
	}

	r.mu.Lock()
	r.requests[kind] = RevertRequest{RequestType: kind.RequestType(), Status: StatusNone}
	r.mu.Unlock()
	return err
}

// applyConfig replaces the cached configuration with one returned by
// another operation, such as finalize.
func (r *KeyRegistry) applyConfig(config KeyConfig) {
	r.mu.Lock()
	r.config = config
	r.mu.Unlock()
}

func (r *KeyRegistry) keysChanged(ctx context.Context) {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(ctx)
	}
}
