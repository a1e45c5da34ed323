package governance

import (
	"contacts-backend/internal/contact"
	"context"
	"sync"
)

type Side string

const (
	SideOld Side = "old"
	SideNew Side = "new"
)

func (s Side) Valid() bool {
	return s == SideOld || s == SideNew
}

// Selection is the editable copy of the selected pair. Edits never reach the
// fetched pair.
type Selection struct {
	PairID string
	Old    contact.Contact
	New    contact.Contact
}

func (s Selection) clone() Selection {
	return Selection{PairID: s.PairID, Old: s.Old.Clone(), New: s.New.Clone()}
}

// DuplicateSession is one open duplicate-resolution dialog. Close ends it:
// outstanding calls are cancelled and their responses ignored.
type DuplicateSession struct {
	api        API
	primaryKey string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pairs    []DuplicatePair
	total    int
	selected *Selection
	inFlight map[string]bool
	closed   bool

	// shifted counts pairs accepted since the loaded pairs were last read
	// from the start. Each one moves the server's later pages back by one.
	shifted int
}

// NewDuplicateSession opens a session. primaryKey names the field that may
// not be edited on either side.
func NewDuplicateSession(api API, primaryKey string) *DuplicateSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &DuplicateSession{
		api:        api,
		primaryKey: primaryKey,
		ctx:        ctx,
		cancel:     cancel,
		inFlight:   make(map[string]bool),
	}
}

// scope derives a call context that also ends when the session closes.
func (s *DuplicateSession) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// FetchPage loads page (1-based). Page 1 replaces the pairs and selects the
// first one; later pages append. After an accept, a later page is read
// together with every page before it so no pair is skipped.
func (s *DuplicateSession) FetchPage(ctx context.Context, page int) (DuplicatePage, error) {
	if page < 1 {
		return DuplicatePage{}, errorf(KindValidation, "page must be at least 1, got %d", page)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return DuplicatePage{}, ErrSessionClosed
	}
	shifted := s.shifted
	s.mu.Unlock()

	first := page
	if page > 1 && shifted > 0 {
		first = 1
	}

	var result DuplicatePage
	for p := first; p <= page; p++ {
		var err error
		if result, err = s.fetch(ctx, p, p == 1 && page == 1); err != nil {
			return DuplicatePage{}, err
		}
	}

	s.mu.Lock()
	if first == 1 {
		s.shifted -= shifted
	}
	s.mu.Unlock()

	out := DuplicatePage{TotalRecords: result.TotalRecords, Pairs: make([]DuplicatePair, 0, len(result.Pairs))}
	for _, p := range result.Pairs {
		out.Pairs = append(out.Pairs, p.clone())
	}
	return out, nil
}

// fetch reads one page and merges it into the loaded pairs by ID. reset
// drops the loaded pairs and the selection first.
func (s *DuplicateSession) fetch(ctx context.Context, page int, reset bool) (DuplicatePage, error) {
	callCtx, done := s.scope(ctx)
	result, err := s.api.Duplicates(callCtx, page)
	done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return DuplicatePage{}, ErrSessionClosed
	}
	if err != nil {
		return DuplicatePage{}, err
	}

	if reset {
		s.pairs = s.pairs[:0]
		s.selected = nil
	}
	seen := make(map[string]struct{}, len(s.pairs))
	for _, p := range s.pairs {
		seen[p.ID] = struct{}{}
	}
	for _, p := range result.Pairs {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		s.pairs = append(s.pairs, p.clone())
	}
	s.total = result.TotalRecords
	if s.selected == nil && len(s.pairs) > 0 {
		s.selectAt(0)
	}
	return result, nil
}

func (s *DuplicateSession) selectAt(idx int) {
	p := s.pairs[idx]
	s.selected = &Selection{PairID: p.ID, Old: p.Old.Clone(), New: p.New.Clone()}
}

func (s *DuplicateSession) indexOf(pairID string) int {
	for i, p := range s.pairs {
		if p.ID == pairID {
			return i
		}
	}
	return -1
}

// SelectPair makes a fresh editable copy of the pair, dropping unsaved edits
// of the previous selection.
func (s *DuplicateSession) SelectPair(pairID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	idx := s.indexOf(pairID)
	if idx < 0 {
		return errorf(KindNotFound, "duplicate pair %s not found", pairID)
	}
	s.selectAt(idx)
	return nil
}

func (s *DuplicateSession) Selected() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Selection{}, false
	}
	return s.selected.clone(), true
}

// EditField changes one field on one side of the selection. The primary-key
// field is read-only.
func (s *DuplicateSession) EditField(side Side, key string, value contact.Value) error {
	if !side.Valid() {
		return errorf(KindValidation, "unknown side %q", side)
	}
	if err := contact.ValidateKey(key); err != nil {
		return newError(KindValidation, err.Error(), err)
	}
	if key == s.primaryKey {
		return errorf(KindNotAllowed, "%s is the primary key and cannot be edited", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.selected == nil {
		return newError(KindValidation, "no duplicate pair is selected", nil)
	}
	if side == SideOld {
		s.selected.Old.Fields.Set(key, value)
	} else {
		s.selected.New.Fields.Set(key, value)
	}
	return nil
}

// IsResolving reports whether an accept call for pairID is outstanding.
func (s *DuplicateSession) IsResolving(pairID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[pairID]
}

// AcceptPair submits the chosen side of the selection as the record to keep.
// The pair leaves the pending list only once the server confirms, and the
// pair now at its position, or else the first pair, becomes the selection.
func (s *DuplicateSession) AcceptPair(ctx context.Context, side Side) error {
	if !side.Valid() {
		return errorf(KindValidation, "unknown side %q", side)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.selected == nil {
		s.mu.Unlock()
		return newError(KindValidation, "no duplicate pair is selected", nil)
	}
	pairID := s.selected.PairID
	if s.inFlight[pairID] {
		s.mu.Unlock()
		return newError(KindConflict, "this pair is already being resolved", nil)
	}
	chosen := s.selected.New
	if side == SideOld {
		chosen = s.selected.Old
	}
	resolved := ResolvedContact{DuplicateID: pairID, Fields: chosen.Fields.Clone()}
	s.inFlight[pairID] = true
	s.mu.Unlock()

	callCtx, done := s.scope(ctx)
	err := s.api.ResolveDuplicates(callCtx, []ResolvedContact{resolved})
	done()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, pairID)
	if s.closed {
		return ErrSessionClosed
	}
	if err != nil {
		return err
	}

	idx := s.indexOf(pairID)
	if idx < 0 {
		return nil
	}
	s.pairs = append(s.pairs[:idx], s.pairs[idx+1:]...)
	s.shifted++
	if s.total > 0 {
		s.total--
	}

	if s.selected != nil && s.selected.PairID != pairID {
		return nil
	}
	switch {
	case len(s.pairs) == 0:
		s.selected = nil
	case idx < len(s.pairs):
		s.selectAt(idx)
	default:
		s.selectAt(0)
	}
	return nil
}

// AcceptAll resolves every pending pair on the server, loaded or not, in
// favour of side, then closes the session.
func (s *DuplicateSession) AcceptAll(ctx context.Context, side Side) error {
	if !side.Valid() {
		return errorf(KindValidation, "unknown side %q", side)
	}
	if s.Closed() {
		return ErrSessionClosed
	}

	callCtx, done := s.scope(ctx)
	err := s.api.ResolveAllDuplicates(callCtx, side == SideNew)
	done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err != nil {
		return err
	}
	s.pairs = nil
	s.total = 0
	s.selected = nil
	s.closed = true
	s.cancel()
	return nil
}

func (s *DuplicateSession) Pairs() []DuplicatePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DuplicatePair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p.clone())
	}
	return out
}

// TotalRecords is the server's count of pending pairs.
func (s *DuplicateSession) TotalRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *DuplicateSession) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs) < s.total
}

func (s *DuplicateSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *DuplicateSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancel()
}
