package governance

import (
	"contacts-backend/internal/contact"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeAPI is an in-memory tenant that records every call it serves.
type fakeAPI struct {
	mu sync.Mutex

	calls     []string
	fields    []string
	config    KeyConfig
	requests  map[RequestType]RevertRequest
	pairs     []DuplicatePair
	pageSize  int
	contacts  []contact.Contact
	queries   []ContactQuery
	invalid   int
	profile   ColumnProfile
	values    map[string][]string
	lookups   []string
	saveNew   *bool
	resolved  []ResolvedContact
	errs      map[string]error
	valuesFn  func(ctx context.Context, key, term string, page int) (ValuePage, error)
	resolveGo chan struct{}

	// contactsGate runs after a contact page is computed, before it returns.
	contactsGate func(ContactQuery)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		fields:   []string{"country", "email", "name", "phone"},
		requests: make(map[RequestType]RevertRequest),
		pageSize: 10,
		values:   make(map[string][]string),
		errs:     make(map[string]error),
	}
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) failWith(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeAPI) Fields(ctx context.Context) ([]string, error) {
	if err := f.record("Fields"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fields...), nil
}

func (f *fakeAPI) FilterValues(ctx context.Context, key, term string, page int) (ValuePage, error) {
	if err := f.record("FilterValues"); err != nil {
		return ValuePage{}, err
	}
	f.mu.Lock()
	f.lookups = append(f.lookups, term)
	fn := f.valuesFn
	all := f.values[key]
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, term, page)
	}

	var matched []string
	for _, v := range all {
		if strings.Contains(strings.ToLower(v), strings.ToLower(term)) {
			matched = append(matched, v)
		}
	}
	const size = 2
	start := (page - 1) * size
	if start >= len(matched) {
		return ValuePage{}, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return ValuePage{Values: matched[start:end], HasMore: end < len(matched)}, nil
}

func (f *fakeAPI) searchTerms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lookups...)
}

func (f *fakeAPI) Preview(ctx context.Context, criteria []string) (string, error) {
	if err := f.record("Preview"); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d contacts match the selected criteria", len(criteria)), nil
}

func (f *fakeAPI) KeyConfig(ctx context.Context) (KeyConfig, error) {
	if err := f.record("KeyConfig"); err != nil {
		return KeyConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, nil
}

func (f *fakeAPI) CreatePrimaryKey(ctx context.Context, attribute string) (KeyConfig, error) {
	if err := f.record("CreatePrimaryKey"); err != nil {
		return KeyConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config.PrimaryKey = attribute
	return f.config, nil
}

func (f *fakeAPI) UpdateKey(ctx context.Context, kind KeyKind, attribute string) (KeyConfig, error) {
	if err := f.record("UpdateKey"); err != nil {
		return KeyConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == KeyEmail {
		f.config.EmailKey = attribute
	} else {
		f.config.PrimaryKey = attribute
	}
	delete(f.requests, kind.RequestType())
	return f.config, nil
}

func (f *fakeAPI) DeletePrimaryKey(ctx context.Context) (KeyConfig, error) {
	if err := f.record("DeletePrimaryKey"); err != nil {
		return KeyConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config.PrimaryKey = ""
	return f.config, nil
}

func (f *fakeAPI) RevertRequest(ctx context.Context, requestType RequestType) (RevertRequest, error) {
	if err := f.record("RevertRequest"); err != nil {
		return RevertRequest{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if req, ok := f.requests[requestType]; ok {
		return req, nil
	}
	return RevertRequest{RequestType: requestType, Status: StatusNone}, nil
}

func (f *fakeAPI) SubmitRevertRequest(ctx context.Context, requestType RequestType) (RevertRequest, error) {
	if err := f.record("SubmitRevertRequest"); err != nil {
		return RevertRequest{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requests[requestType].Status == StatusPending {
		return RevertRequest{}, newError(KindConflict, "already pending", nil)
	}
	req := RevertRequest{RequestType: requestType, Status: StatusPending}
	f.requests[requestType] = req
	return req, nil
}

func (f *fakeAPI) CancelRevertRequest(ctx context.Context, requestType RequestType) error {
	if err := f.record("CancelRevertRequest"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.requests, requestType)
	return nil
}

func (f *fakeAPI) Duplicates(ctx context.Context, page int) (DuplicatePage, error) {
	if err := f.record("Duplicates"); err != nil {
		return DuplicatePage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := DuplicatePage{TotalRecords: len(f.pairs)}
	start := (page - 1) * f.pageSize
	if start >= len(f.pairs) {
		return out, nil
	}
	end := start + f.pageSize
	if end > len(f.pairs) {
		end = len(f.pairs)
	}
	for _, p := range f.pairs[start:end] {
		out.Pairs = append(out.Pairs, p.clone())
	}
	return out, nil
}

func (f *fakeAPI) ResolveDuplicates(ctx context.Context, resolved []ResolvedContact) error {
	if err := f.record("ResolveDuplicates"); err != nil {
		return err
	}
	f.mu.Lock()
	gate := f.resolveGo
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range resolved {
		for i, p := range f.pairs {
			if p.ID == r.DuplicateID {
				f.pairs = append(f.pairs[:i], f.pairs[i+1:]...)
				break
			}
		}
		f.resolved = append(f.resolved, r)
	}
	return nil
}

func (f *fakeAPI) ResolveAllDuplicates(ctx context.Context, saveNew bool) error {
	if err := f.record("ResolveAllDuplicates"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs = nil
	f.saveNew = &saveNew
	return nil
}

func (f *fakeAPI) Contacts(ctx context.Context, query ContactQuery) (ContactPage, error) {
	if err := f.record("Contacts"); err != nil {
		return ContactPage{}, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)

	var matched []contact.Contact
	for _, c := range f.contacts {
		if query.Filter.Match(c) {
			matched = append(matched, c.Clone())
		}
	}
	out := ContactPage{Total: len(matched)}
	start := query.Page * query.PageSize
	if start < len(matched) {
		end := start + query.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		out.Contacts = matched[start:end]
	}
	gate := f.contactsGate
	f.mu.Unlock()

	if gate != nil {
		gate(query)
	}
	return out, nil
}

func (f *fakeAPI) lastQuery() ContactQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeAPI) Finalize(ctx context.Context) (KeyConfig, error) {
	if err := f.record("Finalize"); err != nil {
		return KeyConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config.IsFinalized = true
	f.config.IsPrimaryKeyLocked = true
	f.config.IsEmailKeyLocked = true
	return f.config, nil
}

func (f *fakeAPI) UpdateContacts(ctx context.Context, ids []string, fields contact.Fields) error {
	return f.record("UpdateContacts")
}

func (f *fakeAPI) DeleteContacts(ctx context.Context, ids []string) error {
	if err := f.record("DeleteContacts"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	kept := f.contacts[:0]
	for _, c := range f.contacts {
		if !gone[c.ID] {
			kept = append(kept, c)
		}
	}
	f.contacts = kept
	return nil
}

func (f *fakeAPI) Import(ctx context.Context, records []contact.Fields) (ImportResult, error) {
	if err := f.record("Import"); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Created: len(records)}, nil
}

func (f *fakeAPI) Export(ctx context.Context, w io.Writer) error {
	if err := f.record("Export"); err != nil {
		return err
	}
	_, err := io.WriteString(w, "id\n")
	return err
}

func (f *fakeAPI) Aggregates(ctx context.Context) (Aggregates, error) {
	if err := f.record("Aggregates"); err != nil {
		return Aggregates{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return Aggregates{Total: len(f.contacts), InvalidEmailCount: f.invalid, DuplicateCount: -1}, nil
}

func (f *fakeAPI) Columns(ctx context.Context) (ColumnProfile, error) {
	if err := f.record("Columns"); err != nil {
		return ColumnProfile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return ColumnProfile{Columns: append([]string(nil), f.profile.Columns...), Saved: f.profile.Saved}, nil
}

func (f *fakeAPI) SaveColumns(ctx context.Context, columns []string) (ColumnProfile, error) {
	if err := f.record("SaveColumns"); err != nil {
		return ColumnProfile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = ColumnProfile{Columns: append([]string(nil), columns...), Saved: true}
	return f.profile, nil
}

var _ API = (*fakeAPI)(nil)

func makeContact(id string, kv ...string) contact.Contact {
	fields := contact.NewFields()
	for i := 0; i+1 < len(kv); i += 2 {
		fields.Set(kv[i], contact.String(kv[i+1]))
	}
	return contact.Contact{ID: id, Fields: fields}
}

func makePairs(n int) []DuplicatePair {
	pairs := make([]DuplicatePair, 0, n)
	for i := 1; i <= n; i++ {
		email := fmt.Sprintf("user%02d@example.com", i)
		id := fmt.Sprintf("c-%02d", i)
		pairs = append(pairs, DuplicatePair{
			ID:  fmt.Sprintf("dup-%02d", i),
			Old: makeContact(id, "email", email, "name", "old"),
			New: makeContact(id, "email", email, "name", "new"),
		})
	}
	return pairs
}

func pairIDs(pairs []DuplicatePair) []string {
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}

// manualScheduler fires timers only when the test says so.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs every pending timer and reports how many ran.
func (s *manualScheduler) Fire() int {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t.delay)
	}
	return out
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func contactIDs(contacts []contact.Contact) []string {
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	return ids
}
