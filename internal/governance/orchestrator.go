package governance

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/events"
	"contacts-backend/internal/logger"
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

const DefaultPageSize = 25

type Options struct {
	TenantID  string
	PageSize  int
	Notifier  Notifier
	Cache     ColumnCache
	Scheduler Scheduler
}

// Orchestrator is the contact list screen of one tenant session. Its methods
// are the action boundary: every failure is turned into a notice before it
// is returned.
type Orchestrator struct {
	api      API
	tenantID string
	notifier Notifier
	cache    ColumnCache

	Keys    *KeyRegistry
	Filters *Builder

	mu         sync.Mutex
	page       int
	pageSize   int
	quick      map[contact.QuickFilter]bool
	contacts   []contact.Contact
	total      int
	selected   map[string]struct{}
	columns    []string
	aggregates Aggregates
	duplicates *DuplicateSession

	// seq identifies the latest contact request. Answers to older ones and
	// to requests issued before a paging or filter change are dropped.
	seq uint64
}

func NewOrchestrator(api API, opts Options) *Orchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Cache == nil {
		opts.Cache = noCache{}
	}

	o := &Orchestrator{
		api:      api,
		tenantID: opts.TenantID,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		Keys:     NewKeyRegistry(api),
		Filters:  NewBuilder(api, opts.Scheduler),
		pageSize: opts.PageSize,
		quick:    make(map[contact.QuickFilter]bool),
		selected: make(map[string]struct{}),
	}
	o.Filters.OnChange(o.resetPaging)
	o.Keys.OnKeysChanged(o.RefreshAggregates)
	return o
}

// fail notices err and returns it. Not-found errors also reconcile state
// with the server.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	if err == nil || canceled(err) {
		return err
	}
	o.notifier.Notify(NoticeFor(err))
	if IsKind(err, KindNotFound) {
		o.reconcile(ctx)
	}
	return err
}

func (o *Orchestrator) reconcile(ctx context.Context) {
	if err := o.Keys.Load(ctx); err != nil {
		logger.FromContext(ctx).Debug("key state refresh failed", "error", err)
	}
	if err := o.fetchContacts(ctx); err != nil {
		logger.FromContext(ctx).Debug("contact list refresh failed", "error", err)
	}
}

func (o *Orchestrator) resetPaging() {
	o.mu.Lock()
	o.page = 0
	o.seq++
	o.selected = make(map[string]struct{})
	o.mu.Unlock()
}

// Load fetches key state, the column preference, aggregates and the first
// contact page.
func (o *Orchestrator) Load(ctx context.Context) error {
	var saved []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.Keys.Load(gctx)
	})
	g.Go(func() error {
		saved = loadSavedColumns(gctx, o.api, o.cache, o.tenantID)
		return nil
	})
	g.Go(func() error {
		o.RefreshAggregates(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return o.fail(ctx, err)
	}

	o.mu.Lock()
	o.columns = MergeColumns(saved, o.Keys.KnownFields())
	o.mu.Unlock()

	return o.Refresh(ctx)
}

func (o *Orchestrator) query() ContactQuery {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := ContactQuery{
		Page:         o.page,
		PageSize:     o.pageSize,
		QuickFilters: make(map[contact.QuickFilter]bool, len(o.quick)),
	}
	for k, v := range o.quick {
		q.QuickFilters[k] = v
	}
	return q
}

func (o *Orchestrator) fetchContacts(ctx context.Context) error {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.mu.Unlock()

	q := o.query()
	q.Filter = o.Filters.Filter()

	result, err := o.api.Contacts(ctx, q)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		return nil
	}
	o.contacts = result.Contacts
	o.total = result.Total

	onPage := make(map[string]struct{}, len(result.Contacts))
	for _, c := range result.Contacts {
		onPage[c.ID] = struct{}{}
	}
	for id := range o.selected {
		if _, ok := onPage[id]; !ok {
			delete(o.selected, id)
		}
	}
	return nil
}

// Refresh reloads the current contact page.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	return o.fail(ctx, o.fetchContacts(ctx))
}

// RefreshAggregates reloads the invalid-email and duplicate counts. Failures
// keep the previous counts.
func (o *Orchestrator) RefreshAggregates(ctx context.Context) {
	var (
		agg        Aggregates
		duplicates DuplicatePage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		agg, err = o.api.Aggregates(gctx)
		return err
	})
	g.Go(func() (err error) {
		duplicates, err = o.api.Duplicates(gctx, 1)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContext(ctx).Debug("aggregate refresh failed, keeping stale counts", "error", err)
		return
	}

	agg.DuplicateCount = duplicates.TotalRecords
	o.mu.Lock()
	o.aggregates = agg
	o.mu.Unlock()
}

func (o *Orchestrator) Aggregates() Aggregates {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.aggregates
}

func (o *Orchestrator) Contacts() []contact.Contact {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]contact.Contact, 0, len(o.contacts))
	for _, c := range o.contacts {
		out = append(out, c.Clone())
	}
	return out
}

func (o *Orchestrator) Total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.total
}

func (o *Orchestrator) Page() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.page
}

func (o *Orchestrator) PageSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pageSize
}

// SetPage moves to page (0-based). Call Refresh to load it.
func (o *Orchestrator) SetPage(page int) error {
	if page < 0 {
		return o.fail(context.Background(), errorf(KindValidation, "page must not be negative, got %d", page))
	}
	o.mu.Lock()
	o.page = page
	o.seq++
	o.selected = make(map[string]struct{})
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) SetPageSize(size int) error {
	if size <= 0 {
		return o.fail(context.Background(), errorf(KindValidation, "page size must be positive, got %d", size))
	}
	o.mu.Lock()
	o.pageSize = size
	o.mu.Unlock()
	o.resetPaging()
	return nil
}

// SetQuickFilter toggles a quick filter and returns to the first page.
func (o *Orchestrator) SetQuickFilter(flag contact.QuickFilter, on bool) error {
	if !flag.Valid() {
		return o.fail(context.Background(), errorf(KindValidation, "unknown quick filter %q", flag))
	}
	o.mu.Lock()
	if on {
		o.quick[flag] = true
	} else {
		delete(o.quick, flag)
	}
	o.mu.Unlock()
	o.resetPaging()
	return nil
}

func (o *Orchestrator) QuickFilters() map[contact.QuickFilter]bool {
	return o.query().QuickFilters
}

func (o *Orchestrator) Select(id string, on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if on {
		o.selected[id] = struct{}{}
	} else {
		delete(o.selected, id)
	}
}

// SelectAll selects the contacts of the loaded page only.
func (o *Orchestrator) SelectAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.contacts {
		o.selected[c.ID] = struct{}{}
	}
}

func (o *Orchestrator) ClearSelection() {
	o.mu.Lock()
	o.selected = make(map[string]struct{})
	o.mu.Unlock()
}

// Selected lists selected ids in page order.
func (o *Orchestrator) Selected() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.selected))
	for _, c := range o.contacts {
		if _, ok := o.selected[c.ID]; ok {
			out = append(out, c.ID)
		}
	}
	return out
}

func (o *Orchestrator) Columns() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.columns...)
}

// SaveColumns stores the column preference locally and on the profile.
func (o *Orchestrator) SaveColumns(ctx context.Context, columns []string) error {
	known := o.Keys.KnownFields()
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := knownSet[c]; !ok {
			return o.fail(ctx, errorf(KindValidation, "%q is not a known contact field", c))
		}
	}
	merged := MergeColumns(columns, known)

	o.mu.Lock()
	o.columns = merged
	o.mu.Unlock()

	if err := o.cache.Store(o.tenantID, merged); err != nil {
		logger.FromContext(ctx).Debug("column cache write failed", "error", err)
	}
	if _, err := o.api.SaveColumns(ctx, merged); err != nil {
		return o.fail(ctx, err)
	}
	return nil
}

func (o *Orchestrator) SetKey(ctx context.Context, kind KeyKind, attribute string) error {
	_, err := o.Keys.SetKey(ctx, kind, attribute)
	return o.fail(ctx, err)
}

func (o *Orchestrator) DeleteKey(ctx context.Context, kind KeyKind) error {
	return o.fail(ctx, o.Keys.DeleteKey(ctx, kind))
}

func (o *Orchestrator) RequestUnlock(ctx context.Context, kind KeyKind) (RevertRequest, error) {
	req, err := o.Keys.RequestUnlock(ctx, kind)
	return req, o.fail(ctx, err)
}

func (o *Orchestrator) CancelUnlockRequest(ctx context.Context, kind KeyKind) error {
	return o.fail(ctx, o.Keys.CancelUnlockRequest(ctx, kind))
}

// Preview reports how many contacts the current filter would match.
func (o *Orchestrator) Preview(ctx context.Context) (string, error) {
	msg, err := o.Filters.PreviewEffect(ctx, o.Filters.ResolveCriteria())
	return msg, o.fail(ctx, err)
}

// Finalize locks the contact list and both keys.
func (o *Orchestrator) Finalize(ctx context.Context) error {
	config := o.Keys.Config()
	if config.IsFinalized {
		return o.fail(ctx, newError(KindConflict, "contacts are already finalized", nil))
	}
	if config.PrimaryKey == "" || config.EmailKey == "" {
		return o.fail(ctx, newError(KindValidation, "set both the primary key and the email key before finalizing", nil))
	}

	config, err := o.api.Finalize(ctx)
	if err != nil {
		return o.fail(ctx, err)
	}
	o.Keys.applyConfig(config)
	o.RefreshAggregates(ctx)
	return nil
}

// validateFields checks a contact edit before it is sent. The email key, when
// present in fields, must hold a well-formed address.
func (o *Orchestrator) validateFields(fields contact.Fields) error {
	if fields.Len() == 0 {
		return newError(KindValidation, "no fields to update", nil)
	}
	for _, key := range fields.Keys() {
		if err := contact.ValidateKey(key); err != nil {
			return newError(KindValidation, err.Error(), err)
		}
	}
	emailKey, ok := o.Keys.GetCurrentKey(KeyEmail)
	if !ok {
		return nil
	}
	if v, present := fields.Get(emailKey); present && !v.IsNull() && !contact.ValidEmail(v.Text()) {
		return errorf(KindValidation, "%q is not a valid email address", v.Text())
	}
	return nil
}

func (o *Orchestrator) UpdateContact(ctx context.Context, id string, fields contact.Fields) error {
	return o.updateContacts(ctx, []string{id}, fields)
}

// UpdateSelected applies fields to every selected contact.
func (o *Orchestrator) UpdateSelected(ctx context.Context, fields contact.Fields) error {
	return o.updateContacts(ctx, o.Selected(), fields)
}

func (o *Orchestrator) updateContacts(ctx context.Context, ids []string, fields contact.Fields) error {
	if len(ids) == 0 {
		return o.fail(ctx, newError(KindValidation, "no contacts selected", nil))
	}
	if err := o.validateFields(fields); err != nil {
		return o.fail(ctx, err)
	}
	if err := o.api.UpdateContacts(ctx, ids, fields); err != nil {
		return o.fail(ctx, err)
	}
	o.afterContactsChanged(ctx)
	return nil
}

func (o *Orchestrator) DeleteContact(ctx context.Context, id string) error {
	return o.deleteContacts(ctx, []string{id})
}

func (o *Orchestrator) DeleteSelected(ctx context.Context) error {
	return o.deleteContacts(ctx, o.Selected())
}

func (o *Orchestrator) deleteContacts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return o.fail(ctx, newError(KindValidation, "no contacts selected", nil))
	}
	if err := o.api.DeleteContacts(ctx, ids); err != nil {
		return o.fail(ctx, err)
	}
	o.mu.Lock()
	for _, id := range ids {
		delete(o.selected, id)
	}
	o.mu.Unlock()
	o.afterContactsChanged(ctx)
	return nil
}

func (o *Orchestrator) Import(ctx context.Context, records []contact.Fields) (ImportResult, error) {
	if len(records) == 0 {
		return ImportResult{}, o.fail(ctx, newError(KindValidation, "nothing to import", nil))
	}
	result, err := o.api.Import(ctx, records)
	if err != nil {
		return ImportResult{}, o.fail(ctx, err)
	}
	o.afterContactsChanged(ctx)
	return result, nil
}

func (o *Orchestrator) Export(ctx context.Context, w io.Writer) error {
	return o.fail(ctx, o.api.Export(ctx, w))
}

func (o *Orchestrator) afterContactsChanged(ctx context.Context) {
	if err := o.fetchContacts(ctx); err != nil {
		logger.FromContext(ctx).Debug("contact list refresh failed", "error", err)
	}
	o.RefreshAggregates(ctx)
}

// OpenDuplicates starts a duplicate-resolution session on its first page,
// closing any session still open.
func (o *Orchestrator) OpenDuplicates(ctx context.Context) (*DuplicateSession, error) {
	primaryKey, ok := o.Keys.GetCurrentKey(KeyPrimary)
	if !ok {
		return nil, o.fail(ctx, newError(KindValidation, "set a primary key before resolving duplicates", nil))
	}

	session := NewDuplicateSession(o.api, primaryKey)
	o.mu.Lock()
	previous := o.duplicates
	o.duplicates = session
	o.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	if _, err := session.FetchPage(ctx, 1); err != nil {
		return session, o.fail(ctx, err)
	}
	return session, nil
}

// AcceptDuplicate resolves the selected pair of the open session.
func (o *Orchestrator) AcceptDuplicate(ctx context.Context, side Side) error {
	session, err := o.openSession()
	if err != nil {
		return o.fail(ctx, err)
	}
	if err := session.AcceptPair(ctx, side); err != nil {
		return o.fail(ctx, err)
	}
	o.afterContactsChanged(ctx)
	return nil
}

// AcceptAllDuplicates resolves every pending pair and closes the session.
func (o *Orchestrator) AcceptAllDuplicates(ctx context.Context, side Side) error {
	session, err := o.openSession()
	if err != nil {
		return o.fail(ctx, err)
	}
	if err := session.AcceptAll(ctx, side); err != nil {
		return o.fail(ctx, err)
	}
	o.mu.Lock()
	if o.duplicates == session {
		o.duplicates = nil
	}
	o.mu.Unlock()
	o.afterContactsChanged(ctx)
	return nil
}

func (o *Orchestrator) openSession() (*DuplicateSession, error) {
	o.mu.Lock()
	session := o.duplicates
	o.mu.Unlock()
	if session == nil || session.Closed() {
		return nil, ErrSessionClosed
	}
	return session, nil
}

// CloseDuplicates closes the open session; late responses are dropped.
func (o *Orchestrator) CloseDuplicates() {
	o.mu.Lock()
	session := o.duplicates
	o.duplicates = nil
	o.mu.Unlock()
	if session != nil {
		session.Close()
	}
}

// HandleEvent applies a server change notification for this tenant.
func (o *Orchestrator) HandleEvent(ctx context.Context, event events.Event) {
	if o.tenantID != "" && event.TenantID != o.tenantID {
		return
	}
	log := logger.FromContext(ctx).With("event", event.Type)

	switch event.Type {
	case events.KeysChanged, events.ContactsFinalized, events.RevertRequestChanged:
		if err := o.Keys.Load(ctx); err != nil {
			log.Debug("key state refresh failed", "error", err)
		}
	}
	switch event.Type {
	case events.ContactsChanged, events.ContactsImported, events.DuplicatesResolved:
		if err := o.fetchContacts(ctx); err != nil {
			log.Debug("contact list refresh failed", "error", err)
		}
	}
	if event.AffectsAggregates() {
		o.RefreshAggregates(ctx)
	}
}

// Close ends the session's background work.
func (o *Orchestrator) Close() {
	o.CloseDuplicates()
	o.Filters.Close()
}
