package governance

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/logger"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Condition is the render state of one filter condition.
type Condition struct {
	ID         string
	Key        string
	Values     []string
	SearchTerm string
	ValuesData []string
	HasMore    bool
	IsLoading  bool
}

type Group struct {
	ID         string
	Logic      contact.Logic
	Conditions []Condition
}

// FilterState is a deep copy of the builder for rendering.
type FilterState struct {
	Logic  contact.Logic
	Groups []Group
}

type condition struct {
	id         string
	key        string
	values     []string
	searchTerm string
	valuesData []string
	hasMore    bool
	isLoading  bool
	page       int

	// seq identifies the latest lookup; results of older ones are dropped.
	seq    uint64
	timer  Timer
	cancel context.CancelFunc
}

func (c *condition) effective() bool {
	return contact.Condition{Key: c.key, Values: c.values}.Effective()
}

type group struct {
	id         string
	logic      contact.Logic
	conditions []*condition
}

// Builder holds a grouped boolean filter and fetches value suggestions for
// each condition. Search-term lookups are debounced and only the newest
// lookup of a condition may update it.
type Builder struct {
	api      API
	sched    Scheduler
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	logic    contact.Logic
	groups   []*group
	onChange func()
	closed   bool
}

// NewBuilder returns an empty builder. A nil sched uses the wall clock.
func NewBuilder(api API, sched Scheduler) *Builder {
	if sched == nil {
		sched = ClockScheduler
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Builder{
		api:      api,
		sched:    sched,
		debounce: SuggestionDebounce,
		ctx:      ctx,
		cancel:   cancel,
		logic:    contact.LogicAnd,
	}
}

// OnChange registers fn, called whenever the resolved filter changes.
func (b *Builder) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// unlockAndNotify releases b.mu and then runs the change hook if changed.
func (b *Builder) unlockAndNotify(changed bool) {
	fn := b.onChange
	b.mu.Unlock()
	if changed && fn != nil {
		fn()
	}
}

func (b *Builder) findGroup(groupID string) (*group, int) {
	for i, g := range b.groups {
		if g.id == groupID {
			return g, i
		}
	}
	return nil, -1
}

func (b *Builder) findCondition(groupID, conditionID string) (*group, *condition, int, error) {
	g, _ := b.findGroup(groupID)
	if g == nil {
		return nil, nil, -1, errorf(KindNotFound, "filter group %s not found", groupID)
	}
	for i, c := range g.conditions {
		if c.id == conditionID {
			return g, c, i, nil
		}
	}
	return nil, nil, -1, errorf(KindNotFound, "filter condition %s not found", conditionID)
}

func newCondition() *condition {
	return &condition{id: uuid.NewString(), page: 1}
}

// AddGroup appends a group holding one blank condition.
func (b *Builder) AddGroup() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := &group{
		id:         uuid.NewString(),
		logic:      contact.LogicAnd,
		conditions: []*condition{newCondition()},
	}
	b.groups = append(b.groups, g)
	return g.id
}

func (b *Builder) RemoveGroup(groupID string) error {
	b.mu.Lock()
	g, idx := b.findGroup(groupID)
	if g == nil {
		b.mu.Unlock()
		return errorf(KindNotFound, "filter group %s not found", groupID)
	}
	changed := false
	for _, c := range g.conditions {
		b.stopLookup(c)
		changed = changed || c.effective()
	}
	b.groups = append(b.groups[:idx], b.groups[idx+1:]...)
	b.unlockAndNotify(changed)
	return nil
}

func (b *Builder) AddCondition(groupID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, _ := b.findGroup(groupID)
	if g == nil {
		return "", errorf(KindNotFound, "filter group %s not found", groupID)
	}
	c := newCondition()
	g.conditions = append(g.conditions, c)
	return c.id, nil
}

func (b *Builder) RemoveCondition(groupID, conditionID string) error {
	b.mu.Lock()
	g, c, idx, err := b.findCondition(groupID, conditionID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.stopLookup(c)
	g.conditions = append(g.conditions[:idx], g.conditions[idx+1:]...)
	b.unlockAndNotify(c.effective())
	return nil
}

// SetConditionKey points a condition at another field. Its values,
// suggestions and search term are reset and suggestions for the new key are
// fetched right away.
func (b *Builder) SetConditionKey(groupID, conditionID, key string) error {
	if err := contact.ValidateKey(key); err != nil {
		return newError(KindValidation, err.Error(), err)
	}

	b.mu.Lock()
	_, c, _, err := b.findCondition(groupID, conditionID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	changed := c.effective()
	b.stopLookup(c)
	c.key = key
	c.values = nil
	c.valuesData = nil
	c.hasMore = false
	c.searchTerm = ""
	c.page = 1
	b.startLookup(c, 1)
	b.unlockAndNotify(changed)
	return nil
}

// SetConditionSearchTerm records term at once and fetches suggestions for it
// once it has been stable for the debounce interval.
func (b *Builder) SetConditionSearchTerm(groupID, conditionID, term string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, c, _, err := b.findCondition(groupID, conditionID)
	if err != nil {
		return err
	}
	c.searchTerm = term
	b.stopLookup(c)
	if c.key == "" || b.closed {
		return nil
	}

	seq := c.seq
	b.wg.Add(1)
	c.timer = b.sched.AfterFunc(b.debounce, func() {
		defer b.wg.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if c.seq != seq || b.closed {
			return
		}
		c.timer = nil
		c.page = 1
		b.startLookup(c, 1)
	})
	return nil
}

func (b *Builder) SetConditionValues(groupID, conditionID string, values []string) error {
	b.mu.Lock()
	_, c, _, err := b.findCondition(groupID, conditionID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	before := c.effective()
	c.values = append([]string(nil), values...)
	b.unlockAndNotify(before || c.effective())
	return nil
}

// LoadMoreValues appends the next suggestion page while more are available.
func (b *Builder) LoadMoreValues(groupID, conditionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, c, _, err := b.findCondition(groupID, conditionID)
	if err != nil {
		return err
	}
	if !c.hasMore || c.isLoading || c.key == "" || b.closed {
		return nil
	}
	b.startLookup(c, c.page+1)
	return nil
}

func parseLogic(logic contact.Logic) (contact.Logic, error) {
	parsed, err := contact.ParseLogic(string(logic))
	if err != nil {
		return "", newError(KindValidation, err.Error(), err)
	}
	return parsed, nil
}

func (b *Builder) SetGroupLogic(groupID string, logic contact.Logic) error {
	parsed, err := parseLogic(logic)
	if err != nil {
		return err
	}
	b.mu.Lock()
	g, _ := b.findGroup(groupID)
	if g == nil {
		b.mu.Unlock()
		return errorf(KindNotFound, "filter group %s not found", groupID)
	}
	changed := g.logic != parsed
	g.logic = parsed
	b.unlockAndNotify(changed)
	return nil
}

func (b *Builder) SetInterGroupLogic(logic contact.Logic) error {
	parsed, err := parseLogic(logic)
	if err != nil {
		return err
	}
	b.mu.Lock()
	changed := b.logic != parsed
	b.logic = parsed
	b.unlockAndNotify(changed)
	return nil
}

// Filter returns the wire form of the current state.
func (b *Builder) Filter() contact.Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := contact.Filter{Logic: b.logic, Groups: make([]contact.Group, 0, len(b.groups))}
	for _, g := range b.groups {
		cg := contact.Group{Logic: g.logic, Conditions: make([]contact.Condition, 0, len(g.conditions))}
		for _, c := range g.conditions {
			cg.Conditions = append(cg.Conditions, contact.Condition{
				Key:    c.key,
				Values: append([]string(nil), c.values...),
			})
		}
		f.Groups = append(f.Groups, cg)
	}
	return f
}

// ResolveCriteria flattens every effective condition into "key:value"
// strings. Group structure and logic do not survive the flattening.
func (b *Builder) ResolveCriteria() []string {
	return contact.FormatCriteria(b.Filter().Criteria())
}

// LoadSavedCriteria replaces the state with a single AND group holding one
// condition per "key:value" entry. Values containing ':' survive because only
// the first colon splits, and keys may not contain one.
func (b *Builder) LoadSavedCriteria(criteria []string) error {
	parsed, err := contact.ParseCriteria(criteria)
	if err != nil {
		return newError(KindValidation, err.Error(), err)
	}
	for _, cr := range parsed {
		if err := contact.ValidateKey(cr.Key); err != nil {
			return newError(KindValidation, err.Error(), err)
		}
	}

	b.mu.Lock()
	changed := false
	for _, g := range b.groups {
		for _, c := range g.conditions {
			b.stopLookup(c)
			changed = changed || c.effective()
		}
	}
	b.groups = nil
	b.logic = contact.LogicAnd
	if len(parsed) > 0 {
		g := &group{id: uuid.NewString(), logic: contact.LogicAnd}
		for _, cr := range parsed {
			c := newCondition()
			c.key = cr.Key
			c.values = []string{cr.Value}
			g.conditions = append(g.conditions, c)
		}
		b.groups = []*group{g}
		changed = true
	}
	b.unlockAndNotify(changed)
	return nil
}

// PreviewEffect asks the server how many contacts criteria would match.
func (b *Builder) PreviewEffect(ctx context.Context, criteria []string) (string, error) {
	if _, err := contact.ParseCriteria(criteria); err != nil {
		return "", newError(KindValidation, err.Error(), err)
	}
	return b.api.Preview(ctx, criteria)
}

// LoadKeys lists the field keys a condition can filter on.
func (b *Builder) LoadKeys(ctx context.Context) ([]string, error) {
	return b.api.Fields(ctx)
}

func (b *Builder) Snapshot() FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := FilterState{Logic: b.logic, Groups: make([]Group, 0, len(b.groups))}
	for _, g := range b.groups {
		sg := Group{ID: g.id, Logic: g.logic, Conditions: make([]Condition, 0, len(g.conditions))}
		for _, c := range g.conditions {
			sg.Conditions = append(sg.Conditions, Condition{
				ID:         c.id,
				Key:        c.key,
				Values:     append([]string(nil), c.values...),
				SearchTerm: c.searchTerm,
				ValuesData: append([]string(nil), c.valuesData...),
				HasMore:    c.hasMore,
				IsLoading:  c.isLoading,
			})
		}
		state.Groups = append(state.Groups, sg)
	}
	return state
}

// stopLookup supersedes whatever lookup c has scheduled or in flight.
// b.mu must be held.
func (b *Builder) stopLookup(c *condition) {
	c.seq++
	if c.timer != nil {
		if c.timer.Stop() {
			b.wg.Done()
		}
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.isLoading = false
}

// startLookup fetches suggestion page for c's key and search term. Page 1
// replaces the suggestions, later pages append. b.mu must be held.
func (b *Builder) startLookup(c *condition, page int) {
	if b.closed {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(b.ctx)
	c.cancel = cancel
	c.isLoading = true
	key, term := c.key, c.searchTerm

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()

		result, err := b.api.FilterValues(ctx, key, term, page)

		b.mu.Lock()
		defer b.mu.Unlock()
		if c.seq != seq || b.closed {
			return
		}
		c.isLoading = false
		c.cancel = nil
		if err != nil {
			// Suggestions are optional; keep what is shown.
			logger.Debug("filter value lookup failed", "key", key, "term", term, "page", page, "error", err)
			return
		}
		if page == 1 {
			c.valuesData = append([]string(nil), result.Values...)
		} else {
			c.valuesData = append(c.valuesData, result.Values...)
		}
		c.hasMore = result.HasMore
		c.page = page
	}()
}

// Wait blocks until no lookup is scheduled or in flight.
func (b *Builder) Wait() {
	b.wg.Wait()
}

// Close cancels every scheduled and in-flight lookup and waits for them.
func (b *Builder) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, g := range b.groups {
		for _, c := range g.conditions {
			b.stopLookup(c)
		}
	}
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}
