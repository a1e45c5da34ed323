package governance

import (
	"contacts-backend/internal/contact"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestBuilder(t *testing.T, api *fakeAPI) (*Builder, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	b := NewBuilder(api, sched)
	t.Cleanup(b.Close)
	return b, sched
}

// firstCondition adds a group and returns it with its blank condition.
func firstCondition(b *Builder) (string, string) {
	groupID := b.AddGroup()
	for _, g := range b.Snapshot().Groups {
		if g.ID == groupID {
			return groupID, g.Conditions[0].ID
		}
	}
	return groupID, ""
}

func conditionState(t *testing.T, b *Builder, conditionID string) Condition {
	t.Helper()
	for _, g := range b.Snapshot().Groups {
		for _, c := range g.Conditions {
			if c.ID == conditionID {
				return c
			}
		}
	}
	t.Fatalf("condition %s not found", conditionID)
	return Condition{}
}

func TestResolveCriteriaFlattensEffectiveConditions(t *testing.T) {
	b, _ := newTestBuilder(t, newFakeAPI())
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "country"))
	require.NoError(t, b.SetConditionValues(g, c, []string{"US"}))
	_, _ = b.AddCondition(g)
	b.Wait()

	assert.Equal(t, []string{"country:US"}, b.ResolveCriteria())
}

func TestCriteriaRoundTrip(t *testing.T) {
	b, _ := newTestBuilder(t, newFakeAPI())

	g1, c1 := firstCondition(b)
	require.NoError(t, b.SetConditionKey(g1, c1, "country"))
	require.NoError(t, b.SetConditionValues(g1, c1, []string{"US", "CA"}))
	c2, err := b.AddCondition(g1)
	require.NoError(t, err)
	require.NoError(t, b.SetConditionKey(g1, c2, "meeting"))
	require.NoError(t, b.SetConditionValues(g1, c2, []string{"12:30"}))

	g2, c3 := firstCondition(b)
	require.NoError(t, b.SetGroupLogic(g2, contact.LogicOr))
	require.NoError(t, b.SetConditionKey(g2, c3, "name"))
	require.NoError(t, b.SetConditionValues(g2, c3, []string{"Ann"}))
	b.Wait()

	criteria := b.ResolveCriteria()
	require.ElementsMatch(t, []string{"country:US", "country:CA", "meeting:12:30", "name:Ann"}, criteria)

	loaded, _ := newTestBuilder(t, newFakeAPI())
	require.NoError(t, loaded.LoadSavedCriteria(criteria))

	state := loaded.Snapshot()
	require.Len(t, state.Groups, 1)
	assert.Equal(t, contact.LogicAnd, state.Groups[0].Logic)
	assert.Len(t, state.Groups[0].Conditions, 4)
	assert.ElementsMatch(t, criteria, loaded.ResolveCriteria())
}

func TestLoadSavedCriteriaRejectsMalformedEntries(t *testing.T) {
	b, _ := newTestBuilder(t, newFakeAPI())

	err := b.LoadSavedCriteria([]string{"country:US", "missing-separator"})
	assert.True(t, IsKind(err, KindValidation))
	assert.Empty(t, b.Snapshot().Groups)
}

func TestSetConditionKeyRejectsColon(t *testing.T) {
	api := newFakeAPI()
	b, _ := newTestBuilder(t, api)
	g, c := firstCondition(b)

	err := b.SetConditionKey(g, c, "a:b")
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, api.count("FilterValues"))
}

func TestSetConditionKeyFetchesImmediately(t *testing.T) {
	api := newFakeAPI()
	api.values["country"] = []string{"US", "UK", "CA"}
	b, sched := newTestBuilder(t, api)
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "country"))
	b.Wait()

	state := conditionState(t, b, c)
	assert.Equal(t, []string{"US", "UK"}, state.ValuesData)
	assert.True(t, state.HasMore)
	assert.False(t, state.IsLoading)
	assert.Empty(t, sched.delays())
}

func TestSearchTermIsDebounced(t *testing.T) {
	api := newFakeAPI()
	api.values["city"] = []string{"abc", "abd", "xyz"}
	b, sched := newTestBuilder(t, api)
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "city"))
	b.Wait()

	for _, term := range []string{"a", "ab", "abc"} {
		require.NoError(t, b.SetConditionSearchTerm(g, c, term))
	}
	assert.Equal(t, "abc", conditionState(t, b, c).SearchTerm)
	assert.Equal(t, []string{""}, api.searchTerms())

	assert.Equal(t, 1, sched.Fire())
	b.Wait()

	assert.Equal(t, []string{"", "abc"}, api.searchTerms())
	assert.Equal(t, []string{"abc"}, conditionState(t, b, c).ValuesData)
	for _, d := range sched.delays() {
		assert.Equal(t, SuggestionDebounce, d)
	}
}

func TestOnlyLatestLookupIsApplied(t *testing.T) {
	release := make(chan struct{})
	api := newFakeAPI()
	api.valuesFn = func(ctx context.Context, key, term string, page int) (ValuePage, error) {
		if term == "ny" {
			// Answers late and ignores cancellation.
			<-release
			return ValuePage{Values: []string{"Nyack"}}, nil
		}
		if term == "nyc" {
			return ValuePage{Values: []string{"NYC"}}, nil
		}
		return ValuePage{}, nil
	}
	b, sched := newTestBuilder(t, api)
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "city"))
	b.Wait()

	require.NoError(t, b.SetConditionSearchTerm(g, c, "ny"))
	require.Equal(t, 1, sched.Fire())
	require.Eventually(t, func() bool {
		return len(api.searchTerms()) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.SetConditionSearchTerm(g, c, "nyc"))
	require.Equal(t, 1, sched.Fire())
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"NYC"}, conditionState(t, b, c).ValuesData)
	}, time.Second, 5*time.Millisecond)

	close(release)
	b.Wait()

	state := conditionState(t, b, c)
	assert.Equal(t, []string{"NYC"}, state.ValuesData)
	assert.False(t, state.IsLoading)
}

func TestFailedLookupKeepsPreviousSuggestions(t *testing.T) {
	api := newFakeAPI()
	api.valuesFn = func(ctx context.Context, key, term string, page int) (ValuePage, error) {
		if term == "" {
			return ValuePage{Values: []string{"US"}}, nil
		}
		return ValuePage{}, errors.New("connection reset")
	}
	b, sched := newTestBuilder(t, api)
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "country"))
	b.Wait()
	require.NoError(t, b.SetConditionSearchTerm(g, c, "x"))
	sched.Fire()
	b.Wait()

	state := conditionState(t, b, c)
	assert.Equal(t, []string{"US"}, state.ValuesData)
	assert.False(t, state.IsLoading)
}

func TestLoadMoreValuesAppends(t *testing.T) {
	api := newFakeAPI()
	api.values["country"] = []string{"US", "UK", "CA"}
	b, _ := newTestBuilder(t, api)
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "country"))
	b.Wait()
	require.NoError(t, b.LoadMoreValues(g, c))
	b.Wait()

	state := conditionState(t, b, c)
	assert.Equal(t, []string{"US", "UK", "CA"}, state.ValuesData)
	assert.False(t, state.HasMore)

	require.NoError(t, b.LoadMoreValues(g, c))
	b.Wait()
	assert.Equal(t, 2, api.count("FilterValues"))
}

func TestOnChangeFiresOnlyWhenResolvedFilterChanges(t *testing.T) {
	b, _ := newTestBuilder(t, newFakeAPI())
	changes := 0
	b.OnChange(func() { changes++ })

	g, c := firstCondition(b)
	_, err := b.AddCondition(g)
	require.NoError(t, err)
	assert.Zero(t, changes)

	require.NoError(t, b.SetConditionKey(g, c, "country"))
	assert.Zero(t, changes)

	require.NoError(t, b.SetConditionValues(g, c, []string{"US"}))
	assert.Equal(t, 1, changes)

	require.NoError(t, b.SetInterGroupLogic(contact.LogicOr))
	assert.Equal(t, 2, changes)

	require.NoError(t, b.RemoveGroup(g))
	assert.Equal(t, 3, changes)
	b.Wait()
}

func TestUnknownIdentifiers(t *testing.T) {
	b, _ := newTestBuilder(t, newFakeAPI())

	assert.True(t, IsKind(b.RemoveGroup("nope"), KindNotFound))
	_, err := b.AddCondition("nope")
	assert.True(t, IsKind(err, KindNotFound))
	g, _ := firstCondition(b)
	assert.True(t, IsKind(b.SetConditionValues(g, "nope", nil), KindNotFound))
	assert.True(t, IsKind(b.SetGroupLogic(g, "XOR"), KindValidation))
}

func TestPreviewEffect(t *testing.T) {
	api := newFakeAPI()
	b, _ := newTestBuilder(t, api)

	msg, err := b.PreviewEffect(context.Background(), []string{"country:US"})
	require.NoError(t, err)
	assert.Equal(t, "1 contacts match the selected criteria", msg)

	_, err = b.PreviewEffect(context.Background(), []string{"bogus"})
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, 1, api.count("Preview"))
}

func TestCloseCancelsPendingLookups(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocked := make(chan struct{})
	api := newFakeAPI()
	api.valuesFn = func(ctx context.Context, key, term string, page int) (ValuePage, error) {
		if key == "country" {
			close(blocked)
			<-ctx.Done()
			return ValuePage{}, ctx.Err()
		}
		return ValuePage{Values: []string{term}}, nil
	}
	sched := &manualScheduler{}
	b := NewBuilder(api, sched)
	g, c := firstCondition(b)

	require.NoError(t, b.SetConditionKey(g, c, "city"))
	b.Wait()
	require.NoError(t, b.SetConditionSearchTerm(g, c, "late"))

	c2, err := b.AddCondition(g)
	require.NoError(t, err)
	require.NoError(t, b.SetConditionKey(g, c2, "country"))
	<-blocked

	b.Close()

	assert.Zero(t, sched.Fire())
	assert.Equal(t, []string{"", ""}, api.searchTerms())
}
