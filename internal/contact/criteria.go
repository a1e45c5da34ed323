package contact

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedCriterion = errors.New("contact: criterion must have the form key:value")
	ErrInvalidKey         = errors.New("contact: invalid field key")
)

// Criterion is one key/value pair of a flat search criteria list.
type Criterion struct {
	Key   string
	Value string
}

func (c Criterion) String() string {
	return c.Key + ":" + c.Value
}

// ValidateKey rejects keys that cannot travel in the "key:value" format.
// Splitting at the first colon is lossless only while keys contain none.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if strings.Contains(key, ":") {
		return fmt.Errorf("%w: %q contains ':'", ErrInvalidKey, key)
	}
	return nil
}

// ParseCriterion splits s at the first colon. Everything after it, colons
// included, is the value.
func ParseCriterion(s string) (Criterion, error) {
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return Criterion{}, fmt.Errorf("%w: %q", ErrMalformedCriterion, s)
	}
	return Criterion{Key: s[:idx], Value: s[idx+1:]}, nil
}

func ParseCriteria(list []string) ([]Criterion, error) {
	out := make([]Criterion, 0, len(list))
	for _, s := range list {
		c, err := ParseCriterion(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func FormatCriteria(list []Criterion) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.String())
	}
	return out
}

// MatchCriteria applies flat criteria to c: values sharing a key are OR-ed and
// distinct keys are AND-ed. No criteria matches everything.
func MatchCriteria(c Contact, criteria []Criterion) bool {
	byKey := make(map[string][]string)
	var order []string
	for _, cr := range criteria {
		if _, ok := byKey[cr.Key]; !ok {
			order = append(order, cr.Key)
		}
		byKey[cr.Key] = append(byKey[cr.Key], cr.Value)
	}
	for _, key := range order {
		if !fieldMatches(c, key, byKey[key]) {
			return false
		}
	}
	return true
}

func fieldMatches(c Contact, key string, values []string) bool {
	text, ok := c.FieldText(key)
	if !ok {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(text, v) {
			return true
		}
	}
	return false
}
