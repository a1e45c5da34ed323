package contact

import (
	"fmt"
	"strings"
)

type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

func ParseLogic(s string) (Logic, error) {
	switch Logic(strings.ToUpper(strings.TrimSpace(s))) {
	case LogicAnd, "":
		return LogicAnd, nil
	case LogicOr:
		return LogicOr, nil
	}
	return "", fmt.Errorf("contact: unknown logic %q", s)
}

// Condition selects contacts whose Key field equals any of Values.
type Condition struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Effective reports whether the condition contributes to a filter at all.
func (c Condition) Effective() bool {
	if c.Key == "" {
		return false
	}
	for _, v := range c.Values {
		if v != "" {
			return true
		}
	}
	return false
}

type Group struct {
	Logic      Logic       `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// Filter is the wire form of a grouped boolean filter.
type Filter struct {
	Logic  Logic   `json:"logic"`
	Groups []Group `json:"groups"`
}

func (f Filter) Empty() bool {
	for _, g := range f.Groups {
		for _, c := range g.Conditions {
			if c.Effective() {
				return false
			}
		}
	}
	return true
}

// Criteria flattens every effective condition into key:value pairs, in group
// then condition then value order. Group structure and logic are not kept.
func (f Filter) Criteria() []Criterion {
	var out []Criterion
	for _, g := range f.Groups {
		for _, c := range g.Conditions {
			if !c.Effective() {
				continue
			}
			for _, v := range c.Values {
				if v == "" {
					continue
				}
				out = append(out, Criterion{Key: c.Key, Value: v})
			}
		}
	}
	return out
}

// Match evaluates f against c. Groups without effective conditions take no part.
func (f Filter) Match(c Contact) bool {
	participated := false
	result := f.Logic != LogicOr

	for _, g := range f.Groups {
		matched, ok := g.match(c)
		if !ok {
			continue
		}
		participated = true
		if f.Logic == LogicOr {
			result = result || matched
		} else {
			result = result && matched
		}
	}
	if !participated {
		return true
	}
	return result
}

func (g Group) match(c Contact) (matched bool, ok bool) {
	result := g.Logic != LogicOr
	for _, cond := range g.Conditions {
		if !cond.Effective() {
			continue
		}
		ok = true
		m := fieldMatches(c, cond.Key, cond.Values)
		if g.Logic == LogicOr {
			result = result || m
		} else {
			result = result && m
		}
	}
	return result, ok
}
