package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned when a pattern cannot be compiled, e.g.
// it contains more than one wildcard.
var ErrInvalidPattern = errors.New("invalid tag pattern")

type patternKind int

const (
	matchAny patternKind = iota // "*": any key, tags must be non-empty
	matchExact
	matchPrefix
	matchSuffix
	matchPrefixSuffix
)

// Pattern matches tag keys, optionally constraining the value.
//
// Supported key forms: exact, "*", "prefix*", "*suffix" and
// "prefix*suffix". A "key~value" pattern additionally requires the
// matched key to carry exactly that value.
type Pattern struct {
	kind     patternKind
	exact    string
	prefix   string
	suffix   string
	value    string
	hasValue bool
}

// Expression is an OR-list of AND-groups of patterns. An element matches
// when at least one group matches; a group matches when every pattern in
// it matches at least one tag key.
type Expression [][]Pattern

// Parse compiles a filter string of the form
// "pat+pat,pat" where "," separates OR groups and "+" joins AND
// conditions within a group. An empty string yields an empty expression
// that matches everything.
func Parse(s string) (Expression, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var expr Expression
	for _, group := range strings.Split(s, ",") {
		var patterns []Pattern
		for _, token := range strings.Split(group, "+") {
			token = strings.TrimSpace(token)
			if token == "" {
				return nil, fmt.Errorf("%w: empty pattern in group %q", ErrInvalidPattern, group)
			}
			p, err := compile(token)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, p)
		}
		expr = append(expr, patterns)
	}
	return expr, nil
}

func compile(token string) (Pattern, error) {
	var p Pattern

	if key, value, found := strings.Cut(token, "~"); found {
		p.value = value
		p.hasValue = true
		token = key
	}

	switch strings.Count(token, "*") {
	case 0:
		p.kind = matchExact
		p.exact = token
	case 1:
		prefix, suffix, _ := strings.Cut(token, "*")
		switch {
		case prefix == "" && suffix == "":
			p.kind = matchAny
		case suffix == "":
			p.kind = matchPrefix
			p.prefix = prefix
		case prefix == "":
			p.kind = matchSuffix
			p.suffix = suffix
		default:
			p.kind = matchPrefixSuffix
			p.prefix = prefix
			p.suffix = suffix
		}
	default:
		return Pattern{}, fmt.Errorf("%w: %q has more than one wildcard", ErrInvalidPattern, token)
	}
	return p, nil
}

// Empty reports whether the expression matches unconditionally.
func (e Expression) Empty() bool { return len(e) == 0 }

// Match evaluates the expression against a tag mapping.
func (e Expression) Match(tags map[string]string) bool {
	if len(e) == 0 {
		return true
	}
	for _, group := range e {
		if matchGroup(group, tags) {
			return true
		}
	}
	return false
}

func matchGroup(group []Pattern, tags map[string]string) bool {
	for _, p := range group {
		if !p.match(tags) {
			return false
		}
	}
	return true
}

func (p Pattern) match(tags map[string]string) bool {
	switch p.kind {
	case matchAny:
		if len(tags) == 0 {
			return false
		}
		if !p.hasValue {
			return true
		}
		for _, v := range tags {
			if v == p.value {
				return true
			}
		}
		return false
	case matchExact:
		v, ok := tags[p.exact]
		if !ok {
			return false
		}
		return !p.hasValue || v == p.value
	default:
		for k, v := range tags {
			if !p.matchKey(k) {
				continue
			}
			if !p.hasValue || v == p.value {
				return true
			}
		}
		return false
	}
}

func (p Pattern) matchKey(key string) bool {
	switch p.kind {
	case matchPrefix:
		return strings.HasPrefix(key, p.prefix)
	case matchSuffix:
		return strings.HasSuffix(key, p.suffix)
	case matchPrefixSuffix:
		return len(key) >= len(p.prefix)+len(p.suffix) &&
			strings.HasPrefix(key, p.prefix) &&
			strings.HasSuffix(key, p.suffix)
	}
	return false
}
