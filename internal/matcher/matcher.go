// Package matcher matches field names against glob or regex patterns. It
// backs the ignore lists of the diff engine, where one pattern may name a
// key ("allow_*") or a kind-qualified key ("repository.allow_*").
package matcher

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses regular expressions, anchored at both ends.
	Regex
	// Literal compares strings for equality.
	Literal
	// Auto detects the pattern type.
	Auto
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Literal:
		return "literal"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Matcher matches one pattern.
type Matcher struct {
	pattern     string
	patternType PatternType
	compiled    *regexp.Regexp
}

// New compiles pattern. Auto picks Literal for plain names, Glob for
// patterns with glob metacharacters and Regex otherwise.
func New(patternType PatternType, pattern string) (*Matcher, error) {
	if patternType == Auto {
		patternType = detectPatternType(pattern)
	}
	m := &Matcher{pattern: pattern, patternType: patternType}

	switch patternType {
	case Glob:
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	case Regex:
		p := pattern
		if !strings.HasPrefix(p, "^") {
			p = "^" + p
		}
		if !strings.HasSuffix(p, "$") {
			p += "$"
		}
		compiled, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		m.compiled = compiled
	case Literal:
	default:
		return nil, fmt.Errorf("unsupported pattern type: %v", patternType)
	}
	return m, nil
}

// Match checks if the input matches the pattern.
func (m *Matcher) Match(input string) bool {
	switch m.patternType {
	case Glob:
		ok, _ := path.Match(m.pattern, input)
		return ok
	case Regex:
		return m.compiled.MatchString(input)
	default:
		return m.pattern == input
	}
}

// Pattern returns the original pattern string.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Type returns the pattern type being used.
func (m *Matcher) Type() PatternType {
	return m.patternType
}

// detectPatternType guesses the pattern type from its metacharacters.
func detectPatternType(pattern string) PatternType {
	if strings.ContainsAny(pattern, "^$+|(){}\\") {
		return Regex
	}
	if IsGlobPattern(pattern) {
		return Glob
	}
	return Literal
}

// IsGlobPattern checks if a string contains glob metacharacters.
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]")
}

// Set matches any of several patterns. The zero value matches nothing.
type Set struct {
	literals map[string]bool
	matchers []*Matcher
}

// NewSet compiles patterns with automatic type detection.
func NewSet(patterns ...string) (*Set, error) {
	s := &Set{}
	for _, p := range patterns {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add compiles and adds one pattern.
func (s *Set) Add(pattern string) error {
	m, err := New(Auto, pattern)
	if err != nil {
		return err
	}
	if m.Type() == Literal {
		s.AddLiteral(pattern)
		return nil
	}
	s.matchers = append(s.matchers, m)
	return nil
}

// AddLiteral adds a name matched by equality only.
func (s *Set) AddLiteral(name string) {
	if s.literals == nil {
		s.literals = make(map[string]bool)
	}
	s.literals[name] = true
}

// Match returns true if any pattern matches one of the inputs.
func (s *Set) Match(inputs ...string) bool {
	for _, input := range inputs {
		if s.literals[input] {
			return true
		}
		for _, m := range s.matchers {
			if m.Match(input) {
				return true
			}
		}
	}
	return false
}

// Len returns the number of patterns.
func (s *Set) Len() int {
	return len(s.literals) + len(s.matchers)
}
