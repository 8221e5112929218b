package matcher

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		patternType PatternType
		wantType    PatternType
		wantErr     bool
	}{
		{name: "valid glob pattern", pattern: "allow_*", patternType: Glob, wantType: Glob},
		{name: "valid regex pattern", pattern: "allow_.*", patternType: Regex, wantType: Regex},
		{name: "invalid regex pattern", pattern: "(unclosed", patternType: Regex, wantErr: true},
		{name: "invalid glob pattern", pattern: "[unclosed", patternType: Glob, wantErr: true},
		{name: "auto detect literal", pattern: "has_wiki", patternType: Auto, wantType: Literal},
		{name: "auto detect glob", pattern: "repository.has_*", patternType: Auto, wantType: Glob},
		{name: "auto detect regex", pattern: "^has_(wiki|issues)$", patternType: Auto, wantType: Regex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.patternType, tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if m.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", m.Type(), tt.wantType)
			}
			if m.Pattern() != tt.pattern {
				t.Errorf("Pattern() = %q, want %q", m.Pattern(), tt.pattern)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{pattern: "allow_*", input: "allow_merge_commit", want: true},
		{pattern: "allow_*", input: "repository.allow_merge_commit", want: false},
		{pattern: "repository.allow_*", input: "repository.allow_merge_commit", want: true},
		{pattern: "has_?iki", input: "has_wiki", want: true},
		{pattern: "has_(wiki|issues)", input: "has_issues", want: true},
		{pattern: "has_(wiki|issues)", input: "has_issues_extra", want: false},
		{pattern: "has_wiki", input: "has_wiki", want: true},
		{pattern: "has_wiki", input: "has_wikis", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			m, err := New(Auto, tt.pattern)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if got := m.Match(tt.input); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSet(t *testing.T) {
	s, err := NewSet("description", "repository.allow_*")
	if err != nil {
		t.Fatalf("NewSet() failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if !s.Match("description", "team.description") {
		t.Error("literal pattern did not match")
	}
	if !s.Match("allow_forking", "repository.allow_forking") {
		t.Error("qualified glob did not match")
	}
	if s.Match("allow_forking", "team.allow_forking") {
		t.Error("qualified glob matched another kind")
	}

	var zero Set
	if zero.Match("anything") {
		t.Error("zero Set matched")
	}

	if _, err := NewSet("[bad"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestPatternTypeString(t *testing.T) {
	for pt, want := range map[PatternType]string{Glob: "glob", Regex: "regex", Literal: "literal", Auto: "auto", PatternType(42): "unknown"} {
		if got := pt.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
