package policies

import (
	"fmt"
	"regexp"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// PatternSet is an ordered list of compiled regular expressions. Matching is
// unanchored: a pattern matches if it occurs anywhere in the subject.
type PatternSet struct {
	sources  []string
	compiled []*regexp.Regexp
}

func CompilePatterns(patterns []string) (PatternSet, error) {
	set := PatternSet{
		sources:  make([]string, 0, len(patterns)),
		compiled: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return PatternSet{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid pattern %q", pattern)).
				WithCause(err)
		}
		set.sources = append(set.sources, pattern)
		set.compiled = append(set.compiled, re)
	}
	return set, nil
}

// Matches is false for an empty set.
func (s PatternSet) Matches(subject string) bool {
	for _, re := range s.compiled {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}

func (s PatternSet) Empty() bool {
	return len(s.compiled) == 0
}

func (s PatternSet) Patterns() []string {
	return append([]string(nil), s.sources...)
}

// resolveExclusion applies an exclude list and then lets the include list
// re-admit the same subject.
func resolveExclusion(exclude PatternSet, include PatternSet, subject string) bool {
	skip := false
	if !exclude.Empty() && exclude.Matches(subject) {
		skip = true
	}
	if skip && !include.Empty() && include.Matches(subject) {
		skip = false
	}
	return skip
}
