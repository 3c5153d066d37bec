package acceptance

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultPattern accepts any three-digit status starting with 2.
const DefaultPattern = `^2\d\d$`

// Evaluator holds a compiled acceptance pattern. It is immutable and safe
// for concurrent use.
type Evaluator struct {
	pattern string
	re      *regexp.Regexp
}

// New compiles pattern. The match is anchored at the start of the status
// string; the end is only anchored if the pattern says so. The pattern
// must compile on its own before it is wrapped.
func New(pattern string) (*Evaluator, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("compile acceptance pattern %q: %w", pattern, err)
	}

	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("compile acceptance pattern %q: %w", pattern, err)
	}

	return &Evaluator{pattern: pattern, re: re}, nil
}

// MustNew is like New but panics on a malformed pattern.
func MustNew(pattern string) *Evaluator {
	e, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return e
}

// Accepts reports whether status is considered healthy.
func (e *Evaluator) Accepts(status int) bool {
	return e.re.MatchString(strconv.Itoa(status))
}

func (e *Evaluator) String() string {
	return e.pattern
}
