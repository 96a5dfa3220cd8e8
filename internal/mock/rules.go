// Package mock implements the three simulated pipeline stages. Each stage is
// an ordered list of keyword rules evaluated first-match-wins, wrapped in a
// randomized delay.
package mock

import (
	"errors"
	"strings"
)

// ErrNoRule is returned by Classify when no rule matches. Every rule set in
// this package ends with a catch-all, so callers only see it for custom sets.
var ErrNoRule = errors.New("mock: no rule matched")

// Rule pairs a predicate over the lower-cased input with the handler that
// produces the stage output from the original input.
type Rule[T any] struct {
	Name  string
	Match func(lower string) bool
	Apply func(text string) (T, error)
}

// Classify evaluates rules in order and applies the first that matches. It
// returns the output and the name of the rule that produced it.
func Classify[T any](rules []Rule[T], text string) (T, string, error) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.Match(lower) {
			out, err := r.Apply(text)
			return out, r.Name, err
		}
	}
	var zero T
	return zero, "", ErrNoRule
}

// ContainsAny matches when the input contains any of the keywords. Keywords
// must be lower case.
func ContainsAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(match func(string) bool) func(string) bool {
	return func(lower string) bool { return !match(lower) }
}

// And matches when every predicate matches.
func And(matches ...func(string) bool) func(string) bool {
	return func(lower string) bool {
		for _, m := range matches {
			if !m(lower) {
				return false
			}
		}
		return true
	}
}

// Always matches every input.
func Always(string) bool { return true }

// constant returns a handler that ignores its input.
func constant[T any](v T) func(string) (T, error) {
	return func(string) (T, error) { return v, nil }
}
