package problem

import (
	"context"
	"net/http"
	"reflect"
)

// Rule maps errors matched by a predicate to a status. Rules are consulted in
// registration order when no layer of the causal chain resolves through its
// category.
type Rule struct {
	Name   string
	Match  func(error) bool
	Status int
	// Title, when set, replaces the message-derived title.
	Title string
}

// Registry resolves categories to statuses. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	statuses map[string]int
	parents  map[string]string
	rules    []Rule
}

// RegistryOption configures a Registry under construction.
type RegistryOption func(*Registry)

// WithStatus maps category to status.
func WithStatus(category string, status int) RegistryOption {
	return func(r *Registry) {
		r.statuses[category] = status
	}
}

// WithParent declares parent as the supertype of child.
func WithParent(child, parent string) RegistryOption {
	return func(r *Registry) {
		r.parents[child] = parent
	}
}

// WithRule appends a predicate rule.
func WithRule(rule Rule) RegistryOption {
	return func(r *Registry) {
		if rule.Match != nil {
			r.rules = append(r.rules, rule)
		}
	}
}

// NewRegistry builds a registry from opts.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		statuses: make(map[string]int),
		parents:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultRegistry returns the built-in mappings followed by extra.
func DefaultRegistry(extra ...RegistryOption) *Registry {
	opts := []RegistryOption{
		WithParent(CategoryArgumentOutOfRange, CategoryArgument),
		WithStatus(CategoryNotFound, http.StatusNotFound),
		WithStatus(CategoryUnauthorized, http.StatusForbidden),
		WithStatus(CategoryNotImplemented, http.StatusNotImplemented),
		WithStatus(CategoryTimeout, http.StatusGatewayTimeout),
		WithRule(Rule{
			Name:   "deadline_exceeded",
			Match:  Is(context.DeadlineExceeded),
			Status: http.StatusGatewayTimeout,
		}),
	}
	return NewRegistry(append(opts, extra...)...)
}

// Lookup resolves category to a status, trying the exact category first and
// then its ancestors nearest first.
func (r *Registry) Lookup(category string) (status int, ok bool) {
	if r == nil || category == "" {
		return 0, false
	}
	for _, c := range append([]string{category}, r.Ancestors(category)...) {
		if s, found := r.statuses[c]; found {
			return s, true
		}
	}
	return 0, false
}

// Ancestors returns the declared supertypes of category, nearest first. The
// walk is bounded by the number of declared parents so a cyclic declaration
// terminates.
func (r *Registry) Ancestors(category string) []string {
	if r == nil {
		return nil
	}
	var out []string
	for i := 0; i < len(r.parents); i++ {
		parent, ok := r.parents[category]
		if !ok || parent == "" {
			break
		}
		out = append(out, parent)
		category = parent
	}
	return out
}

func (r *Registry) matchRule(err error) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	for _, rule := range r.rules {
		if rule.Match(err) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Is returns a predicate matching err itself against target without walking
// its chain; the classifier walks the chain with its own bound.
func Is(target error) func(error) bool {
	return func(err error) bool {
		if x, ok := err.(interface{ Is(error) bool }); ok && x.Is(target) {
			return true
		}
		if err == nil || target == nil {
			return err == target
		}
		if !reflect.TypeOf(err).Comparable() {
			return false
		}
		return err == target
	}
}
