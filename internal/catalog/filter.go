package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownKind indicates the requested collection does not exist.
	ErrUnknownKind = errors.New("unknown catalog kind")
	// ErrUnknownFacet indicates a filter references a facet the kind does not define.
	ErrUnknownFacet = errors.New("unknown facet")
	// ErrUnknownSort indicates the sort key is not supported by the kind.
	ErrUnknownSort = errors.New("unsupported sort key")
	// ErrInvalidConstraint indicates a constraint does not fit its facet (e.g. a range on a categorical facet).
	ErrInvalidConstraint = errors.New("invalid facet constraint")
)

// FacetType distinguishes set-membership facets from numeric range facets.
type FacetType string

const (
	FacetCategorical FacetType = "categorical"
	FacetNumeric     FacetType = "numeric"
)

// Constraint is the accepted-values set or numeric range for one facet.
// A zero Constraint places no restriction on the collection.
type Constraint struct {
	Values []string `json:"values,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// OneOf accepts entities whose facet value equals any of values.
func OneOf(values ...string) Constraint {
	return Constraint{Values: values}
}

// Equals accepts entities whose facet value equals value.
func Equals(value string) Constraint {
	return Constraint{Values: []string{value}}
}

// Between is an inclusive numeric range.
func Between(min, max float64) Constraint {
	return Constraint{Min: &min, Max: &max}
}

// AtLeast constrains only the lower bound.
func AtLeast(min float64) Constraint {
	return Constraint{Min: &min}
}

// AtMost constrains only the upper bound.
func AtMost(max float64) Constraint {
	return Constraint{Max: &max}
}

// IsEmpty reports whether the constraint is the identity filter.
func (c Constraint) IsEmpty() bool {
	return len(compact(c.Values)) == 0 && c.Min == nil && c.Max == nil
}

// FilterSpec maps facet names to constraints. Facets are ANDed together, values within a facet are ORed.
type FilterSpec map[string]Constraint

// Clone returns an independent copy of the spec.
func (f FilterSpec) Clone() FilterSpec {
	out := make(FilterSpec, len(f))
	for name, constraint := range f {
		c := Constraint{Values: slices.Clone(constraint.Values)}
		if constraint.Min != nil {
			v := *constraint.Min
			c.Min = &v
		}
		if constraint.Max != nil {
			v := *constraint.Max
			c.Max = &v
		}
		out[name] = c
	}
	return out
}

// Facet extracts one filter dimension from an entity of type T.
type Facet[T any] struct {
	Name string
	Type FacetType
	// Values returns the categorical values of the entity. An empty result means the field is missing.
	Values func(T) []string
	// Bounds returns the numeric span of the entity; single-valued fields return lo == hi.
	Bounds func(T) (lo, hi float64, ok bool)
}

// SortKey orders entities by a numeric or textual attribute. Missing values always sort last.
type SortKey[T any] struct {
	Number func(T) (float64, bool)
	Text   func(T) string
}

// KindConfig parameterises the engine for one entity kind.
type KindConfig[T Entity] struct {
	Kind         Kind
	SearchFields func(T) []string
	Facets       []Facet[T]
	Sorts        map[string]SortKey[T]
}

// FacetNames lists facet names in definition order.
func (c KindConfig[T]) FacetNames() []string {
	names := make([]string, 0, len(c.Facets))
	for _, facet := range c.Facets {
		names = append(names, facet.Name)
	}
	return names
}

// FacetType returns the type of the named facet.
func (c KindConfig[T]) FacetType(name string) (FacetType, bool) {
	facet, ok := c.facet(name)
	if !ok {
		return "", false
	}
	return facet.Type, true
}

// SortNames lists the supported sort keys in lexical order.
func (c KindConfig[T]) SortNames() []string {
	names := make([]string, 0, len(c.Sorts))
	for name := range c.Sorts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c KindConfig[T]) facet(name string) (Facet[T], bool) {
	for _, facet := range c.Facets {
		if facet.Name == name {
			return facet, true
		}
	}
	return Facet[T]{}, false
}

// Validate checks facet names, constraint shapes and the sort key without touching any collection.
func (c KindConfig[T]) Validate(spec FilterSpec, sortKey string) error {
	for name, constraint := range spec {
		facet, ok := c.facet(name)
		if !ok {
			return fmt.Errorf("%w: %s has no facet %q", ErrUnknownFacet, c.Kind, name)
		}
		if constraint.IsEmpty() {
			continue
		}
		switch facet.Type {
		case FacetCategorical:
			if constraint.Min != nil || constraint.Max != nil {
				return fmt.Errorf("%w: %q accepts values, not a range", ErrInvalidConstraint, name)
			}
		case FacetNumeric:
			if len(compact(constraint.Values)) > 0 {
				return fmt.Errorf("%w: %q accepts a range, not values", ErrInvalidConstraint, name)
			}
			if constraint.Min != nil && constraint.Max != nil && *constraint.Min > *constraint.Max {
				return fmt.Errorf("%w: %q min exceeds max", ErrInvalidConstraint, name)
			}
		}
	}

	if _, _, err := c.sortKey(sortKey); err != nil {
		return err
	}
	return nil
}

func (c KindConfig[T]) sortKey(raw string) (SortKey[T], bool, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return SortKey[T]{}, false, nil
	}
	descending := strings.HasPrefix(name, "-")
	name = strings.TrimPrefix(name, "-")
	key, ok := c.Sorts[name]
	if !ok {
		return SortKey[T]{}, false, fmt.Errorf("%w: %s cannot sort by %q", ErrUnknownSort, c.Kind, raw)
	}
	return key, descending, nil
}

// Apply filters and orders items. It is a pure function: items is never modified and the same inputs
// always produce the same output. An empty sortKey keeps collection order.
func Apply[T Entity](cfg KindConfig[T], items []T, query string, spec FilterSpec, sortKey string) ([]T, error) {
	if err := cfg.Validate(spec, sortKey); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))

	type activeFacet struct {
		facet      Facet[T]
		constraint Constraint
	}
	active := make([]activeFacet, 0, len(spec))
	for _, facet := range cfg.Facets {
		constraint, ok := spec[facet.Name]
		if !ok || constraint.IsEmpty() {
			continue
		}
		active = append(active, activeFacet{facet: facet, constraint: constraint})
	}

	result := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesQuery(cfg.SearchFields(item), needle) {
			continue
		}
		matched := true
		for _, a := range active {
			if !satisfies(a.facet, a.constraint, item) {
				matched = false
				break
			}
		}
		if matched {
			result = append(result, item)
		}
	}

	key, descending, _ := cfg.sortKey(sortKey)
	if key.Number != nil || key.Text != nil {
		slices.SortStableFunc(result, func(a, b T) int {
			return compareBy(key, a, b, descending)
		})
	}

	return result, nil
}

func matchesQuery(fields []string, needle string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func satisfies[T any](facet Facet[T], constraint Constraint, item T) bool {
	switch facet.Type {
	case FacetCategorical:
		accepted := compact(constraint.Values)
		for _, value := range compact(facet.Values(item)) {
			for _, want := range accepted {
				if strings.EqualFold(value, want) {
					return true
				}
			}
		}
		return false
	case FacetNumeric:
		lo, hi, ok := facet.Bounds(item)
		if !ok {
			return false
		}
		if constraint.Min != nil && hi < *constraint.Min {
			return false
		}
		if constraint.Max != nil && lo > *constraint.Max {
			return false
		}
		return true
	default:
		return false
	}
}

func compareBy[T any](key SortKey[T], a, b T, descending bool) int {
	if key.Number != nil {
		va, okA := key.Number(a)
		vb, okB := key.Number(b)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		return direction(cmp.Compare(va, vb), descending)
	}

	ta := strings.ToLower(strings.TrimSpace(key.Text(a)))
	tb := strings.ToLower(strings.TrimSpace(key.Text(b)))
	switch {
	case ta == "" && tb == "":
		return 0
	case ta == "":
		return 1
	case tb == "":
		return -1
	}
	return direction(strings.Compare(ta, tb), descending)
}

func direction(result int, descending bool) int {
	if descending {
		return -result
	}
	return result
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
