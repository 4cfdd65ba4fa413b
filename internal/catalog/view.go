package catalog

import (
	"fmt"
	"strings"
)

// View is the browsing state for one catalog kind: free-text query, facet constraints and sort key.
type View struct {
	Kind   Kind
	Query  string
	Facets FilterSpec
	Sort   string
}

// NewView returns an unfiltered view of kind.
func NewView(kind Kind) *View {
	return &View{Kind: kind, Facets: FilterSpec{}}
}

// SetQuery replaces the free-text query.
func (v *View) SetQuery(text string) {
	v.Query = text
}

// SetFacet sets or, with an empty constraint, clears one facet.
func (v *View) SetFacet(name string, constraint Constraint) {
	if v.Facets == nil {
		v.Facets = FilterSpec{}
	}
	if constraint.IsEmpty() {
		delete(v.Facets, name)
		return
	}
	v.Facets[name] = constraint
}

// ClearFacets removes every facet constraint; the query is kept.
func (v *View) ClearFacets() {
	v.Facets = FilterSpec{}
}

// SetSort replaces the sort key. A leading "-" sorts descending.
func (v *View) SetSort(key string) {
	v.Sort = strings.TrimSpace(key)
}

// Reset clears the query, facets and sort, returning the view to the unfiltered collection.
func (v *View) Reset() {
	v.Query = ""
	v.Sort = ""
	v.ClearFacets()
}

// FacetDescriptor documents one facet for clients building filter panels.
type FacetDescriptor struct {
	Name string    `json:"name"`
	Type FacetType `json:"type"`
}

// Descriptor lists the facets and sort keys a kind supports.
type Descriptor struct {
	Kind   Kind              `json:"kind"`
	Facets []FacetDescriptor `json:"facets"`
	Sorts  []string          `json:"sorts"`
}

// Describe returns the facet and sort vocabulary for kind.
func Describe(kind Kind) (Descriptor, error) {
	switch kind {
	case KindInstitution:
		return describe(InstitutionConfig), nil
	case KindProgram:
		return describe(ProgramConfig), nil
	case KindPosting:
		return describe(PostingConfig), nil
	default:
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func describe[T Entity](cfg KindConfig[T]) Descriptor {
	facets := make([]FacetDescriptor, 0, len(cfg.Facets))
	for _, facet := range cfg.Facets {
		facets = append(facets, FacetDescriptor{Name: facet.Name, Type: facet.Type})
	}
	return Descriptor{Kind: cfg.Kind, Facets: facets, Sorts: cfg.SortNames()}
}

// FilteredView runs the filter engine over the current collection of the view's kind.
// The collection is re-filtered on every call; a replaced collection is picked up immediately.
func (s *Store) FilteredView(view View) ([]Entity, error) {
	switch view.Kind {
	case KindInstitution:
		return filterEntities(InstitutionConfig, s.Institutions(), view)
	case KindProgram:
		return filterEntities(ProgramConfig, s.Programs(), view)
	case KindPosting:
		return filterEntities(PostingConfig, s.Postings(), view)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, view.Kind)
	}
}

func filterEntities[T Entity](cfg KindConfig[T], items []T, view View) ([]Entity, error) {
	filtered, err := Apply(cfg, items, view.Query, view.Facets, view.Sort)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(filtered))
	for _, item := range filtered {
		out = append(out, item)
	}
	return out, nil
}
