package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Query parameters that configure a listing rather than constrain a facet.
const (
	ParamQuery    = "q"
	ParamSort     = "sort"
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

var reservedParams = map[string]struct{}{
	ParamQuery:    {},
	ParamSort:     {},
	ParamPage:     {},
	ParamPageSize: {},
}

// ParseFacetParams turns URL query parameters into a FilterSpec for kind.
//
// Categorical facets take a comma separated value list (country=Germany,France). Numeric facets take
// <facet>_min and <facet>_max bounds, or a bare <facet>=<n> for a single value. Any other parameter
// is rejected with ErrUnknownFacet.
func ParseFacetParams(kind Kind, params map[string]string) (FilterSpec, error) {
	descriptor, err := Describe(kind)
	if err != nil {
		return nil, err
	}

	types := make(map[string]FacetType, len(descriptor.Facets))
	for _, facet := range descriptor.Facets {
		types[facet.Name] = facet.Type
	}

	spec := FilterSpec{}
	for rawKey, rawValue := range params {
		key := strings.ToLower(strings.TrimSpace(rawKey))
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		value := strings.TrimSpace(rawValue)

		if base, bound, ok := splitBound(key); ok && types[base] == FacetNumeric {
			if value == "" {
				continue
			}
			number, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be numeric", ErrInvalidConstraint, key)
			}
			constraint := spec[base]
			if bound == "min" {
				constraint.Min = &number
			} else {
				constraint.Max = &number
			}
			spec[base] = constraint
			continue
		}

		facetType, known := types[key]
		if !known {
			return nil, fmt.Errorf("%w: %s has no facet %q", ErrUnknownFacet, kind, rawKey)
		}

		switch facetType {
		case FacetCategorical:
			if values := compact(strings.Split(value, ",")); len(values) > 0 {
				spec[key] = OneOf(values...)
			}
		case FacetNumeric:
			if value == "" {
				continue
			}
			number, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be numeric", ErrInvalidConstraint, key)
			}
			spec[key] = Between(number, number)
		}
	}
	return spec, nil
}

func splitBound(key string) (string, string, bool) {
	switch {
	case strings.HasSuffix(key, "_min"):
		return strings.TrimSuffix(key, "_min"), "min", true
	case strings.HasSuffix(key, "_max"):
		return strings.TrimSuffix(key, "_max"), "max", true
	default:
		return "", "", false
	}
}
