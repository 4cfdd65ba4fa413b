package catalog

import (
	"strconv"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// InstitutionConfig drives filtering of the university catalog.
var InstitutionConfig = KindConfig[models.Institution]{
	Kind: KindInstitution,
	SearchFields: func(i models.Institution) []string {
		return []string{i.Name, i.City, i.Country}
	},
	Facets: []Facet[models.Institution]{
		categorical("country", func(i models.Institution) []string { return []string{i.Country} }),
		categorical("city", func(i models.Institution) []string { return []string{i.City} }),
		categorical("type", func(i models.Institution) []string { return []string{i.Type} }),
		categorical("featured", func(i models.Institution) []string { return []string{strconv.FormatBool(i.Featured)} }),
		numeric("ranking", func(i models.Institution) (float64, float64, bool) { return intSpan(i.WorldRanking) }),
		numeric("tuition", func(i models.Institution) (float64, float64, bool) { return span(i.TuitionMin, i.TuitionMax) }),
	},
	Sorts: map[string]SortKey[models.Institution]{
		"ranking": {Number: func(i models.Institution) (float64, bool) { return intValue(i.WorldRanking) }},
		"tuition": {Number: func(i models.Institution) (float64, bool) {
			lo, _, ok := span(i.TuitionMin, i.TuitionMax)
			return lo, ok
		}},
		"name": {Text: func(i models.Institution) string { return i.Name }},
	},
}

// ProgramConfig drives filtering of the course catalog.
var ProgramConfig = KindConfig[models.Program]{
	Kind: KindProgram,
	SearchFields: func(p models.Program) []string {
		return []string{p.Name, p.Field, p.DegreeLevel}
	},
	Facets: []Facet[models.Program]{
		categorical("institution", func(p models.Program) []string { return []string{p.InstitutionID} }),
		categorical("degree", func(p models.Program) []string { return []string{p.DegreeLevel} }),
		categorical("field", func(p models.Program) []string { return []string{p.Field} }),
		categorical("mode", func(p models.Program) []string { return []string{p.Mode} }),
		categorical("language", func(p models.Program) []string { return []string{p.Language} }),
		categorical("featured", func(p models.Program) []string { return []string{strconv.FormatBool(p.Featured)} }),
		numeric("tuition", func(p models.Program) (float64, float64, bool) { return span(p.Tuition, nil) }),
		numeric("duration", func(p models.Program) (float64, float64, bool) { return intSpan(p.DurationMonths) }),
	},
	Sorts: map[string]SortKey[models.Program]{
		"tuition":  {Number: func(p models.Program) (float64, bool) { return floatValue(p.Tuition) }},
		"duration": {Number: func(p models.Program) (float64, bool) { return intValue(p.DurationMonths) }},
		"name":     {Text: func(p models.Program) string { return p.Name }},
	},
}

// PostingConfig drives filtering of the healthcare job board.
var PostingConfig = KindConfig[models.Posting]{
	Kind: KindPosting,
	SearchFields: func(p models.Posting) []string {
		return []string{p.Title, p.Employer, p.Category, p.City, p.Country}
	},
	Facets: []Facet[models.Posting]{
		categorical("category", func(p models.Posting) []string { return []string{p.Category} }),
		categorical("employment_type", func(p models.Posting) []string { return []string{p.EmploymentType} }),
		categorical("country", func(p models.Posting) []string { return []string{p.Country} }),
		categorical("city", func(p models.Posting) []string { return []string{p.City} }),
		categorical("featured", func(p models.Posting) []string { return []string{strconv.FormatBool(p.Featured)} }),
		numeric("salary", func(p models.Posting) (float64, float64, bool) { return span(p.SalaryMin, p.SalaryMax) }),
	},
	Sorts: map[string]SortKey[models.Posting]{
		"salary": {Number: func(p models.Posting) (float64, bool) {
			lo, _, ok := span(p.SalaryMin, p.SalaryMax)
			return lo, ok
		}},
		"posted": {Number: func(p models.Posting) (float64, bool) {
			if p.PostedAt == nil {
				return 0, false
			}
			return float64(p.PostedAt.Unix()), true
		}},
		"title": {Text: func(p models.Posting) string { return p.Title }},
	},
}

func categorical[T any](name string, values func(T) []string) Facet[T] {
	return Facet[T]{Name: name, Type: FacetCategorical, Values: values}
}

func numeric[T any](name string, bounds func(T) (float64, float64, bool)) Facet[T] {
	return Facet[T]{Name: name, Type: FacetNumeric, Bounds: bounds}
}

// span normalises an optional [lo, hi] pair; a single present bound is treated as a point.
func span(lo, hi *float64) (float64, float64, bool) {
	switch {
	case lo != nil && hi != nil:
		return *lo, *hi, true
	case lo != nil:
		return *lo, *lo, true
	case hi != nil:
		return *hi, *hi, true
	default:
		return 0, 0, false
	}
}

func intSpan(v *int) (float64, float64, bool) {
	if v == nil {
		return 0, 0, false
	}
	return float64(*v), float64(*v), true
}

func intValue(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}

func floatValue(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
