package catalog

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// SuggestionKind is the group a suggestion belongs to.
type SuggestionKind string

const (
	SuggestInstitution SuggestionKind = "institution"
	SuggestProgram     SuggestionKind = "program"
	SuggestCountry     SuggestionKind = "country"
	SuggestCity        SuggestionKind = "city"
)

// Suggestion limits per kind and overall.
const (
	MaxInstitutionSuggestions = 3
	MaxProgramSuggestions     = 3
	MaxCountrySuggestions     = 2
	MaxCitySuggestions        = 2
	MaxSuggestions            = 8
)

// SuggestionKinds is the priority order used when concatenating and truncating.
var SuggestionKinds = []SuggestionKind{SuggestInstitution, SuggestProgram, SuggestCountry, SuggestCity}

// Rank keys, lower is better.
const (
	rankExact = iota
	rankPrefix
	rankSubstring
	rankSecondary
)

// Suggestion is a transient, ranked search hint derived from the catalog.
type Suggestion struct {
	Kind        SuggestionKind `json:"kind"`
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Rank        int            `json:"rank"`
	Destination string         `json:"destination"`
}

// Selection is the outcome of choosing a suggestion: where to navigate and what to put in the search box.
type Selection struct {
	Route     string `json:"route"`
	QueryText string `json:"query_text"`
}

// Select resolves a suggestion to its destination view.
func Select(s Suggestion) Selection {
	return Selection{Route: destination(s.Kind, s.ID), QueryText: s.Title}
}

// Limit returns the per-kind cap.
func (k SuggestionKind) Limit() int {
	switch k {
	case SuggestInstitution:
		return MaxInstitutionSuggestions
	case SuggestProgram:
		return MaxProgramSuggestions
	case SuggestCountry:
		return MaxCountrySuggestions
	case SuggestCity:
		return MaxCitySuggestions
	default:
		return 0
	}
}

// Suggest derives suggestions for query from the given collections. A blank query yields none.
// Country and city groupings are computed from institutions on every call.
func Suggest(query string, institutions []models.Institution, programs []models.Program) []Suggestion {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []Suggestion{}
	}

	names := make(map[string]string, len(institutions))
	for _, institution := range institutions {
		names[institution.ID] = institution.Name
	}

	groups := [][]Suggestion{
		suggestInstitutions(needle, institutions),
		suggestPrograms(needle, programs, names),
		suggestCountries(needle, institutions),
		suggestCities(needle, institutions),
	}

	out := make([]Suggestion, 0, MaxSuggestions)
	for i, group := range groups {
		group = truncate(group, SuggestionKinds[i].Limit())
		for _, s := range group {
			if len(out) == MaxSuggestions {
				return out
			}
			out = append(out, s)
		}
	}
	return out
}

func suggestInstitutions(needle string, institutions []models.Institution) []Suggestion {
	out := make([]Suggestion, 0)
	for _, institution := range institutions {
		rank, ok := rankText(needle, institution.Name)
		if !ok {
			continue
		}
		out = append(out, newSuggestion(SuggestInstitution, institution.ID, institution.Name, location(institution.City, institution.Country), rank))
	}
	sortByRank(out)
	return out
}

func suggestPrograms(needle string, programs []models.Program, institutionNames map[string]string) []Suggestion {
	out := make([]Suggestion, 0)
	for _, program := range programs {
		rank, ok := rankText(needle, program.Name)
		if !ok {
			if !strings.Contains(strings.ToLower(program.Field), needle) {
				continue
			}
			rank = rankSecondary
		}

		subtitle := program.DegreeLevel
		if name, found := institutionNames[program.InstitutionID]; found {
			subtitle = fmt.Sprintf("%s at %s", program.DegreeLevel, name)
		}
		out = append(out, newSuggestion(SuggestProgram, program.ID, program.Name, strings.TrimSpace(subtitle), rank))
	}
	sortByRank(out)
	return out
}

type grouping struct {
	title   string
	country string
	count   int
	rank    int
}

func suggestCountries(needle string, institutions []models.Institution) []Suggestion {
	groups := groupInstitutions(needle, institutions, func(i models.Institution) (string, string) {
		return i.Country, ""
	})

	out := make([]Suggestion, 0, len(groups))
	for _, g := range groups {
		out = append(out, newSuggestion(SuggestCountry, g.title, g.title, countLabel(g.count), g.rank))
	}
	return out
}

func suggestCities(needle string, institutions []models.Institution) []Suggestion {
	groups := groupInstitutions(needle, institutions, func(i models.Institution) (string, string) {
		return i.City, i.Country
	})

	out := make([]Suggestion, 0, len(groups))
	for _, g := range groups {
		subtitle := countLabel(g.count)
		if g.country != "" {
			subtitle = fmt.Sprintf("%s in %s", subtitle, g.country)
		}
		out = append(out, newSuggestion(SuggestCity, g.title, g.title, subtitle, g.rank))
	}
	return out
}

// groupInstitutions groups matching institutions by a case-insensitive key and orders the groups by
// rank, then institution count (descending), then title.
func groupInstitutions(needle string, institutions []models.Institution, key func(models.Institution) (string, string)) []grouping {
	index := make(map[string]int)
	groups := make([]grouping, 0)
	for _, institution := range institutions {
		title, country := key(institution)
		title = strings.TrimSpace(title)
		rank, ok := rankText(needle, title)
		if !ok {
			continue
		}
		normalized := strings.ToLower(title)
		if idx, seen := index[normalized]; seen {
			groups[idx].count++
			if groups[idx].country != country {
				groups[idx].country = ""
			}
			continue
		}
		index[normalized] = len(groups)
		groups = append(groups, grouping{title: title, country: country, count: 1, rank: rank})
	}

	slices.SortStableFunc(groups, func(a, b grouping) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		if a.count != b.count {
			return b.count - a.count
		}
		return strings.Compare(strings.ToLower(a.title), strings.ToLower(b.title))
	})
	return groups
}

func rankText(needle, text string) (int, bool) {
	haystack := strings.ToLower(strings.TrimSpace(text))
	switch {
	case haystack == "":
		return 0, false
	case haystack == needle:
		return rankExact, true
	case strings.HasPrefix(haystack, needle):
		return rankPrefix, true
	case strings.Contains(haystack, needle):
		return rankSubstring, true
	default:
		return 0, false
	}
}

func newSuggestion(kind SuggestionKind, id, title, subtitle string, rank int) Suggestion {
	return Suggestion{
		Kind:        kind,
		ID:          id,
		Title:       title,
		Subtitle:    subtitle,
		Rank:        rank,
		Destination: destination(kind, id),
	}
}

func destination(kind SuggestionKind, id string) string {
	switch kind {
	case SuggestInstitution:
		return "/universities/" + url.PathEscape(id)
	case SuggestProgram:
		return "/courses/" + url.PathEscape(id)
	case SuggestCountry:
		return "/universities?country=" + url.QueryEscape(id)
	case SuggestCity:
		return "/universities?city=" + url.QueryEscape(id)
	default:
		return "/search?q=" + url.QueryEscape(id)
	}
}

func sortByRank(items []Suggestion) {
	slices.SortStableFunc(items, func(a, b Suggestion) int { return a.Rank - b.Rank })
}

func truncate(items []Suggestion, limit int) []Suggestion {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func location(city, country string) string {
	parts := compact([]string{city, country})
	return strings.Join(parts, ", ")
}

func countLabel(count int) string {
	if count == 1 {
		return "1 university"
	}
	return fmt.Sprintf("%d universities", count)
}
