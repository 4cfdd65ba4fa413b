// Package catalog holds the in-memory catalog of institutions, programs and healthcare postings,
// the faceted filter engine shared by all three collections, and the search suggester.
package catalog

import (
	"fmt"
	"strings"
)

// Kind identifies one of the catalog collections.
type Kind string

const (
	KindInstitution Kind = "institution"
	KindProgram     Kind = "program"
	KindPosting     Kind = "posting"
)

// Kinds lists every catalog collection in refresh order.
var Kinds = []Kind{KindInstitution, KindProgram, KindPosting}

// Entity is implemented by every catalog record.
type Entity interface {
	EntityID() string
}

// ParseKind accepts the singular, plural and marketing names used by the public routes.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "institution", "institutions", "university", "universities":
		return KindInstitution, nil
	case "program", "programs", "course", "courses":
		return KindProgram, nil
	case "posting", "postings", "job", "jobs":
		return KindPosting, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

func (k Kind) String() string { return string(k) }
