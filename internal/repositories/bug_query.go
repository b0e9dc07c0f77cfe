package repositories

import (
	"strings"

	"debugdiary/internal/models"
)

// Order selects the sort key of a bug listing. Ties are broken by id.
type Order int

const (
	OrderCreatedDesc Order = iota
	OrderUpdatedDesc
)

// BugQuery is an owner-scoped listing. Predicates are ANDed together.
type BugQuery struct {
	OwnerID    string
	Predicates []Predicate
	Order      Order
}

// Predicate is one optional constraint of a BugQuery. The set of predicates is
// closed; stores compile each variant into their native representation.
type Predicate interface {
	isPredicate()
}

// SearchPredicate matches entries whose title, error message, or fix
// documentation contains Term, ignoring case as models.FoldSearch does.
type SearchPredicate struct{ Term string }

// SeverityPredicate matches an exact severity.
type SeverityPredicate struct{ Severity models.Severity }

// RootCausePredicate matches an exact root cause category.
type RootCausePredicate struct{ Category models.RootCauseCategory }

// TagsPredicate matches entries carrying at least one of Tags.
type TagsPredicate struct{ Tags []string }

// ReusablePredicate matches the reusable flag exactly.
type ReusablePredicate struct{ Value bool }

// DocumentedFixPredicate matches entries flagged reusable whose fix
// documentation is non-empty.
type DocumentedFixPredicate struct{}

func (SearchPredicate) isPredicate()        {}
func (SeverityPredicate) isPredicate()      {}
func (RootCausePredicate) isPredicate()     {}
func (TagsPredicate) isPredicate()          {}
func (ReusablePredicate) isPredicate()      {}
func (DocumentedFixPredicate) isPredicate() {}

// FilterQuery composes a listing query from optional filters. Absent or empty
// filters add no predicate.
func FilterQuery(ownerID string, f models.BugFilters) BugQuery {
	q := BugQuery{OwnerID: ownerID, Order: OrderCreatedDesc}
	if f.Search != nil {
		if term := strings.TrimSpace(*f.Search); term != "" {
			q.Predicates = append(q.Predicates, SearchPredicate{Term: term})
		}
	}
	if f.Severity != nil && *f.Severity != "" {
		q.Predicates = append(q.Predicates, SeverityPredicate{Severity: *f.Severity})
	}
	if f.RootCauseCategory != nil && *f.RootCauseCategory != "" {
		q.Predicates = append(q.Predicates, RootCausePredicate{Category: *f.RootCauseCategory})
	}
	if tags := models.CleanTags(f.TechnologyTags); len(tags) > 0 {
		q.Predicates = append(q.Predicates, TagsPredicate{Tags: tags})
	}
	if f.IsReusableFix != nil {
		q.Predicates = append(q.Predicates, ReusablePredicate{Value: *f.IsReusableFix})
	}
	return q
}

// ReusableFixesQuery lists the owner's documented reusable fixes, most
// recently updated first.
func ReusableFixesQuery(ownerID string) BugQuery {
	return BugQuery{
		OwnerID:    ownerID,
		Predicates: []Predicate{DocumentedFixPredicate{}},
		Order:      OrderUpdatedDesc,
	}
}

// Match evaluates p against an entry in memory.
func Match(p Predicate, b *models.BugEntry) (bool, error) {
	switch p := p.(type) {
	case SearchPredicate:
		term := models.FoldSearch(p.Term)
		return containsFold(b.Title, term) ||
			containsFold(b.ErrorMessage, term) ||
			containsFold(b.FixDocumentation, term), nil
	case SeverityPredicate:
		return b.Severity == p.Severity, nil
	case RootCausePredicate:
		return b.RootCauseCategory == p.Category, nil
	case TagsPredicate:
		return b.HasAnyTag(p.Tags), nil
	case ReusablePredicate:
		return b.IsReusableFix == p.Value, nil
	case DocumentedFixPredicate:
		return b.IsListedAsReusable(), nil
	default:
		return false, ErrUnsupportedPredicate
	}
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(models.FoldSearch(s), lowerTerm)
}
