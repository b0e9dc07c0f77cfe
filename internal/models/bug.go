package models

import (
	"sort"
	"strings"
	"time"
)

// Environment is where a bug was observed.
type Environment string

const (
	EnvironmentLocal      Environment = "local"
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
	EnvironmentOther      Environment = "other"
)

// Severity ranks the impact of a bug.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RootCauseCategory groups bugs by what caused them.
type RootCauseCategory string

const (
	RootCauseLogic         RootCauseCategory = "logic"
	RootCauseSyntax        RootCauseCategory = "syntax"
	RootCauseConfiguration RootCauseCategory = "configuration"
	RootCauseDependency    RootCauseCategory = "dependency"
)

// BugEntry is a single journal record. OwnerID never changes after creation.
type BugEntry struct {
	ID                   string            `gorm:"primaryKey;type:varchar(36)"`
	OwnerID              string            `gorm:"index;type:varchar(36);not null"`
	Title                string            `gorm:"not null"`
	Environment          Environment       `gorm:"type:varchar(16);not null"`
	Severity             Severity          `gorm:"type:varchar(16);not null"`
	CodeSnippet          string            `gorm:"not null;default:''"`
	ErrorMessage         string            `gorm:"not null;default:''"`
	BugDetails           string            `gorm:"not null"`
	RootCauseExplanation string            `gorm:"not null;default:''"`
	RootCauseCategory    RootCauseCategory `gorm:"type:varchar(16);not null;default:''"`
	FixDocumentation     string            `gorm:"not null;default:''"`
	FixSummary           string            `gorm:"not null;default:''"`
	Tags                 []BugTag          `gorm:"foreignKey:BugID;constraint:OnDelete:CASCADE"`
	IsReusableFix        bool              `gorm:"not null;default:false"`
	CreatedAt            time.Time         `gorm:"not null;autoCreateTime:false"`
	UpdatedAt            time.Time         `gorm:"not null;autoUpdateTime:false"`
	FixedAt              *time.Time

	// Folded copies of the searchable text, kept in step by RefreshSearch.
	SearchTitle            string `gorm:"not null;default:''"`
	SearchErrorMessage     string `gorm:"not null;default:''"`
	SearchFixDocumentation string `gorm:"not null;default:''"`
}

// FoldSearch normalizes text for case-insensitive search. Databases compare
// folded columns rather than their own LOWER(), which in SQLite only folds ASCII.
func FoldSearch(s string) string {
	return strings.ToLower(s)
}

// RefreshSearch recomputes the folded search fields from the entry's text.
func (b *BugEntry) RefreshSearch() {
	b.SearchTitle = FoldSearch(b.Title)
	b.SearchErrorMessage = FoldSearch(b.ErrorMessage)
	b.SearchFixDocumentation = FoldSearch(b.FixDocumentation)
}

// BugTag is one technology tag of a bug entry; Seq keeps the caller's order.
type BugTag struct {
	BugID string `gorm:"primaryKey;type:varchar(36)"`
	Seq   int    `gorm:"primaryKey"`
	Tag   string `gorm:"index;type:varchar(64);not null"`
}

// NewBugTags builds ordered tag rows for the given names.
func NewBugTags(bugID string, names []string) []BugTag {
	tags := make([]BugTag, 0, len(names))
	for i, name := range names {
		tags = append(tags, BugTag{BugID: bugID, Seq: i, Tag: name})
	}
	return tags
}

// TechnologyTags returns the tag names in their stored order.
func (b *BugEntry) TechnologyTags() []string {
	tags := make([]BugTag, len(b.Tags))
	copy(tags, b.Tags)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Seq < tags[j].Seq })

	names := make([]string, len(tags))
	for i := range tags {
		names[i] = tags[i].Tag
	}
	return names
}

// HasAnyTag reports whether the entry carries at least one of tags.
func (b *BugEntry) HasAnyTag(tags []string) bool {
	for _, have := range b.Tags {
		for _, want := range tags {
			if have.Tag == want {
				return true
			}
		}
	}
	return false
}

// IsListedAsReusable reports whether the entry belongs in the reusable-fix listing.
func (b *BugEntry) IsListedAsReusable() bool {
	return b.IsReusableFix && b.FixDocumentation != ""
}

// BugPatch holds the fields of a partial update; nil means "leave unchanged".
type BugPatch struct {
	Title                *string
	Environment          *Environment
	Severity             *Severity
	CodeSnippet          *string
	ErrorMessage         *string
	BugDetails           *string
	RootCauseExplanation *string
	RootCauseCategory    *RootCauseCategory
	FixDocumentation     *string
	FixSummary           *string
	TechnologyTags       *[]string
	IsReusableFix        *bool
	FixedAt              *time.Time
}

// Apply merges the supplied fields into b and stamps UpdatedAt.
// It reports whether the tag set was replaced.
func (p BugPatch) Apply(b *BugEntry, now time.Time) (tagsChanged bool) {
	setString(&b.Title, p.Title)
	setString(&b.CodeSnippet, p.CodeSnippet)
	setString(&b.ErrorMessage, p.ErrorMessage)
	setString(&b.BugDetails, p.BugDetails)
	setString(&b.RootCauseExplanation, p.RootCauseExplanation)
	setString(&b.FixDocumentation, p.FixDocumentation)
	setString(&b.FixSummary, p.FixSummary)
	if p.Environment != nil {
		b.Environment = *p.Environment
	}
	if p.Severity != nil {
		b.Severity = *p.Severity
	}
	if p.RootCauseCategory != nil {
		b.RootCauseCategory = *p.RootCauseCategory
	}
	if p.IsReusableFix != nil {
		b.IsReusableFix = *p.IsReusableFix
	}
	if p.FixedAt != nil {
		fixedAt := *p.FixedAt
		b.FixedAt = &fixedAt
	}
	if p.TechnologyTags != nil {
		b.Tags = NewBugTags(b.ID, *p.TechnologyTags)
		tagsChanged = true
	}
	b.UpdatedAt = now
	return tagsChanged
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
