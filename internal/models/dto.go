package models

import (
	"strings"
	"time"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// MessageResponse carries a human-readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// CreateBugRequest is the body of POST /bugs. Reusability and fix closure are
// not accepted here.
type CreateBugRequest struct {
	Title                string            `json:"title" validate:"required,max=200"`
	Environment          Environment       `json:"environment" validate:"required,oneof=local staging production other"`
	Severity             Severity          `json:"severity" validate:"required,oneof=low medium high critical"`
	CodeSnippet          string            `json:"codeSnippet"`
	ErrorMessage         string            `json:"errorMessage"`
	BugDetails           string            `json:"bugDetails" validate:"required"`
	RootCauseExplanation string            `json:"rootCauseExplanation"`
	RootCauseCategory    RootCauseCategory `json:"rootCauseCategory" validate:"omitempty,oneof=logic syntax configuration dependency"`
	FixDocumentation     string            `json:"fixDocumentation"`
	FixSummary           string            `json:"fixSummary"`
	TechnologyTags       []string          `json:"technologyTags" validate:"max=20,dive,max=64,excludesall=0x2C"`
}

// Normalize trims free-text fields and drops blank tags.
func (r *CreateBugRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.CodeSnippet = strings.TrimSpace(r.CodeSnippet)
	r.ErrorMessage = strings.TrimSpace(r.ErrorMessage)
	r.BugDetails = strings.TrimSpace(r.BugDetails)
	r.RootCauseExplanation = strings.TrimSpace(r.RootCauseExplanation)
	r.FixDocumentation = strings.TrimSpace(r.FixDocumentation)
	r.FixSummary = strings.TrimSpace(r.FixSummary)
	r.TechnologyTags = CleanTags(r.TechnologyTags)
}

// UpdateBugRequest is the body of PUT /bugs/:id. Absent fields are left untouched.
type UpdateBugRequest struct {
	Title                *string            `json:"title" validate:"omitnil,min=1,max=200"`
	Environment          *Environment       `json:"environment" validate:"omitnil,oneof=local staging production other"`
	Severity             *Severity          `json:"severity" validate:"omitnil,oneof=low medium high critical"`
	CodeSnippet          *string            `json:"codeSnippet"`
	ErrorMessage         *string            `json:"errorMessage"`
	BugDetails           *string            `json:"bugDetails" validate:"omitnil,min=1"`
	RootCauseExplanation *string            `json:"rootCauseExplanation"`
	RootCauseCategory    *RootCauseCategory `json:"rootCauseCategory" validate:"omitempty,oneof=logic syntax configuration dependency"`
	FixDocumentation     *string            `json:"fixDocumentation"`
	FixSummary           *string            `json:"fixSummary"`
	TechnologyTags       *[]string          `json:"technologyTags" validate:"omitnil,max=20,dive,max=64,excludesall=0x2C"`
	IsReusableFix        *bool              `json:"isReusableFix"`
	FixedAt              *time.Time         `json:"fixedAt"`
}

// Normalize trims the supplied free-text fields and drops blank tags.
func (r *UpdateBugRequest) Normalize() {
	for _, s := range []*string{
		r.Title, r.CodeSnippet, r.ErrorMessage, r.BugDetails,
		r.RootCauseExplanation, r.FixDocumentation, r.FixSummary,
	} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if r.TechnologyTags != nil {
		tags := CleanTags(*r.TechnologyTags)
		r.TechnologyTags = &tags
	}
}

// Patch converts the request into a store patch.
func (r *UpdateBugRequest) Patch() BugPatch {
	return BugPatch{
		Title:                r.Title,
		Environment:          r.Environment,
		Severity:             r.Severity,
		CodeSnippet:          r.CodeSnippet,
		ErrorMessage:         r.ErrorMessage,
		BugDetails:           r.BugDetails,
		RootCauseExplanation: r.RootCauseExplanation,
		RootCauseCategory:    r.RootCauseCategory,
		FixDocumentation:     r.FixDocumentation,
		FixSummary:           r.FixSummary,
		TechnologyTags:       r.TechnologyTags,
		IsReusableFix:        r.IsReusableFix,
		FixedAt:              r.FixedAt,
	}
}

// BugFilters are the optional listing constraints of GET /bugs.
// A nil field imposes no constraint.
type BugFilters struct {
	Search            *string            `json:"search"`
	Severity          *Severity          `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	RootCauseCategory *RootCauseCategory `json:"rootCauseCategory" validate:"omitempty,oneof=logic syntax configuration dependency"`
	TechnologyTags    []string           `json:"technologyTags"`
	IsReusableFix     *bool              `json:"isReusableFix"`
}

// BugView is the public projection of a BugEntry.
type BugView struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	Environment          Environment       `json:"environment"`
	Severity             Severity          `json:"severity"`
	CodeSnippet          string            `json:"codeSnippet,omitempty"`
	ErrorMessage         string            `json:"errorMessage,omitempty"`
	BugDetails           string            `json:"bugDetails"`
	RootCauseExplanation string            `json:"rootCauseExplanation,omitempty"`
	RootCauseCategory    RootCauseCategory `json:"rootCauseCategory,omitempty"`
	FixDocumentation     string            `json:"fixDocumentation,omitempty"`
	FixSummary           string            `json:"fixSummary,omitempty"`
	TechnologyTags       []string          `json:"technologyTags"`
	IsReusableFix        bool              `json:"isReusableFix"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
	FixedAt              *time.Time        `json:"fixedAt,omitempty"`
}

// View projects the entry for responses, dropping the owner.
func (b *BugEntry) View() BugView {
	return BugView{
		ID:                   b.ID,
		Title:                b.Title,
		Environment:          b.Environment,
		Severity:             b.Severity,
		CodeSnippet:          b.CodeSnippet,
		ErrorMessage:         b.ErrorMessage,
		BugDetails:           b.BugDetails,
		RootCauseExplanation: b.RootCauseExplanation,
		RootCauseCategory:    b.RootCauseCategory,
		FixDocumentation:     b.FixDocumentation,
		FixSummary:           b.FixSummary,
		TechnologyTags:       b.TechnologyTags(),
		IsReusableFix:        b.IsReusableFix,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
		FixedAt:              b.FixedAt,
	}
}

// CleanTags trims each tag and drops empty ones, keeping order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
