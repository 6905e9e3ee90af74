package models

import "time"

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// CaseFilter selects cases for the review queue. Search matches applicant or
// company name, case-insensitively.
type CaseFilter struct {
	States      []CaseState
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string
	Limit       int
	Offset      int
}

// WithDefaults clamps paging.
func (f CaseFilter) WithDefaults() CaseFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// CasePage is one page of a filtered listing plus the unpaged total.
type CasePage struct {
	Cases []*Case `json:"cases"`
	Total int     `json:"total"`
}
