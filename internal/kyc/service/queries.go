package service

import (
	"context"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/providers"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
)

// GetCase returns the user's case with effective document and case states
// at request time. Nothing is persisted.
func (s *Service) GetCase(ctx context.Context, userID id.UserID) (*models.Case, error) {
	c, err := s.findByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.View(s.now(ctx)), nil
}

// GetCaseByID is the reviewer's read of a case.
func (s *Service) GetCaseByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.findByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return c.View(s.now(ctx)), nil
}

// ListCases pages through cases for the review queue. States filter on the
// stored state; returned cases carry effective states.
func (s *Service) ListCases(ctx context.Context, filter models.CaseFilter) (*models.CasePage, error) {
	for _, st := range filter.States {
		if !st.IsValid() {
			return nil, dErrors.NewField(dErrors.CodeValidation, "state", "unknown case state "+string(st))
		}
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return nil, dErrors.NewField(dErrors.CodeValidation, "created_to", "created_to must not be before created_from")
	}
	page, err := s.cases.List(ctx, filter.WithDefaults())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list kyc cases")
	}
	now := s.now(ctx)
	views := make([]*models.Case, 0, len(page.Cases))
	for _, c := range page.Cases {
		views = append(views, c.View(now))
	}
	return &models.CasePage{Cases: views, Total: page.Total}, nil
}

// CountByState returns stored case counts for every state, zeros included.
func (s *Service) CountByState(ctx context.Context) (map[models.CaseState]int, error) {
	counts, err := s.cases.CountByState(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count kyc cases")
	}
	out := make(map[models.CaseState]int, len(models.CaseStates))
	for _, st := range models.CaseStates {
		out[st] = counts[st]
	}
	return out, nil
}

// LookupIFSC resolves a bank branch code for the bank details form.
func (s *Service) LookupIFSC(ctx context.Context, code string) (*providers.IFSCDetails, error) {
	return s.ifsc.Resolve(ctx, code)
}
