// Package service manages correspondent profiles and answers matching
// requests against a cached candidate pool.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/correspondents/matcher"
	"jurisconnect_backend/internal/correspondents/repository"
	"jurisconnect_backend/internal/correspondents/transport"
	"jurisconnect_backend/platform/apperr"
	"jurisconnect_backend/platform/logger"
	"jurisconnect_backend/platform/phone"
)

type Service struct {
	repo    *repository.Repository
	cache   *repository.PoolCache
	weights matcher.Weights
	log     *logger.Logger
}

func New(repo *repository.Repository, cache *repository.PoolCache, weights matcher.Weights, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: cache, weights: weights, log: log}
}

func (s *Service) List(ctx context.Context, q transport.ListQuery) ([]transport.ProfileResponse, error) {
	profiles, err := s.repo.List(ctx, repository.ListFilters{
		State:    q.State,
		City:     q.City,
		Verified: q.Verified,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, apperr.Persistence("list correspondents", err)
	}
	resp := make([]transport.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		resp = append(resp, transport.ToProfileResponse(&profiles[i]))
	}
	return resp, nil
}

// SetVerified flips the admin verification flag and drops the state's pool
// snapshot so matching sees the change immediately.
func (s *Service) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (transport.ProfileResponse, error) {
	p, err := s.repo.SetVerified(ctx, id, verified)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ProfileResponse{}, apperr.NotFound("correspondent not found")
		}
		return transport.ProfileResponse{}, apperr.Persistence("update verification", err)
	}
	s.cache.Invalidate(ctx, p.State)
	return transport.ToProfileResponse(p), nil
}

// Rate folds one 1..5 feedback value into the aggregate rating.
func (s *Service) Rate(ctx context.Context, id uuid.UUID, value int) (transport.ProfileResponse, error) {
	if value < 1 || value > 5 {
		return transport.ProfileResponse{}, apperr.Validation("rating must be between 1 and 5")
	}
	p, err := s.repo.AddRating(ctx, id, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ProfileResponse{}, apperr.NotFound("correspondent not found")
		}
		return transport.ProfileResponse{}, apperr.Persistence("add rating", err)
	}
	s.cache.Invalidate(ctx, p.State)
	return transport.ToProfileResponse(p), nil
}

// UpdateOwnProfile updates the caller's profile. Phone numbers are stored
// normalized to E.164.
func (s *Service) UpdateOwnProfile(ctx context.Context, userID uuid.UUID, req transport.UpdateProfileRequest) (transport.ProfileResponse, error) {
	params := repository.UpdateProfileParams{
		State:       req.State,
		City:        req.City,
		Specialties: req.Specialties,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	before, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ProfileResponse{}, apperr.NotFound("correspondent profile not found")
		}
		return transport.ProfileResponse{}, apperr.Persistence("load profile", err)
	}

	p, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		return transport.ProfileResponse{}, apperr.Persistence("update profile", err)
	}

	s.cache.Invalidate(ctx, before.State)
	if p.State != before.State {
		s.cache.Invalidate(ctx, p.State)
	}
	return transport.ToProfileResponse(p), nil
}

// Match returns the best candidate for the criteria, or ok=false when the
// filtered pool is empty. The pool snapshot may be slightly stale; the
// assignment itself still goes through the transactional transition path.
func (s *Service) Match(ctx context.Context, criteria matcher.Criteria) (matcher.Profile, bool, error) {
	pool, hit := s.cache.Get(ctx, criteria.State)
	if !hit {
		var err error
		pool, err = s.repo.MatchingPool(ctx, criteria.State)
		if err != nil {
			return matcher.Profile{}, false, apperr.Persistence("load matching pool", err)
		}
		s.cache.Set(ctx, criteria.State, pool)
	}

	best, ok := matcher.FindBest(pool, criteria, s.weights)
	return best, ok, nil
}
