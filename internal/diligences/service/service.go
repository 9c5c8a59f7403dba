package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/correspondents/matcher"
	"jurisconnect_backend/internal/diligences/repository"
	"jurisconnect_backend/internal/diligences/transport"
	"jurisconnect_backend/internal/events"
	"jurisconnect_backend/internal/statusflow/domain"
	statusflow "jurisconnect_backend/internal/statusflow/service"
	"jurisconnect_backend/platform/apperr"
	"jurisconnect_backend/platform/logger"
)

// payoutRate is the fraction of the diligence value that goes to the
// correspondent. The remainder is the platform fee.
var payoutRate = decimal.NewFromFloat(0.70)

// Actor identifies the caller for authorization checks.
type Actor struct {
	UserID          uuid.UUID
	IsAdmin         bool
	IsCorrespondent bool
}

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, p repository.CreateParams) (*repository.Diligence, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Diligence, error)
	List(ctx context.Context, f repository.ListFilters) ([]repository.Diligence, int, error)
}

// Transitioner applies forward diligence transitions with full ledger and
// event side effects.
type Transitioner interface {
	ApplyDiligenceTransition(ctx context.Context, in statusflow.TransitionInput) (*domain.DiligenceRow, error)
}

// Matcher selects the best available correspondent for a set of criteria.
type Matcher interface {
	Match(ctx context.Context, criteria matcher.Criteria) (matcher.Profile, bool, error)
}

type Service struct {
	repo    Repository
	flow    Transitioner
	matcher Matcher
	bus     events.Bus
	log     *logger.Logger
}

func New(repo Repository, flow Transitioner, m Matcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, flow: flow, matcher: m, bus: bus, log: log}
}

func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req transport.CreateRequest) (transport.DiligenceResponse, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return transport.DiligenceResponse{}, apperr.Validation("value must be a decimal number")
	}
	if !value.IsPositive() {
		return transport.DiligenceResponse{}, apperr.Validation("value must be greater than zero")
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return transport.DiligenceResponse{}, apperr.Validation("deadline must be an RFC 3339 timestamp")
	}
	if !deadline.After(time.Now()) {
		return transport.DiligenceResponse{}, apperr.Validation("deadline must be in the future")
	}

	d, err := s.repo.Create(ctx, repository.CreateParams{
		Title:               req.Title,
		Description:         req.Description,
		Priority:            req.Priority,
		Value:               value,
		CorrespondentAmount: value.Mul(payoutRate).Round(2),
		Deadline:            deadline,
		City:                req.City,
		State:               req.State,
		ClientID:            clientID,
	})
	if err != nil {
		return transport.DiligenceResponse{}, apperr.Persistence("create diligence", err)
	}

	s.bus.Publish(ctx, events.DiligenceCreated{
		BaseEvent:   events.NewBaseEvent(),
		DiligenceID: d.ID,
		ClientID:    clientID,
		Title:       d.Title,
		City:        d.City,
		State:       d.State,
	})
	s.log.Info("diligence created", "diligence_id", d.ID, "client_id", clientID)

	return transport.ToDiligenceResponse(d), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Actor) (transport.DiligenceResponse, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.DiligenceResponse{}, notFoundOr("load diligence", err)
	}
	if !canView(d, actor) {
		return transport.DiligenceResponse{}, apperr.Forbidden("you do not have access to this diligence")
	}
	return transport.ToDiligenceResponse(d), nil
}

// List scopes results to the caller: clients see their own diligences,
// correspondents see their assignments, admins see everything.
func (s *Service) List(ctx context.Context, q transport.ListQuery, actor Actor) (transport.ListResponse, error) {
	f := repository.ListFilters{
		Status: domain.Status(q.Status),
		State:  q.State,
		City:   q.City,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Status != "" && !f.Status.ValidDiligence() {
		return transport.ListResponse{}, apperr.Validation(fmt.Sprintf("unknown diligence status %q", q.Status))
	}
	switch {
	case actor.IsAdmin:
	case actor.IsCorrespondent:
		f.CorrespondentUserID = &actor.UserID
	default:
		f.ClientID = &actor.UserID
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return transport.ListResponse{}, apperr.Persistence("list diligences", err)
	}
	resp := transport.ListResponse{
		Items:  make([]transport.DiligenceResponse, 0, len(items)),
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.ToDiligenceResponse(&items[i]))
	}
	return resp, nil
}

// Transition moves a diligence forward along the status graph. Clients may
// only cancel their own pending diligences; correspondents may advance their
// assignments; admins may drive any legal transition.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req transport.TransitionRequest, actor Actor) (transport.DiligenceResponse, error) {
	to := domain.Status(req.Status)
	if !to.ValidDiligence() {
		return transport.DiligenceResponse{}, apperr.Validation(fmt.Sprintf("unknown diligence status %q", req.Status))
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.DiligenceResponse{}, notFoundOr("load diligence", err)
	}
	if err := checkTransitionPolicy(d, to, actor); err != nil {
		return transport.DiligenceResponse{}, err
	}

	row, err := s.flow.ApplyDiligenceTransition(ctx, statusflow.TransitionInput{
		DiligenceID: id,
		To:          to,
		ActorID:     actor.UserID,
		Reason:      req.Reason,
	})
	if err != nil {
		return transport.DiligenceResponse{}, err
	}
	d.Status = row.Status
	d.CorrespondentID = row.CorrespondentID
	return transport.ToDiligenceResponse(d), nil
}

// Assign attaches a specific correspondent to a pending diligence.
func (s *Service) Assign(ctx context.Context, id, correspondentID, actorID uuid.UUID) (transport.DiligenceResponse, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.DiligenceResponse{}, notFoundOr("load diligence", err)
	}

	row, err := s.flow.ApplyDiligenceTransition(ctx, statusflow.TransitionInput{
		DiligenceID:     id,
		To:              domain.StatusAssigned,
		CorrespondentID: &correspondentID,
		ActorID:         actorID,
		Reason:          "correspondent assigned",
	})
	if err != nil {
		return transport.DiligenceResponse{}, err
	}
	d.Status = row.Status
	d.CorrespondentID = row.CorrespondentID
	return transport.ToDiligenceResponse(d), nil
}

// AutoAssign runs the matcher over the diligence's state pool and assigns
// the winner. It fails with a conflict when no correspondent qualifies.
func (s *Service) AutoAssign(ctx context.Context, id uuid.UUID, req transport.AutoAssignRequest, actorID uuid.UUID) (transport.DiligenceResponse, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.DiligenceResponse{}, notFoundOr("load diligence", err)
	}

	criteria := matcher.Criteria{
		State:                d.State,
		City:                 d.City,
		MinRating:            req.MinRating,
		MaxResponseTimeHours: req.MaxResponseTime,
		Excluded:             req.Exclude,
	}
	if req.Specialty != "" {
		criteria.Specialties = []string{req.Specialty}
	}

	best, ok, err := s.matcher.Match(ctx, criteria)
	if err != nil {
		return transport.DiligenceResponse{}, err
	}
	if !ok {
		return transport.DiligenceResponse{}, apperr.Conflict("no correspondent matches the assignment criteria")
	}

	row, err := s.flow.ApplyDiligenceTransition(ctx, statusflow.TransitionInput{
		DiligenceID:     id,
		To:              domain.StatusAssigned,
		CorrespondentID: &best.ID,
		ActorID:         actorID,
		Reason:          "auto-matched correspondent",
		AutoMatched:     true,
	})
	if err != nil {
		return transport.DiligenceResponse{}, err
	}
	d.Status = row.Status
	d.CorrespondentID = row.CorrespondentID
	s.log.Info("diligence auto-assigned",
		"diligence_id", d.ID, "correspondent_id", best.ID)
	return transport.ToDiligenceResponse(d), nil
}

// assignedTo reports whether the actor's account owns the correspondent
// profile assigned to the diligence.
func assignedTo(d *repository.Diligence, actor Actor) bool {
	return d.CorrespondentUserID != nil && *d.CorrespondentUserID == actor.UserID
}

func canView(d *repository.Diligence, actor Actor) bool {
	if actor.IsAdmin || d.ClientID == actor.UserID {
		return true
	}
	return assignedTo(d, actor)
}

func checkTransitionPolicy(d *repository.Diligence, to domain.Status, actor Actor) error {
	if actor.IsAdmin {
		return nil
	}
	if d.ClientID == actor.UserID {
		if to == domain.StatusCancelled {
			return nil
		}
		return apperr.Forbidden("clients may only cancel their diligences")
	}
	if assignedTo(d, actor) {
		if to == domain.StatusInProgress || to == domain.StatusCompleted {
			return nil
		}
		return apperr.Forbidden("correspondents may only start or complete their assignments")
	}
	return apperr.Forbidden("you do not have access to this diligence")
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("diligence not found")
	}
	return apperr.Persistence(op, err)
}
