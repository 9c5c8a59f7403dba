// Package repository persists correspondent profiles and serves the
// matching pool, fronted by a Redis snapshot cache.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/correspondents/matcher"
)

var ErrNotFound = errors.New("not found")

// Profile is a correspondent_profiles row.
type Profile struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Name                 string
	Phone                *string
	State                string
	City                 string
	Specialties          []string
	Rating               float64
	RatingCount          int
	CompletionRate       float64
	AvgResponseTimeHours float64
	Active               bool
	Verified             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ListFilters narrows the admin listing.
type ListFilters struct {
	State    string
	City     string
	Verified *bool
	Limit    int
	Offset   int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectProfile = `
	SELECT id, user_id, name, phone, state, city, specialties,
	       rating, rating_count, completion_rate, avg_response_time_hours,
	       active, verified, created_at, updated_at
	FROM correspondent_profiles`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, selectProfile+` WHERE id = $1`, id))
}

func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, selectProfile+` WHERE user_id = $1`, userID))
}

func (r *Repository) List(ctx context.Context, f ListFilters) ([]Profile, error) {
	query := selectProfile + ` WHERE 1=1`
	args := []any{}
	if f.State != "" {
		args = append(args, f.State)
		query += ` AND state = $` + strconv.Itoa(len(args))
	}
	if f.City != "" {
		args = append(args, f.City)
		query += ` AND city ILIKE $` + strconv.Itoa(len(args))
	}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		query += ` AND verified = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY rating DESC, name ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// MatchingPool loads every active verified correspondent of one state as
// matcher input, with the current active diligence load.
func (r *Repository) MatchingPool(ctx context.Context, state string) ([]matcher.Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.state, p.city, p.specialties, p.rating,
		       p.completion_rate, p.avg_response_time_hours, p.active, p.verified,
		       (SELECT COUNT(*) FROM diligences d
		        WHERE d.correspondent_id = p.id AND d.status IN ('assigned', 'in_progress'))
		FROM correspondent_profiles p
		WHERE p.state = $1 AND p.active AND p.verified
	`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pool []matcher.Profile
	for rows.Next() {
		var p matcher.Profile
		if err := rows.Scan(
			&p.ID, &p.State, &p.City, &p.Specialties, &p.Rating,
			&p.CompletionRate, &p.AvgResponseTimeHours, &p.Active, &p.Verified,
			&p.ActiveDiligences,
		); err != nil {
			return nil, err
		}
		pool = append(pool, p)
	}
	return pool, rows.Err()
}

func (r *Repository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE correspondent_profiles
		SET verified = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, name, phone, state, city, specialties,
		          rating, rating_count, completion_rate, avg_response_time_hours,
		          active, verified, created_at, updated_at
	`, id, verified))
}

// AddRating folds one feedback value into the aggregate in a single
// statement so concurrent ratings cannot lose updates.
func (r *Repository) AddRating(ctx context.Context, id uuid.UUID, value int) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE correspondent_profiles
		SET rating = (rating * rating_count + $2) / (rating_count + 1),
		    rating_count = rating_count + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, name, phone, state, city, specialties,
		          rating, rating_count, completion_rate, avg_response_time_hours,
		          active, verified, created_at, updated_at
	`, id, value))
}

// UpdateProfileParams carries the self-service profile fields.
type UpdateProfileParams struct {
	Phone       *string
	State       *string
	City        *string
	Specialties []string
}

func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, p UpdateProfileParams) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE correspondent_profiles
		SET phone = COALESCE($2, phone),
		    state = COALESCE($3, state),
		    city = COALESCE($4, city),
		    specialties = COALESCE($5, specialties),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING id, user_id, name, phone, state, city, specialties,
		          rating, rating_count, completion_rate, avg_response_time_hours,
		          active, verified, created_at, updated_at
	`, userID, p.Phone, p.State, p.City, p.Specialties))
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Phone, &p.State, &p.City, &p.Specialties,
		&p.Rating, &p.RatingCount, &p.CompletionRate, &p.AvgResponseTimeHours,
		&p.Active, &p.Verified, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

