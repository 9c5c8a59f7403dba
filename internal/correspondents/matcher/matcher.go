// Package matcher selects the best correspondent for a diligence. FindBest
// is pure: it never touches persistence, so callers may feed it a snapshot
// pool and unit tests a synthetic one.
package matcher

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"jurisconnect_backend/platform/textnorm"
)

// Profile is the read-only candidate view the matcher scores.
type Profile struct {
	ID                   uuid.UUID
	State                string
	City                 string
	Specialties          []string
	Rating               float64 // 0..5
	CompletionRate       float64 // 0..100
	AvgResponseTimeHours float64
	Active               bool
	Verified             bool
	ActiveDiligences     int
}

// Criteria narrows and ranks the candidate pool. Zero-valued floors are
// treated as unset.
type Criteria struct {
	State                string
	City                 string
	Specialties          []string
	MinRating            float64
	MaxResponseTimeHours float64
	Excluded             []uuid.UUID
}

// Weights are the scoring coefficients. They sum to 1 in the default
// policy but the matcher does not require that.
type Weights struct {
	Rating         float64 `yaml:"rating"`
	ResponseTime   float64 `yaml:"responseTime"`
	CompletionRate float64 `yaml:"completionRate"`
	Specialty      float64 `yaml:"specialty"`
}

// DefaultWeights is the standing scoring policy.
var DefaultWeights = Weights{
	Rating:         0.4,
	ResponseTime:   0.2,
	CompletionRate: 0.2,
	Specialty:      0.2,
}

// LoadWeights reads a weights override file. A missing path returns the
// defaults.
func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultWeights, fmt.Errorf("read weights file: %w", err)
	}
	w := DefaultWeights
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return DefaultWeights, fmt.Errorf("parse weights file: %w", err)
	}
	return w, nil
}

// responseTimeHorizon is the response time, in hours, past which the
// response factor bottoms out at zero.
const responseTimeHorizon = 24.0

// Score computes the weighted score of one candidate against the criteria.
func Score(p Profile, c Criteria, w Weights) float64 {
	response := (responseTimeHorizon - p.AvgResponseTimeHours) / responseTimeHorizon
	if response < 0 {
		response = 0
	}
	if response > 1 {
		response = 1
	}

	specialty := 0.0
	for _, want := range c.Specialties {
		for _, has := range p.Specialties {
			if textnorm.EqualFold(want, has) {
				specialty = 1
				break
			}
		}
	}

	return w.Rating*(p.Rating/5) +
		w.ResponseTime*response +
		w.CompletionRate*(p.CompletionRate/100) +
		w.Specialty*specialty
}

// FindBest filters the pool and returns the highest-scoring candidate, or
// false when nobody qualifies. Ties go to the lower response time, then the
// lighter active diligence load.
func FindBest(pool []Profile, c Criteria, w Weights) (Profile, bool) {
	excluded := make(map[uuid.UUID]struct{}, len(c.Excluded))
	for _, id := range c.Excluded {
		excluded[id] = struct{}{}
	}

	var candidates []Profile
	for _, p := range pool {
		if !p.Active || !p.Verified {
			continue
		}
		if _, skip := excluded[p.ID]; skip {
			continue
		}
		if !textnorm.EqualFold(p.State, c.State) {
			continue
		}
		if c.City != "" && !textnorm.EqualFold(p.City, c.City) {
			continue
		}
		if c.MinRating > 0 && p.Rating < c.MinRating {
			continue
		}
		if c.MaxResponseTimeHours > 0 && p.AvgResponseTimeHours > c.MaxResponseTimeHours {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return Profile{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := Score(candidates[i], c, w), Score(candidates[j], c, w)
		if si != sj {
			return si > sj
		}
		if candidates[i].AvgResponseTimeHours != candidates[j].AvgResponseTimeHours {
			return candidates[i].AvgResponseTimeHours < candidates[j].AvgResponseTimeHours
		}
		return candidates[i].ActiveDiligences < candidates[j].ActiveDiligences
	})
	return candidates[0], true
}
