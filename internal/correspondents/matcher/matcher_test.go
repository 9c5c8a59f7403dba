package matcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func candidate(mut func(*Profile)) Profile {
	p := Profile{
		ID:                   uuid.New(),
		State:                "SP",
		City:                 "Sao Paulo",
		Specialties:          []string{"civil"},
		Rating:               4.0,
		CompletionRate:       90,
		AvgResponseTimeHours: 6,
		Active:               true,
		Verified:             true,
	}
	if mut != nil {
		mut(&p)
	}
	return p
}

func TestFindBestEmptyPoolReturnsNone(t *testing.T) {
	if _, ok := FindBest(nil, Criteria{State: "SP"}, DefaultWeights); ok {
		t.Error("empty pool produced a match")
	}

	// A pool where every candidate is filtered out behaves the same.
	pool := []Profile{
		candidate(func(p *Profile) { p.Verified = false }),
		candidate(func(p *Profile) { p.Active = false }),
		candidate(func(p *Profile) { p.State = "RJ" }),
	}
	if _, ok := FindBest(pool, Criteria{State: "SP"}, DefaultWeights); ok {
		t.Error("fully filtered pool produced a match")
	}
}

func TestFindBestTieBreaksOnResponseTime(t *testing.T) {
	// Identical candidates except response time, scored with weights that
	// ignore response time: scores tie, lower response time wins.
	w := Weights{Rating: 0.5, ResponseTime: 0, CompletionRate: 0.3, Specialty: 0.2}
	fast := candidate(func(p *Profile) { p.AvgResponseTimeHours = 2 })
	slow := candidate(func(p *Profile) { p.AvgResponseTimeHours = 10 })

	best, ok := FindBest([]Profile{slow, fast}, Criteria{State: "SP", Specialties: []string{"civil"}}, w)
	if !ok {
		t.Fatal("no match")
	}
	if best.ID != fast.ID {
		t.Error("tie not broken by lower response time")
	}
}

func TestFindBestTieBreaksOnLoad(t *testing.T) {
	w := Weights{Rating: 0.5, ResponseTime: 0, CompletionRate: 0.3, Specialty: 0.2}
	busy := candidate(func(p *Profile) { p.ActiveDiligences = 7 })
	idle := candidate(func(p *Profile) { p.ActiveDiligences = 1 })

	best, ok := FindBest([]Profile{busy, idle}, Criteria{State: "SP"}, w)
	if !ok {
		t.Fatal("no match")
	}
	if best.ID != idle.ID {
		t.Error("tie not broken by lighter load")
	}
}

func TestFindBestPrefersHigherScore(t *testing.T) {
	strong := candidate(func(p *Profile) { p.Rating = 5; p.CompletionRate = 100 })
	weak := candidate(func(p *Profile) { p.Rating = 3; p.CompletionRate = 60 })

	best, ok := FindBest([]Profile{weak, strong}, Criteria{State: "SP", Specialties: []string{"civil"}}, DefaultWeights)
	if !ok {
		t.Fatal("no match")
	}
	if best.ID != strong.ID {
		t.Error("higher-scoring candidate not selected")
	}
}

func TestFindBestFilters(t *testing.T) {
	excludedID := uuid.New()
	tests := []struct {
		name     string
		pool     []Profile
		criteria Criteria
		want     bool
	}{
		{
			name:     "min rating floor",
			pool:     []Profile{candidate(func(p *Profile) { p.Rating = 3.5 })},
			criteria: Criteria{State: "SP", MinRating: 4},
			want:     false,
		},
		{
			name:     "max response time ceiling",
			pool:     []Profile{candidate(func(p *Profile) { p.AvgResponseTimeHours = 30 })},
			criteria: Criteria{State: "SP", MaxResponseTimeHours: 12},
			want:     false,
		},
		{
			name:     "excluded id",
			pool:     []Profile{candidate(func(p *Profile) { p.ID = excludedID })},
			criteria: Criteria{State: "SP", Excluded: []uuid.UUID{excludedID}},
			want:     false,
		},
		{
			name:     "accent-folded city match",
			pool:     []Profile{candidate(func(p *Profile) { p.City = "São Paulo" })},
			criteria: Criteria{State: "SP", City: "sao paulo"},
			want:     true,
		},
		{
			name:     "city mismatch",
			pool:     []Profile{candidate(nil)},
			criteria: Criteria{State: "SP", City: "Campinas"},
			want:     false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := FindBest(tc.pool, tc.criteria, DefaultWeights)
			if ok != tc.want {
				t.Errorf("match = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestScoreResponseClamp(t *testing.T) {
	slow := candidate(func(p *Profile) { p.AvgResponseTimeHours = 48 })
	w := Weights{ResponseTime: 1}
	if got := Score(slow, Criteria{}, w); got != 0 {
		t.Errorf("score = %v, want 0 for response time past the horizon", got)
	}
	instant := candidate(func(p *Profile) { p.AvgResponseTimeHours = 0 })
	if got := Score(instant, Criteria{}, w); got != 1 {
		t.Errorf("score = %v, want 1 for immediate response", got)
	}
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	if err := os.WriteFile(path, []byte("rating: 0.7\nresponseTime: 0.1\ncompletionRate: 0.1\nspecialty: 0.1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	if w.Rating != 0.7 {
		t.Errorf("rating weight = %v, want 0.7", w.Rating)
	}

	w, err = LoadWeights("")
	if err != nil || w != DefaultWeights {
		t.Errorf("empty path should return defaults, got %+v err %v", w, err)
	}
}
