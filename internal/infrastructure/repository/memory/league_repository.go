package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/league"
)

type LeagueRepository struct {
	mu      sync.RWMutex
	leagues map[string]league.League
}

func NewLeagueRepository(leagues []league.League) *LeagueRepository {
	byID := make(map[string]league.League, len(leagues))
	for _, l := range leagues {
		byID[l.ID] = l
	}

	return &LeagueRepository{leagues: byID}
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.leagues))
	for _, l := range r.leagues {
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leagues[leagueID]
	return l, ok, nil
}

func (r *LeagueRepository) GetByLabel(_ context.Context, label string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.leagues {
		if l.Label == label {
			return l, true, nil
		}
	}
	return league.League{}, false, nil
}
