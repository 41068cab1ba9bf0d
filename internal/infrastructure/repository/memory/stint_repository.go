package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

type StintRepository struct {
	mu     sync.RWMutex
	stints []player.TeamStint
}

func NewStintRepository(stints []player.TeamStint) *StintRepository {
	out := make([]player.TeamStint, len(stints))
	copy(out, stints)

	return &StintRepository{stints: out}
}

func (r *StintRepository) ListByPlayer(_ context.Context, playerID string) ([]player.TeamStint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.TeamStint, 0)
	for _, s := range r.stints {
		if s.PlayerID == playerID {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (r *StintRepository) ListCovering(_ context.Context, playerID string, at time.Time) ([]player.TeamStint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.TeamStint, 0)
	for _, s := range r.stints {
		if s.PlayerID == playerID && s.Covers(at) {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Open keeps at most one open stint per player, mirroring the store's
// partial unique index: a player with an open stint is left untouched.
func (r *StintRepository) Open(_ context.Context, stint player.TeamStint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.stints {
		if s.PlayerID == stint.PlayerID && s.EndedAt == nil {
			return nil
		}
	}
	r.stints = append(r.stints, stint)
	return nil
}

func (r *StintRepository) CloseOpen(_ context.Context, playerID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.stints {
		if s.PlayerID == playerID && s.EndedAt == nil {
			ended := at
			r.stints[i].EndedAt = &ended
		}
	}
	return nil
}
