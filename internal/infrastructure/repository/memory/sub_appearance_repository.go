package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

type SubAppearanceRepository struct {
	mu          sync.RWMutex
	appearances map[string]player.SubAppearance
}

func NewSubAppearanceRepository() *SubAppearanceRepository {
	return &SubAppearanceRepository{
		appearances: make(map[string]player.SubAppearance),
	}
}

// Record is keyed on (player, team, date) so replaying a scrape run does
// not double-count a fill-in appearance.
func (r *SubAppearanceRepository) Record(_ context.Context, appearance player.SubAppearance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := appearance.PlayerID + "|" + appearance.TeamID + "|" + appearance.SeenAt.Format("2006-01-02")
	if _, ok := r.appearances[key]; ok {
		return nil
	}
	r.appearances[key] = appearance
	return nil
}

func (r *SubAppearanceRepository) ListByPlayer(_ context.Context, playerID string) ([]player.SubAppearance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.SubAppearance, 0)
	for _, a := range r.appearances {
		if a.PlayerID == playerID {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SeenAt.Equal(out[j].SeenAt) {
			return out[i].SeenAt.Before(out[j].SeenAt)
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (r *SubAppearanceRepository) Repoint(_ context.Context, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, a := range r.appearances {
		if a.PlayerID != fromPlayerID {
			continue
		}
		delete(r.appearances, key)
		a.PlayerID = toPlayerID
		newKey := a.PlayerID + "|" + a.TeamID + "|" + a.SeenAt.Format("2006-01-02")
		if _, exists := r.appearances[newKey]; !exists {
			r.appearances[newKey] = a
		}
	}
	return nil
}
