package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

type PlayerRepository struct {
	mu      sync.RWMutex
	players map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	byID := make(map[string]player.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	return &PlayerRepository{players: byID}
}

func (r *PlayerRepository) ListActiveByLeague(_ context.Context, leagueID string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0)
	for _, p := range r.players {
		if p.LeagueID == leagueID && p.IsActive {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExternalKey != out[j].ExternalKey {
			return out[i].ExternalKey < out[j].ExternalKey
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PlayerRepository) GetActiveByKey(_ context.Context, leagueID, externalKey string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		match player.Player
		found bool
	)
	for _, p := range r.players {
		if p.LeagueID != leagueID || p.ExternalKey != externalKey || !p.IsActive {
			continue
		}
		// Oldest row wins when the store still carries duplicates.
		if !found || p.FirstSeenAt.Before(match.FirstSeenAt) {
			match = p
			found = true
		}
	}
	return match, found, nil
}

func (r *PlayerRepository) ListActiveByKey(_ context.Context, leagueID, externalKey string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0)
	for _, p := range r.players {
		if p.LeagueID == leagueID && p.ExternalKey == externalKey && p.IsActive {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PlayerRepository) GetByID(_ context.Context, playerID string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[playerID]
	return p, ok, nil
}

func (r *PlayerRepository) Upsert(_ context.Context, p player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertLocked(p)
	return nil
}

func (r *PlayerRepository) UpsertMany(_ context.Context, items []player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range items {
		r.upsertLocked(p)
	}
	return nil
}

// upsertLocked keys on (league, external key) among active rows so a
// replayed create converges onto the existing row instead of duplicating.
func (r *PlayerRepository) upsertLocked(p player.Player) {
	if _, ok := r.players[p.ID]; !ok {
		for id, existing := range r.players {
			if existing.LeagueID == p.LeagueID && existing.ExternalKey == p.ExternalKey && existing.IsActive && p.IsActive {
				p.ID = id
				p.FirstSeenAt = existing.FirstSeenAt
				break
			}
		}
	}
	r.players[p.ID] = p
}

func (r *PlayerRepository) Deactivate(_ context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[playerID]; ok {
		p.IsActive = false
		r.players[playerID] = p
	}
	return nil
}

func (r *PlayerRepository) DeactivateMany(_ context.Context, playerIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range playerIDs {
		if p, ok := r.players[id]; ok {
			p.IsActive = false
			r.players[id] = p
		}
	}
	return nil
}

// All returns every row, active or not. Test helper.
func (r *PlayerRepository) All() []player.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
