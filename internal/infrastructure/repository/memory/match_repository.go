package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/match"
)

type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]match.Match
}

func NewMatchRepository(matches []match.Match) *MatchRepository {
	byKey := make(map[string]match.Match, len(matches))
	for _, m := range matches {
		byKey[scopeKey(m)] = m
	}

	return &MatchRepository{matches: byKey}
}

func scopeKey(m match.Match) string {
	return m.LeagueID + "|" + m.Season + "|" + m.IdentityKey()
}

func (r *MatchRepository) ListBySeason(_ context.Context, leagueID, season string) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, m := range r.matches {
		if m.LeagueID == leagueID && m.Season == season {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IdentityKey() < out[j].IdentityKey()
	})
	return out, nil
}

func (r *MatchRepository) Upsert(_ context.Context, m match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertLocked(m)
	return nil
}

func (r *MatchRepository) UpsertMany(_ context.Context, items []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range items {
		r.upsertLocked(m)
	}
	return nil
}

// upsertLocked keys on the scope identity so re-ingesting the same scrape
// updates the existing row in place.
func (r *MatchRepository) upsertLocked(m match.Match) {
	key := scopeKey(m)
	if existing, ok := r.matches[key]; ok {
		m.ID = existing.ID
	}
	r.matches[key] = m
}

func (r *MatchRepository) Deactivate(_ context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, m := range r.matches {
		if m.ID == matchID {
			m.IsActive = false
			r.matches[key] = m
		}
	}
	return nil
}

func (r *MatchRepository) DeactivateMany(ctx context.Context, matchIDs []string) error {
	for _, id := range matchIDs {
		if err := r.Deactivate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored rows. Test helper.
func (r *MatchRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matches)
}
