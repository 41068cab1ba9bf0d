package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
)

type UnresolvedRepository struct {
	mu      sync.RWMutex
	records []scrape.UnresolvedRecord
}

func NewUnresolvedRepository() *UnresolvedRepository {
	return &UnresolvedRepository{}
}

func (r *UnresolvedRepository) Park(_ context.Context, rec scrape.UnresolvedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	return nil
}

func (r *UnresolvedRepository) ListByLeague(_ context.Context, leagueID string) ([]scrape.UnresolvedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scrape.UnresolvedRecord, 0)
	for _, rec := range r.records {
		if rec.LeagueID == leagueID {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SeenAt.Equal(out[j].SeenAt) {
			return out[i].SeenAt.Before(out[j].SeenAt)
		}
		return out[i].RawName < out[j].RawName
	})
	return out, nil
}
