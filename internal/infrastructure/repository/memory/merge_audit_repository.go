package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

type MergeAuditRepository struct {
	mu     sync.RWMutex
	audits []player.MergeAudit
}

func NewMergeAuditRepository() *MergeAuditRepository {
	return &MergeAuditRepository{}
}

func (r *MergeAuditRepository) Record(_ context.Context, audit player.MergeAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.audits = append(r.audits, audit)
	return nil
}

func (r *MergeAuditRepository) ListByLeague(_ context.Context, leagueID string) ([]player.MergeAudit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.MergeAudit, 0)
	for _, a := range r.audits {
		if a.LeagueID == leagueID {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExternalKey < out[j].ExternalKey
	})
	return out, nil
}
