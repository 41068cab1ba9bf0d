package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rossfreedman/rally-sub003/internal/domain/subrequest"
)

type SubRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]subrequest.Request
	joins    []subrequest.Join
}

func NewSubRequestRepository(requests []subrequest.Request) *SubRequestRepository {
	byID := make(map[string]subrequest.Request, len(requests))
	for _, req := range requests {
		byID[req.ID] = req
	}

	return &SubRequestRepository{requests: byID}
}

func (r *SubRequestRepository) GetByID(_ context.Context, requestID string) (subrequest.Request, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[requestID]
	return req, ok, nil
}

func (r *SubRequestRepository) CountJoins(_ context.Context, requestID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, j := range r.joins {
		if j.RequestID == requestID {
			count++
		}
	}
	return count, nil
}

func (r *SubRequestRepository) HasJoin(_ context.Context, requestID, playerID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, j := range r.joins {
		if j.RequestID == requestID && j.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *SubRequestRepository) AddJoin(_ context.Context, j subrequest.Join) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.joins {
		if existing.RequestID == j.RequestID && existing.PlayerID == j.PlayerID {
			return nil
		}
	}
	r.joins = append(r.joins, j)
	return nil
}

func (r *SubRequestRepository) ListJoins(_ context.Context, requestID string) ([]subrequest.Join, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]subrequest.Join, 0)
	for _, j := range r.joins {
		if j.RequestID == requestID {
			out = append(out, j)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}
