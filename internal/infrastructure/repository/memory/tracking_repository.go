package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/tracking"
)

type TrackingRepository struct {
	mu   sync.RWMutex
	rows map[string]tracking.Record
}

func NewTrackingRepository(rows []tracking.Record) *TrackingRepository {
	byKey := make(map[string]tracking.Record, len(rows))
	for _, row := range rows {
		byKey[trackingKey(row)] = row
	}

	return &TrackingRepository{rows: byKey}
}

// trackingKey is (player, team, date, kind): the same person's tracking on
// two teams lives in two rows.
func trackingKey(row tracking.Record) string {
	return row.PlayerID + "|" + row.TeamID + "|" + row.TrackedOn.Format("2006-01-02") + "|" + string(row.Kind)
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (r *TrackingRepository) ListForPlayerTeamOn(_ context.Context, playerID, teamID string, on time.Time) ([]tracking.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tracking.Record, 0)
	for _, row := range r.rows {
		if row.PlayerID == playerID && row.TeamID == teamID && sameDay(row.TrackedOn, on) {
			out = append(out, row)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

func (r *TrackingRepository) ListByTeam(_ context.Context, teamID string, from, to time.Time) ([]tracking.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tracking.Record, 0)
	for _, row := range r.rows {
		if row.TeamID != teamID {
			continue
		}
		if row.TrackedOn.Before(from) || row.TrackedOn.After(to) {
			continue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TrackedOn.Equal(out[j].TrackedOn) {
			return out[i].TrackedOn.Before(out[j].TrackedOn)
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

func (r *TrackingRepository) Upsert(_ context.Context, row tracking.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := trackingKey(row)
	if existing, ok := r.rows[key]; ok {
		row.ID = existing.ID
	}
	r.rows[key] = row
	return nil
}

func (r *TrackingRepository) Repoint(_ context.Context, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, row := range r.rows {
		if row.PlayerID != fromPlayerID {
			continue
		}
		delete(r.rows, key)
		row.PlayerID = toPlayerID
		newKey := trackingKey(row)
		if _, exists := r.rows[newKey]; !exists {
			r.rows[newKey] = row
		}
	}
	return nil
}

func (r *TrackingRepository) ListMissingTeam(_ context.Context) ([]tracking.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tracking.Record, 0)
	for _, row := range r.rows {
		if row.TeamID == "" {
			out = append(out, row)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TrackingRepository) AssignTeam(_ context.Context, recordID, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, row := range r.rows {
		if row.ID != recordID {
			continue
		}
		delete(r.rows, key)
		row.TeamID = teamID
		r.rows[trackingKey(row)] = row
	}
	return nil
}

func (r *TrackingRepository) FlagForReview(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, row := range r.rows {
		if row.ID == recordID {
			row.NeedsReview = true
			r.rows[key] = row
		}
	}
	return nil
}

// Count returns the number of stored rows. Test helper.
func (r *TrackingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rows)
}
