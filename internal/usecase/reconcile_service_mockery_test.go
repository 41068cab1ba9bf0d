package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rossfreedman/rally-sub003/internal/domain/league"
	leaguemock "github.com/rossfreedman/rally-sub003/internal/mocks/domain/league"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func newReconcileServiceWithLeagueMock(leagueRepo league.Repository) *ReconcileService {
	return NewReconcileService(
		SyncConfig{Enabled: true, BatchSize: 100, NormalizeWorkers: 1},
		nil,
		leagueRepo,
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
		idgen.NewRandomGenerator(),
		logging.NewNop(),
	)
}

func TestReconcileService_ResolveRunTargets_SingleLeagueUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	leagueRepo := leaguemock.NewRepository(t)
	service := newReconcileServiceWithLeagueMock(leagueRepo)

	target := league.League{ID: "apta-chicago", Label: "APTA Chicago", Season: "2025-2026"}
	leagueRepo.
		On("GetByID", mock.Anything, "apta-chicago").
		Return(target, true, nil).
		Once()

	got, err := service.resolveRunTargets(ctx, "apta-chicago")
	if err != nil {
		t.Fatalf("resolve run targets: %v", err)
	}
	if len(got) != 1 || got[0].ID != "apta-chicago" {
		t.Fatalf("unexpected targets: %+v", got)
	}
}

func TestReconcileService_ResolveRunTargets_MissingLeagueUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	leagueRepo := leaguemock.NewRepository(t)
	service := newReconcileServiceWithLeagueMock(leagueRepo)

	leagueRepo.
		On("GetByID", mock.Anything, "missing").
		Return(league.League{}, false, nil).
		Once()

	if _, err := service.resolveRunTargets(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileService_ResolveRunTargets_AllLeaguesSortedUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	leagueRepo := leaguemock.NewRepository(t)
	service := newReconcileServiceWithLeagueMock(leagueRepo)

	leagueRepo.
		On("List", mock.Anything).
		Return([]league.League{
			{ID: "nstf", Label: "North Shore", Season: "2026"},
			{ID: "apta-chicago", Label: "APTA Chicago", Season: "2025-2026"},
		}, nil).
		Once()

	got, err := service.resolveRunTargets(ctx, "")
	if err != nil {
		t.Fatalf("resolve run targets: %v", err)
	}
	if len(got) != 2 || got[0].ID != "apta-chicago" || got[1].ID != "nstf" {
		t.Fatalf("expected targets sorted by id, got %+v", got)
	}
}
