package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
	"github.com/rossfreedman/rally-sub003/internal/infrastructure/repository/memory"
	scrapemock "github.com/rossfreedman/rally-sub003/internal/mocks/domain/scrape"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func newIdentityServiceWithUnresolvedMock(unresolvedRepo scrape.UnresolvedRepository) *IdentityService {
	return NewIdentityService(
		memory.NewPlayerRepository(nil),
		memory.NewStintRepository(nil),
		memory.NewSubAppearanceRepository(),
		memory.NewTrackingRepository(nil),
		unresolvedRepo,
		memory.NewMergeAuditRepository(),
		idgen.NewRandomGenerator(),
		logging.NewNop(),
	)
}

func TestIdentityService_ListUnresolved_SuccessUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	unresolvedRepo := scrapemock.NewUnresolvedRepository(t)
	service := newIdentityServiceWithUnresolvedMock(unresolvedRepo)

	expected := []scrape.UnresolvedRecord{
		{
			ID:       "u-1",
			LeagueID: "apta-chicago",
			RawName:  "Jane Doe(S)",
			Reason:   "missing external identity key",
			SeenAt:   time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
		},
	}

	unresolvedRepo.
		On("ListByLeague", mock.Anything, "apta-chicago").
		Return(expected, nil).
		Once()

	got, err := service.ListUnresolved(ctx, "apta-chicago")
	if err != nil {
		t.Fatalf("list unresolved: %v", err)
	}
	if len(got) != 1 || got[0].ID != "u-1" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestIdentityService_ListUnresolved_RepoErrorUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	unresolvedRepo := scrapemock.NewUnresolvedRepository(t)
	service := newIdentityServiceWithUnresolvedMock(unresolvedRepo)

	repoErr := errors.New("connection reset")
	unresolvedRepo.
		On("ListByLeague", mock.Anything, "apta-chicago").
		Return(nil, repoErr).
		Once()

	if _, err := service.ListUnresolved(ctx, "apta-chicago"); !errors.Is(err, repoErr) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestIdentityService_ListUnresolved_RequiresLeagueID(t *testing.T) {
	t.Parallel()

	unresolvedRepo := scrapemock.NewUnresolvedRepository(t)
	service := newIdentityServiceWithUnresolvedMock(unresolvedRepo)

	if _, err := service.ListUnresolved(context.Background(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
