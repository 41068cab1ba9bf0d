package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	"github.com/rossfreedman/rally-sub003/internal/domain/tracking"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

// TrackingService is the only path to season tracking data. Every read and
// write takes a team id; a team-less tracking query is a programming error
// and fails with ErrInvalidInput before touching the store.
type TrackingService struct {
	trackingRepo tracking.Repository
	stintRepo    player.StintRepository
	idGen        idgen.Generator
	logger       *logging.Logger
	now          func() time.Time
}

func NewTrackingService(
	trackingRepo tracking.Repository,
	stintRepo player.StintRepository,
	idGen idgen.Generator,
	logger *logging.Logger,
) *TrackingService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TrackingService{
		trackingRepo: trackingRepo,
		stintRepo:    stintRepo,
		idGen:        idGen,
		logger:       logger,
		now:          time.Now,
	}
}

// SetTrackingInput is one tracking write. Kind none is stored as an
// explicit row so one team's clearing never masks another team's status.
type SetTrackingInput struct {
	PlayerID  string
	TeamID    string
	TrackedOn time.Time
	Kind      tracking.Kind
}

func (s *TrackingService) SetStatus(ctx context.Context, input SetTrackingInput) (tracking.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.SetStatus")
	defer span.End()

	input.PlayerID = strings.TrimSpace(input.PlayerID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.PlayerID == "" {
		return tracking.Record{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if input.TeamID == "" {
		return tracking.Record{}, fmt.Errorf("%w: team id is required for tracking writes", ErrInvalidInput)
	}
	if input.TrackedOn.IsZero() {
		return tracking.Record{}, fmt.Errorf("%w: tracked date is required", ErrInvalidInput)
	}

	rowID, err := s.idGen.NewID()
	if err != nil {
		return tracking.Record{}, fmt.Errorf("generate tracking row id: %w", err)
	}
	row := tracking.Record{
		ID:        rowID,
		PlayerID:  input.PlayerID,
		TeamID:    input.TeamID,
		TrackedOn: input.TrackedOn,
		Kind:      input.Kind,
		UpdatedAt: s.now().UTC(),
	}
	if err := row.Validate(); err != nil {
		return tracking.Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.trackingRepo.Upsert(ctx, row); err != nil {
		return tracking.Record{}, fmt.Errorf("upsert tracking row player=%s team=%s: %w", input.PlayerID, input.TeamID, err)
	}
	return row, nil
}

// StatusFor returns the tracking rows for one player on one team on one
// date. Rows for the same player on other teams are invisible here.
func (s *TrackingService) StatusFor(ctx context.Context, playerID, teamID string, on time.Time) ([]tracking.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.StatusFor")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	teamID = strings.TrimSpace(teamID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required for tracking reads", ErrInvalidInput)
	}

	rows, err := s.trackingRepo.ListForPlayerTeamOn(ctx, playerID, teamID, on)
	if err != nil {
		return nil, fmt.Errorf("list tracking rows player=%s team=%s: %w", playerID, teamID, err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Kind < rows[j].Kind
	})
	return rows, nil
}

// TeamHistory returns a team's tracking rows within a date window.
func (s *TrackingService) TeamHistory(ctx context.Context, teamID string, from, to time.Time) ([]tracking.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.TeamHistory")
	defer span.End()

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required for tracking reads", ErrInvalidInput)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date window is inverted", ErrInvalidInput)
	}

	rows, err := s.trackingRepo.ListByTeam(ctx, teamID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list team tracking rows team=%s: %w", teamID, err)
	}
	return rows, nil
}

const (
	backfillStatusAssigned = "assigned"
	backfillStatusFlagged  = "flagged"
)

// BackfillRow is the outcome for one legacy tracking row.
type BackfillRow struct {
	RecordID string `json:"record_id"`
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id,omitempty"`
	Status   string `json:"status"`
}

// BackfillReport summarizes one team-scope backfill pass.
type BackfillReport struct {
	DryRun   bool          `json:"dry_run"`
	Assigned int           `json:"assigned"`
	Flagged  int           `json:"flagged"`
	Rows     []BackfillRow `json:"rows"`
}

// BackfillTeamScope assigns a team to every legacy tracking row that lacks
// one. The team is the player's affiliation at the row's date, read from
// stint history, never the present-day affiliation. Rows with zero or
// several covering stints are flagged for manual resolution and do not
// block the rest of the pass.
func (s *TrackingService) BackfillTeamScope(ctx context.Context, dryRun bool) (BackfillReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.BackfillTeamScope")
	defer span.End()

	rows, err := s.trackingRepo.ListMissingTeam(ctx)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("list tracking rows missing team: %w", err)
	}

	report := BackfillReport{
		DryRun: dryRun,
		Rows:   make([]BackfillRow, 0, len(rows)),
	}

	for _, row := range rows {
		stints, err := s.stintRepo.ListCovering(ctx, row.PlayerID, row.TrackedOn)
		if err != nil {
			return BackfillReport{}, fmt.Errorf("list covering stints player=%s: %w", row.PlayerID, err)
		}

		if len(stints) != 1 {
			if !dryRun {
				if err := s.trackingRepo.FlagForReview(ctx, row.ID); err != nil {
					return BackfillReport{}, fmt.Errorf("flag tracking row id=%s: %w", row.ID, err)
				}
			}
			report.Flagged++
			report.Rows = append(report.Rows, BackfillRow{
				RecordID: row.ID,
				PlayerID: row.PlayerID,
				Status:   backfillStatusFlagged,
			})
			s.logger.WarnContext(ctx, "tracking row needs manual team resolution",
				"record_id", row.ID,
				"player_id", row.PlayerID,
				"covering_stints", len(stints),
			)
			continue
		}

		teamID := stints[0].TeamID
		if !dryRun {
			if err := s.trackingRepo.AssignTeam(ctx, row.ID, teamID); err != nil {
				return BackfillReport{}, fmt.Errorf("assign team to tracking row id=%s: %w", row.ID, err)
			}
		}
		report.Assigned++
		report.Rows = append(report.Rows, BackfillRow{
			RecordID: row.ID,
			PlayerID: row.PlayerID,
			TeamID:   teamID,
			Status:   backfillStatusAssigned,
		})
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].RecordID < report.Rows[j].RecordID
	})
	return report, nil
}
