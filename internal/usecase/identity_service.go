package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
	"github.com/rossfreedman/rally-sub003/internal/domain/tracking"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

// IdentityService resolves raw scraped records to canonical players and
// repairs historical duplicate rows. The external identity key is the only
// matching signal; no fuzzy name matching happens anywhere in here.
type IdentityService struct {
	playerRepo     player.Repository
	stintRepo      player.StintRepository
	subRepo        player.SubAppearanceRepository
	trackingRepo   tracking.Repository
	unresolvedRepo scrape.UnresolvedRepository
	auditRepo      player.MergeAuditRepository
	idGen          idgen.Generator
	logger         *logging.Logger
	now            func() time.Time
}

func NewIdentityService(
	playerRepo player.Repository,
	stintRepo player.StintRepository,
	subRepo player.SubAppearanceRepository,
	trackingRepo tracking.Repository,
	unresolvedRepo scrape.UnresolvedRepository,
	auditRepo player.MergeAuditRepository,
	idGen idgen.Generator,
	logger *logging.Logger,
) *IdentityService {
	if logger == nil {
		logger = logging.Default()
	}

	return &IdentityService{
		playerRepo:     playerRepo,
		stintRepo:      stintRepo,
		subRepo:        subRepo,
		trackingRepo:   trackingRepo,
		unresolvedRepo: unresolvedRepo,
		auditRepo:      auditRepo,
		idGen:          idGen,
		logger:         logger,
		now:            time.Now,
	}
}

// Resolve maps one raw record to a canonical player. The returned bool is
// false when the record was parked as unresolved (no external key); parking
// is a reported outcome, not an error, so the batch keeps going.
func (s *IdentityService) Resolve(ctx context.Context, leagueID string, rec scrape.RawPlayerRecord) (player.Player, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Resolve")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return player.Player{}, false, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	name, isSub := scrape.NormalizeName(rec.RawName)
	key := strings.TrimSpace(rec.ExternalKey)
	if key == "" {
		if err := s.parkUnresolved(ctx, leagueID, rec, "missing external identity key"); err != nil {
			return player.Player{}, false, err
		}
		s.logger.WarnContext(ctx, "parked unresolved record",
			"league_id", leagueID,
			"raw_name", rec.RawName,
			"team_label", rec.TeamLabel,
		)
		return player.Player{}, false, nil
	}

	now := s.now().UTC()
	existing, found, err := s.playerRepo.GetActiveByKey(ctx, leagueID, key)
	if err != nil {
		return player.Player{}, false, fmt.Errorf("get player by key league=%s: %w", leagueID, err)
	}

	if !found {
		resolved, err := s.createPlayer(ctx, leagueID, key, name, rec, now)
		if err != nil {
			return player.Player{}, false, err
		}
		if isSub {
			if err := s.recordSubAppearance(ctx, resolved.ID, rec.TeamLabel, now); err != nil {
				return player.Player{}, false, err
			}
		}
		return resolved, true, nil
	}

	if isSub {
		// A substitute observation never reassigns the primary team; it
		// only records the fill-in appearance against the visited team.
		if err := s.recordSubAppearance(ctx, existing.ID, rec.TeamLabel, now); err != nil {
			return player.Player{}, false, err
		}
		updated, err := s.applyMutableFields(ctx, existing, name, rec, false, now)
		if err != nil {
			return player.Player{}, false, err
		}
		return updated, true, nil
	}

	updated, err := s.applyMutableFields(ctx, existing, name, rec, true, now)
	if err != nil {
		return player.Player{}, false, err
	}
	return updated, true, nil
}

// ResolveCandidate maps one raw record to the canonical row it implies
// without writing the player row itself; the change detector and applier
// decide what actually hits the store. Parking is still recorded unless
// record is false (dry runs). Substitute appearances are the caller's to
// register via RegisterSubAppearance once the implied row is persisted, so
// a substitute-marked record that is the first observation of its key is
// not lost.
func (s *IdentityService) ResolveCandidate(ctx context.Context, leagueID string, rec scrape.RawPlayerRecord, record bool) (player.Player, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.ResolveCandidate")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return player.Player{}, false, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	name, isSub := scrape.NormalizeName(rec.RawName)
	key := strings.TrimSpace(rec.ExternalKey)
	if key == "" {
		if record {
			if err := s.parkUnresolved(ctx, leagueID, rec, "missing external identity key"); err != nil {
				return player.Player{}, false, err
			}
		}
		return player.Player{}, false, nil
	}

	now := s.now().UTC()
	existing, found, err := s.playerRepo.GetActiveByKey(ctx, leagueID, key)
	if err != nil {
		return player.Player{}, false, fmt.Errorf("get player by key league=%s: %w", leagueID, err)
	}

	if !found {
		candidate, err := s.buildNewPlayer(leagueID, key, name, rec, now)
		if err != nil {
			return player.Player{}, false, err
		}
		return candidate, true, nil
	}

	candidate := mergeMutableFields(existing, name, rec, !isSub, now)
	return candidate, true, nil
}

func (s *IdentityService) buildNewPlayer(
	leagueID, key, name string,
	rec scrape.RawPlayerRecord,
	now time.Time,
) (player.Player, error) {
	playerID, err := s.idGen.NewID()
	if err != nil {
		return player.Player{}, fmt.Errorf("generate player id: %w", err)
	}

	p := player.Player{
		ID:          playerID,
		LeagueID:    leagueID,
		ExternalKey: key,
		Name:        name,
		Series:      strings.TrimSpace(rec.Series),
		TeamID:      strings.TrimSpace(rec.TeamLabel),
		IsActive:    !rec.Inactive,
		FirstSeenAt: now,
		UpdatedAt:   now,
	}
	if rec.Rating != nil {
		p.Rating = *rec.Rating
	}
	if rank, ok := player.ParseSeriesRank(p.Series); ok {
		p.SeriesRank = rank
	}
	if err := p.Validate(); err != nil {
		return player.Player{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return p, nil
}

// mergeMutableFields folds a record's observed fields into the existing
// row. Substitute observations never reassign the primary team.
func mergeMutableFields(existing player.Player, name string, rec scrape.RawPlayerRecord, updateTeam bool, now time.Time) player.Player {
	next := existing
	if name != "" {
		next.Name = name
	}
	if rec.Rating != nil {
		next.Rating = *rec.Rating
	}
	if series := strings.TrimSpace(rec.Series); series != "" {
		next.Series = series
		if rank, ok := player.ParseSeriesRank(series); ok {
			next.SeriesRank = rank
		}
	}
	if team := strings.TrimSpace(rec.TeamLabel); updateTeam && team != "" {
		next.TeamID = team
	}
	if next != existing {
		next.UpdatedAt = now
	}
	return next
}

func (s *IdentityService) createPlayer(
	ctx context.Context,
	leagueID, key, name string,
	rec scrape.RawPlayerRecord,
	now time.Time,
) (player.Player, error) {
	p, err := s.buildNewPlayer(leagueID, key, name, rec, now)
	if err != nil {
		return player.Player{}, err
	}

	if err := s.playerRepo.Upsert(ctx, p); err != nil {
		return player.Player{}, fmt.Errorf("upsert player league=%s key=%s: %w", leagueID, key, err)
	}
	if p.TeamID != "" {
		if err := s.openStint(ctx, p.ID, p.TeamID, now); err != nil {
			return player.Player{}, err
		}
	}

	return p, nil
}

func (s *IdentityService) applyMutableFields(
	ctx context.Context,
	existing player.Player,
	name string,
	rec scrape.RawPlayerRecord,
	updateTeam bool,
	now time.Time,
) (player.Player, error) {
	next := mergeMutableFields(existing, name, rec, updateTeam, now)
	if next == existing {
		return existing, nil
	}

	if err := s.playerRepo.Upsert(ctx, next); err != nil {
		return player.Player{}, fmt.Errorf("update player id=%s: %w", existing.ID, err)
	}

	if next.TeamID != existing.TeamID {
		if err := s.stintRepo.CloseOpen(ctx, existing.ID, now); err != nil {
			return player.Player{}, fmt.Errorf("close team stint player=%s: %w", existing.ID, err)
		}
		if err := s.openStint(ctx, existing.ID, next.TeamID, now); err != nil {
			return player.Player{}, err
		}
	}

	return next, nil
}

func (s *IdentityService) openStint(ctx context.Context, playerID, teamID string, now time.Time) error {
	stintID, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate stint id: %w", err)
	}
	if err := s.stintRepo.Open(ctx, player.TeamStint{
		ID:        stintID,
		PlayerID:  playerID,
		TeamID:    teamID,
		StartedAt: now,
	}); err != nil {
		return fmt.Errorf("open team stint player=%s team=%s: %w", playerID, teamID, err)
	}
	return nil
}

// RegisterSubAppearance records one fill-in observation against the
// visited team. The store keys appearances per (player, team, day), so
// replaying a scrape run never double-counts.
func (s *IdentityService) RegisterSubAppearance(ctx context.Context, playerID, teamLabel string) error {
	return s.recordSubAppearance(ctx, playerID, teamLabel, s.now().UTC())
}

func (s *IdentityService) recordSubAppearance(ctx context.Context, playerID, teamLabel string, now time.Time) error {
	team := strings.TrimSpace(teamLabel)
	if team == "" {
		return fmt.Errorf("%w: substitute record is missing a team label", ErrInvalidInput)
	}

	appearanceID, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate appearance id: %w", err)
	}
	if err := s.subRepo.Record(ctx, player.SubAppearance{
		ID:       appearanceID,
		PlayerID: playerID,
		TeamID:   team,
		SeenAt:   now,
	}); err != nil {
		return fmt.Errorf("record sub appearance player=%s team=%s: %w", playerID, team, err)
	}
	return nil
}

func (s *IdentityService) parkUnresolved(ctx context.Context, leagueID string, rec scrape.RawPlayerRecord, reason string) error {
	recordID, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate unresolved record id: %w", err)
	}
	if err := s.unresolvedRepo.Park(ctx, scrape.UnresolvedRecord{
		ID:        recordID,
		LeagueID:  leagueID,
		RawName:   rec.RawName,
		TeamLabel: rec.TeamLabel,
		Reason:    reason,
		SeenAt:    s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("park unresolved record league=%s: %w", leagueID, err)
	}
	return nil
}

// MergeReport lists every proposed or executed merge plus the duplicate
// groups that were too ambiguous to touch. Dry-run and live repair share
// this shape so operators review exactly what will be applied.
type MergeReport struct {
	LeagueID  string               `json:"league_id"`
	DryRun    bool                 `json:"dry_run"`
	Merges    []player.MergeAudit  `json:"merges"`
	Ambiguous []AmbiguousDuplicate `json:"ambiguous,omitempty"`
}

// AmbiguousDuplicate is a duplicate group the repair refused to merge
// automatically. All member rows stay active.
type AmbiguousDuplicate struct {
	ExternalKey string   `json:"external_key"`
	PlayerIDs   []string `json:"player_ids"`
	Reason      string   `json:"reason"`
}

// RepairDuplicates finds pairs of active rows sharing one external key (a
// historical defect: one plain row, one substitute-tagged row) and merges
// them. The substitute-tagged row is deactivated and its tracking rows and
// sub appearances are re-pointed at the kept row. Matching is strict key
// equality; groups without exactly one plain and one tagged row are
// reported, not merged.
func (s *IdentityService) RepairDuplicates(ctx context.Context, leagueID string, dryRun bool) (MergeReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.RepairDuplicates")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return MergeReport{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	active, err := s.playerRepo.ListActiveByLeague(ctx, leagueID)
	if err != nil {
		return MergeReport{}, fmt.Errorf("list active players league=%s: %w", leagueID, err)
	}

	groups := make(map[string][]player.Player)
	for _, p := range active {
		groups[p.ExternalKey] = append(groups[p.ExternalKey], p)
	}

	keys := make([]string, 0, len(groups))
	for key, members := range groups {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	report := MergeReport{
		LeagueID: leagueID,
		DryRun:   dryRun,
		Merges:   make([]player.MergeAudit, 0, len(keys)),
	}
	now := s.now().UTC()

	for _, key := range keys {
		keep, drop, ok := pickMergePair(groups[key])
		if !ok {
			report.Ambiguous = append(report.Ambiguous, AmbiguousDuplicate{
				ExternalKey: key,
				PlayerIDs:   sortedPlayerIDs(groups[key]),
				Reason:      "no single substitute-tagged row to fold into the plain row",
			})
			s.logger.WarnContext(ctx, "ambiguous duplicate left active",
				"league_id", leagueID,
				"external_key", key,
				"row_count", len(groups[key]),
			)
			continue
		}

		auditID, err := s.idGen.NewID()
		if err != nil {
			return MergeReport{}, fmt.Errorf("generate merge audit id: %w", err)
		}
		audit := player.MergeAudit{
			ID:          auditID,
			LeagueID:    leagueID,
			ExternalKey: key,
			KeptID:      keep.ID,
			DroppedID:   drop.ID,
			DryRun:      dryRun,
			PerformedAt: now,
		}
		report.Merges = append(report.Merges, audit)

		if dryRun {
			continue
		}

		if err := s.subRepo.Repoint(ctx, drop.ID, keep.ID); err != nil {
			return MergeReport{}, fmt.Errorf("repoint sub appearances from=%s to=%s: %w", drop.ID, keep.ID, err)
		}
		if err := s.trackingRepo.Repoint(ctx, drop.ID, keep.ID); err != nil {
			return MergeReport{}, fmt.Errorf("repoint tracking rows from=%s to=%s: %w", drop.ID, keep.ID, err)
		}
		if err := s.playerRepo.Deactivate(ctx, drop.ID); err != nil {
			return MergeReport{}, fmt.Errorf("deactivate duplicate player id=%s: %w", drop.ID, err)
		}
		if err := s.auditRepo.Record(ctx, audit); err != nil {
			return MergeReport{}, fmt.Errorf("record merge audit kept=%s dropped=%s: %w", keep.ID, drop.ID, err)
		}

		s.logger.InfoContext(ctx, "merged duplicate player rows",
			"league_id", leagueID,
			"external_key", key,
			"kept_id", keep.ID,
			"dropped_id", drop.ID,
		)
	}

	return report, nil
}

// ListUnresolved returns the parked records for operator review.
func (s *IdentityService) ListUnresolved(ctx context.Context, leagueID string) ([]scrape.UnresolvedRecord, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.ListUnresolved")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return nil, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	records, err := s.unresolvedRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list unresolved records league=%s: %w", leagueID, err)
	}
	return records, nil
}

// pickMergePair is only confident when the group is exactly one plain row
// plus one substitute-tagged row. Anything else is ambiguous.
func pickMergePair(members []player.Player) (keep, drop player.Player, ok bool) {
	if len(members) != 2 {
		return player.Player{}, player.Player{}, false
	}

	var plain, tagged []player.Player
	for _, p := range members {
		if _, isSub := scrape.NormalizeName(p.Name); isSub {
			tagged = append(tagged, p)
		} else {
			plain = append(plain, p)
		}
	}
	if len(plain) != 1 || len(tagged) != 1 {
		return player.Player{}, player.Player{}, false
	}
	return plain[0], tagged[0], true
}

func sortedPlayerIDs(members []player.Player) []string {
	ids := make([]string, 0, len(members))
	for _, p := range members {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}
