package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/rossfreedman/rally-sub003/internal/domain/league"
	"github.com/rossfreedman/rally-sub003/internal/domain/match"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
	"github.com/rossfreedman/rally-sub003/internal/domain/tracking"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

// RecordSource is the scrape feed: already-parsed raw records per league.
// Absence of a record is never a deletion signal.
type RecordSource interface {
	FetchPlayers(ctx context.Context, leagueLabel string) ([]scrape.RawPlayerRecord, error)
	FetchMatches(ctx context.Context, leagueLabel string) ([]scrape.RawMatchRecord, error)
	FetchTracking(ctx context.Context, leagueLabel string) ([]scrape.RawTrackingRecord, error)
}

// ScopeLocker serializes writes per (league, season) scope. Two scopes are
// disjoint row sets, so runs for different scopes proceed concurrently.
type ScopeLocker interface {
	WithScopeLock(ctx context.Context, leagueID, season string, fn func(ctx context.Context) error) error
}

// PlayerBatchWriter applies one chunk of player operations in a single
// transaction.
type PlayerBatchWriter interface {
	UpsertMany(ctx context.Context, items []player.Player) error
	DeactivateMany(ctx context.Context, playerIDs []string) error
}

// MatchBatchWriter applies one chunk of match operations in a single
// transaction.
type MatchBatchWriter interface {
	UpsertMany(ctx context.Context, items []match.Match) error
	DeactivateMany(ctx context.Context, matchIDs []string) error
}

// SyncConfig bounds one reconciliation run.
type SyncConfig struct {
	Enabled          bool
	BatchSize        int
	NormalizeWorkers int
}

// ReconcileService drives the full pipeline for a run: fetch, normalize,
// resolve, detect, apply. Applying is transactional per bounded chunk and
// serialized per scope; re-running a failed batch converges because the
// detector always recomputes from current persisted state.
type ReconcileService struct {
	cfg          SyncConfig
	source       RecordSource
	leagueRepo   league.Repository
	playerRepo   player.Repository
	matchRepo    match.Repository
	playerWriter PlayerBatchWriter
	matchWriter  MatchBatchWriter
	trackingRepo tracking.Repository
	identity     *IdentityService
	locker       ScopeLocker
	idGen        idgen.Generator
	logger       *logging.Logger
	now          func() time.Time
}

func NewReconcileService(
	cfg SyncConfig,
	source RecordSource,
	leagueRepo league.Repository,
	playerRepo player.Repository,
	matchRepo match.Repository,
	playerWriter PlayerBatchWriter,
	matchWriter MatchBatchWriter,
	trackingRepo tracking.Repository,
	identity *IdentityService,
	locker ScopeLocker,
	idGen idgen.Generator,
	logger *logging.Logger,
) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ReconcileService{
		cfg:          cfg,
		source:       source,
		leagueRepo:   leagueRepo,
		playerRepo:   playerRepo,
		matchRepo:    matchRepo,
		playerWriter: playerWriter,
		matchWriter:  matchWriter,
		trackingRepo: trackingRepo,
		identity:     identity,
		locker:       locker,
		idGen:        idGen,
		logger:       logger,
		now:          time.Now,
	}
}

// ApplyStats counts what one apply pass actually did.
type ApplyStats struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
}

func (a ApplyStats) Total() int {
	return a.Created + a.Updated + a.Deactivated
}

// ApplyPlayerChanges executes a player operation list against the store.
// Chunks are bounded by SyncConfig.BatchSize; each chunk is one transaction
// under the scope lock. Creates are keyed upserts, so replaying the same
// list is harmless.
func (s *ReconcileService) ApplyPlayerChanges(ctx context.Context, leagueID, season string, cs PlayerChangeSet) (ApplyStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.ApplyPlayerChanges")
	defer span.End()

	var stats ApplyStats
	if cs.Empty() {
		return stats, nil
	}

	upserts := make([]player.Player, 0, len(cs.Creates)+len(cs.Updates))
	upserts = append(upserts, cs.Creates...)
	for _, u := range cs.Updates {
		upserts = append(upserts, u.After)
	}

	for _, chunk := range chunkPlayers(upserts, s.batchSize()) {
		chunk := chunk
		err := s.locker.WithScopeLock(ctx, leagueID, season, func(ctx context.Context) error {
			return s.playerWriter.UpsertMany(ctx, chunk)
		})
		if err != nil {
			return stats, fmt.Errorf("apply player upserts league=%s season=%s: %w", leagueID, season, err)
		}
	}
	stats.Created = len(cs.Creates)
	stats.Updated = len(cs.Updates)

	for _, chunk := range chunkStrings(cs.Deactivates, s.batchSize()) {
		chunk := chunk
		err := s.locker.WithScopeLock(ctx, leagueID, season, func(ctx context.Context) error {
			return s.playerWriter.DeactivateMany(ctx, chunk)
		})
		if err != nil {
			return stats, fmt.Errorf("apply player deactivations league=%s season=%s: %w", leagueID, season, err)
		}
		stats.Deactivated += len(chunk)
	}

	if err := s.reconcileStints(ctx, upserts); err != nil {
		return stats, err
	}

	return stats, nil
}

// reconcileStints aligns affiliation history with the persisted player
// rows: an open stint on the wrong team is closed, a missing open stint is
// opened. Everything is derived from stored state rather than the
// operation list, so replaying an apply changes nothing and a run that
// stopped between the row commit and the stint write is repaired by the
// next one.
func (s *ReconcileService) reconcileStints(ctx context.Context, players []player.Player) error {
	if s.identity == nil {
		return nil
	}
	now := s.now().UTC()

	for _, p := range players {
		stints, err := s.identity.stintRepo.ListByPlayer(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list team stints player=%s: %w", p.ID, err)
		}

		var open *player.TeamStint
		for i := range stints {
			if stints[i].EndedAt == nil {
				open = &stints[i]
				break
			}
		}

		if open != nil {
			if open.TeamID == p.TeamID {
				continue
			}
			if err := s.identity.stintRepo.CloseOpen(ctx, p.ID, now); err != nil {
				return fmt.Errorf("close team stint player=%s: %w", p.ID, err)
			}
		}
		if p.TeamID == "" {
			continue
		}
		if err := s.identity.openStint(ctx, p.ID, p.TeamID, now); err != nil {
			return err
		}
	}

	return nil
}

// uncoveredByChangeSet returns the snapshot rows the change set does not
// touch. Their stint history can still be stale when an earlier run was
// interrupted after the row commit.
func uncoveredByChangeSet(snapshot []player.Player, cs PlayerChangeSet) []player.Player {
	covered := make(map[string]struct{}, len(cs.Creates)+len(cs.Updates)+len(cs.Deactivates))
	for _, p := range cs.Creates {
		covered[p.ID] = struct{}{}
	}
	for _, u := range cs.Updates {
		covered[u.PlayerID] = struct{}{}
	}
	for _, id := range cs.Deactivates {
		covered[id] = struct{}{}
	}

	out := make([]player.Player, 0, len(snapshot))
	for _, p := range snapshot {
		if _, ok := covered[p.ID]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ApplyMatchChanges mirrors ApplyPlayerChanges for season matches.
func (s *ReconcileService) ApplyMatchChanges(ctx context.Context, leagueID, season string, cs MatchChangeSet) (ApplyStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.ApplyMatchChanges")
	defer span.End()

	var stats ApplyStats
	if cs.Empty() {
		return stats, nil
	}

	upserts := make([]match.Match, 0, len(cs.Creates)+len(cs.Updates))
	upserts = append(upserts, cs.Creates...)
	for _, u := range cs.Updates {
		upserts = append(upserts, u.After)
	}

	for _, chunk := range chunkMatches(upserts, s.batchSize()) {
		chunk := chunk
		err := s.locker.WithScopeLock(ctx, leagueID, season, func(ctx context.Context) error {
			return s.matchWriter.UpsertMany(ctx, chunk)
		})
		if err != nil {
			return stats, fmt.Errorf("apply match upserts league=%s season=%s: %w", leagueID, season, err)
		}
	}
	stats.Created = len(cs.Creates)
	stats.Updated = len(cs.Updates)

	for _, chunk := range chunkStrings(cs.Deactivates, s.batchSize()) {
		chunk := chunk
		err := s.locker.WithScopeLock(ctx, leagueID, season, func(ctx context.Context) error {
			return s.matchWriter.DeactivateMany(ctx, chunk)
		})
		if err != nil {
			return stats, fmt.Errorf("apply match deactivations league=%s season=%s: %w", leagueID, season, err)
		}
		stats.Deactivated += len(chunk)
	}

	return stats, nil
}

func (s *ReconcileService) batchSize() int {
	if s.cfg.BatchSize <= 0 {
		return 500
	}
	return s.cfg.BatchSize
}

// RunInput selects what one reconciliation run covers. Empty LeagueID
// means every configured league.
type RunInput struct {
	LeagueID   string
	SyncData   []string
	MaxWorkers int
	// DryRun computes and reports operation counts without writing.
	DryRun bool
}

type RunResult struct {
	LeagueCount   int             `json:"league_count"`
	TaskCount     int             `json:"task_count"`
	SuccessCount  int             `json:"success_count"`
	FailedCount   int             `json:"failed_count"`
	SkippedCount  int             `json:"skipped_count"`
	WorkerCount   int             `json:"worker_count"`
	Tasks         []RunTaskResult `json:"tasks"`
	RequestedData []string        `json:"requested_data"`
}

type RunTaskResult struct {
	LeagueID   string `json:"league_id"`
	Season     string `json:"season"`
	SyncData   string `json:"sync_data"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

type syncDataKind string

const (
	syncStatusSuccess = "success"
	syncStatusFailed  = "failed"
	syncStatusSkipped = "skipped"

	syncDataPlayers  syncDataKind = "players"
	syncDataMatches  syncDataKind = "matches"
	syncDataTracking syncDataKind = "tracking"
)

type syncTask struct {
	target league.League
	kind   syncDataKind
}

// syncLeagueState shares one fetched feed across the tasks of a league so
// players/matches/tracking tasks do not refetch.
type syncLeagueState struct {
	target  league.League
	service *ReconcileService
	dryRun  bool

	playersOnce sync.Once
	playersErr  error
	players     []scrape.RawPlayerRecord

	matchesOnce sync.Once
	matchesErr  error
	matches     []scrape.RawMatchRecord

	trackingOnce sync.Once
	trackingErr  error
	trackingRows []scrape.RawTrackingRecord
}

// Run executes one reconciliation run across the selected leagues, one
// task per (league, kind), fanned out over a bounded worker pool.
func (s *ReconcileService) Run(ctx context.Context, input RunInput) (RunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Run")
	defer span.End()

	if !s.cfg.Enabled {
		return RunResult{}, fmt.Errorf("%w: reconciliation sync is disabled (SYNC_ENABLED=false)", ErrDependencyUnavailable)
	}
	if s.source == nil || s.identity == nil || s.locker == nil {
		return RunResult{}, fmt.Errorf("%w: reconcile service is not fully configured", ErrDependencyUnavailable)
	}

	kinds, rawKinds, err := normalizeSyncKinds(input.SyncData)
	if err != nil {
		return RunResult{}, err
	}

	targets, err := s.resolveRunTargets(ctx, input.LeagueID)
	if err != nil {
		return RunResult{}, err
	}

	tasks := make([]syncTask, 0, len(targets)*len(kinds))
	for _, target := range targets {
		for _, kind := range kinds {
			tasks = append(tasks, syncTask{
				target: target,
				kind:   kind,
			})
		}
	}

	workerCount := normalizeSyncWorkerCount(input.MaxWorkers, len(tasks))
	result := RunResult{
		LeagueCount:   len(targets),
		TaskCount:     len(tasks),
		WorkerCount:   workerCount,
		RequestedData: rawKinds,
		Tasks:         make([]RunTaskResult, 0, len(tasks)),
	}
	if len(tasks) == 0 {
		return result, nil
	}

	states := make(map[string]*syncLeagueState, len(targets))
	for _, target := range targets {
		states[target.ID] = &syncLeagueState{
			target:  target,
			service: s,
			dryRun:  input.DryRun,
		}
	}

	results := make(chan RunTaskResult, len(tasks))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var skippedCount atomic.Int32

	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return RunResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	var workers sync.WaitGroup
	submitErr := submitSyncTasks(workerPool.Submit, &workers, tasks, func(task syncTask) {
		start := time.Now()
		state := states[task.target.ID]
		row := RunTaskResult{
			LeagueID: task.target.ID,
			Season:   task.target.Season,
			SyncData: string(task.kind),
		}

		records, status, message := s.runSyncTask(ctx, state, task.kind)
		row.Records = records
		row.Status = status
		row.Message = message
		row.DurationMs = time.Since(start).Milliseconds()

		switch status {
		case syncStatusSuccess:
			successCount.Add(1)
		case syncStatusSkipped:
			skippedCount.Add(1)
		default:
			failedCount.Add(1)
		}

		results <- row
	})

	// Wait even after a failed submit: already-submitted tasks are still
	// running against the pool and writing into results.
	workers.Wait()
	close(results)

	if submitErr != nil {
		return RunResult{}, submitErr
	}

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}

	sort.SliceStable(result.Tasks, func(i, j int) bool {
		if result.Tasks[i].LeagueID != result.Tasks[j].LeagueID {
			return result.Tasks[i].LeagueID < result.Tasks[j].LeagueID
		}
		return result.Tasks[i].SyncData < result.Tasks[j].SyncData
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.SkippedCount = int(skippedCount.Load())
	return result, nil
}

// submitSyncTasks fans tasks out over the pool. A failed submit balances
// the wait group for its own task and stops submitting; the tasks already
// accepted keep running.
func submitSyncTasks(submit func(func()) error, workers *sync.WaitGroup, tasks []syncTask, run func(syncTask)) error {
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := submit(func() {
			defer workers.Done()
			run(task)
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	return nil
}

func (s *ReconcileService) runSyncTask(ctx context.Context, state *syncLeagueState, kind syncDataKind) (int, string, string) {
	if state == nil {
		return 0, syncStatusFailed, "invalid league state"
	}

	switch kind {
	case syncDataPlayers:
		count, err := s.syncPlayers(ctx, state)
		if err != nil {
			return 0, syncStatusFailed, err.Error()
		}
		if count == 0 {
			return count, syncStatusSkipped, "no player changes detected"
		}
		return count, syncStatusSuccess, ""
	case syncDataMatches:
		count, err := s.syncMatches(ctx, state)
		if err != nil {
			return 0, syncStatusFailed, err.Error()
		}
		if count == 0 {
			return count, syncStatusSkipped, "no match changes detected"
		}
		return count, syncStatusSuccess, ""
	case syncDataTracking:
		count, err := s.syncTracking(ctx, state)
		if err != nil {
			return 0, syncStatusFailed, err.Error()
		}
		if count == 0 {
			return count, syncStatusSkipped, "no tracking rows written"
		}
		return count, syncStatusSuccess, ""
	default:
		return 0, syncStatusSkipped, "unsupported sync_data"
	}
}

// normalizedPlayerRecord is the output of the parallel normalize phase.
type normalizedPlayerRecord struct {
	rec scrape.RawPlayerRecord
}

// subObservation is a substitute-marked feed record waiting for its player
// row to exist. Keyed by external key because the detector may fold two
// candidates for the same key onto one persisted row.
type subObservation struct {
	externalKey string
	team        string
}

func (s *ReconcileService) syncPlayers(ctx context.Context, state *syncLeagueState) (int, error) {
	raw, err := state.loadPlayers(ctx)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	normalized := s.normalizePlayerRecords(raw)

	snapshot, err := s.playerRepo.ListActiveByLeague(ctx, state.target.ID)
	if err != nil {
		return 0, fmt.Errorf("list active players league=%s: %w", state.target.ID, err)
	}

	candidates := make([]player.Player, 0, len(normalized))
	var subSeen []subObservation
	for _, item := range normalized {
		candidate, resolved, err := s.identity.ResolveCandidate(ctx, state.target.ID, item.rec, !state.dryRun)
		if err != nil {
			return 0, err
		}
		if !resolved {
			continue
		}
		if _, isSub := scrape.NormalizeName(item.rec.RawName); isSub {
			subSeen = append(subSeen, subObservation{
				externalKey: candidate.ExternalKey,
				team:        strings.TrimSpace(item.rec.TeamLabel),
			})
		}
		candidates = append(candidates, candidate)
	}

	cs := DetectPlayerChanges(snapshot, candidates)
	opCount := len(cs.Creates) + len(cs.Updates) + len(cs.Deactivates)
	if state.dryRun {
		return opCount, nil
	}

	if !cs.Empty() {
		if _, err := s.ApplyPlayerChanges(ctx, state.target.ID, state.target.Season, cs); err != nil {
			return 0, err
		}
	}

	// The applier reconciled stints for the rows it touched; sweep the
	// rest so history interrupted on an earlier run still converges.
	if err := s.reconcileStints(ctx, uncoveredByChangeSet(snapshot, cs)); err != nil {
		return 0, err
	}

	// Appearances register only now that every implied row is persisted;
	// a substitute-marked record can be the first observation of its key.
	if err := s.registerSubObservations(ctx, state.target.ID, subSeen); err != nil {
		return 0, err
	}

	return opCount, nil
}

func (s *ReconcileService) registerSubObservations(ctx context.Context, leagueID string, observations []subObservation) error {
	for _, obs := range observations {
		resolved, found, err := s.playerRepo.GetActiveByKey(ctx, leagueID, obs.externalKey)
		if err != nil {
			return fmt.Errorf("get player by key league=%s: %w", leagueID, err)
		}
		if !found {
			s.logger.WarnContext(ctx, "skipped substitute appearance for unknown player",
				"league_id", leagueID,
				"external_key", obs.externalKey,
			)
			continue
		}
		if err := s.identity.RegisterSubAppearance(ctx, resolved.ID, obs.team); err != nil {
			return err
		}
	}
	return nil
}

// normalizePlayerRecords runs name normalization over the feed in
// parallel. Normalization is pure, so order is restored by index.
func (s *ReconcileService) normalizePlayerRecords(raw []scrape.RawPlayerRecord) []normalizedPlayerRecord {
	out := make([]normalizedPlayerRecord, len(raw))

	workers := s.cfg.NormalizeWorkers
	if workers <= 0 {
		workers = 4
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i := range raw {
		i := i
		p.Go(func() {
			rec := raw[i]
			rec.RawName = strings.TrimSpace(rec.RawName)
			rec.ExternalKey = strings.TrimSpace(rec.ExternalKey)
			rec.TeamLabel = strings.TrimSpace(rec.TeamLabel)
			out[i] = normalizedPlayerRecord{rec: rec}
		})
	}
	p.Wait()

	return out
}

func (s *ReconcileService) syncMatches(ctx context.Context, state *syncLeagueState) (int, error) {
	raw, err := state.loadMatches(ctx)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	snapshot, err := s.matchRepo.ListBySeason(ctx, state.target.ID, state.target.Season)
	if err != nil {
		return 0, fmt.Errorf("list season matches league=%s season=%s: %w", state.target.ID, state.target.Season, err)
	}

	fetched := make([]match.Match, 0, len(raw))
	for _, rec := range raw {
		candidate := mapRawMatch(state.target.ID, state.target.Season, rec)
		if candidate.ParticipantKey == "" {
			s.logger.WarnContext(ctx, "skipped match record without participants",
				"league_id", state.target.ID,
				"season", state.target.Season,
				"match_date", rec.MatchDate,
			)
			continue
		}
		fetched = append(fetched, candidate)
	}

	cs := DetectMatchChanges(snapshot, fetched)
	if state.dryRun || cs.Empty() {
		return len(cs.Creates) + len(cs.Updates) + len(cs.Deactivates), nil
	}

	stats, err := s.ApplyMatchChanges(ctx, state.target.ID, state.target.Season, cs)
	if err != nil {
		return 0, err
	}
	return stats.Total(), nil
}

func (s *ReconcileService) syncTracking(ctx context.Context, state *syncLeagueState) (int, error) {
	raw, err := state.loadTracking(ctx)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	// Listed fresh so tracking sees rows the players task just created.
	snapshot, err := s.playerRepo.ListActiveByLeague(ctx, state.target.ID)
	if err != nil {
		return 0, fmt.Errorf("list active players league=%s: %w", state.target.ID, err)
	}
	byKey := make(map[string]player.Player, len(snapshot))
	for _, p := range snapshot {
		byKey[p.ExternalKey] = p
	}

	written := 0
	for _, rec := range raw {
		resolved, ok := byKey[strings.TrimSpace(rec.ExternalKey)]
		if !ok {
			s.logger.WarnContext(ctx, "skipped tracking row for unknown player",
				"league_id", state.target.ID,
				"external_key", rec.ExternalKey,
			)
			continue
		}
		team := strings.TrimSpace(rec.TeamLabel)
		if team == "" {
			s.logger.WarnContext(ctx, "skipped tracking row without team scope",
				"league_id", state.target.ID,
				"player_id", resolved.ID,
				"tracked_on", rec.TrackedOn,
			)
			continue
		}
		kind, err := tracking.ParseKind(rec.Kind)
		if err != nil {
			s.logger.WarnContext(ctx, "skipped tracking row with unknown kind",
				"league_id", state.target.ID,
				"player_id", resolved.ID,
				"kind", rec.Kind,
			)
			continue
		}

		if state.dryRun {
			written++
			continue
		}

		rowID, err := s.idGen.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate tracking row id: %w", err)
		}
		row := tracking.Record{
			ID:        rowID,
			PlayerID:  resolved.ID,
			TeamID:    team,
			TrackedOn: rec.TrackedOn,
			Kind:      kind,
			UpdatedAt: s.now().UTC(),
		}
		if err := s.trackingRepo.Upsert(ctx, row); err != nil {
			return 0, fmt.Errorf("upsert tracking row player=%s team=%s: %w", resolved.ID, team, err)
		}
		written++
	}

	return written, nil
}

func (s *ReconcileService) resolveRunTargets(ctx context.Context, leagueID string) ([]league.League, error) {
	leagueID = strings.TrimSpace(leagueID)
	if leagueID != "" {
		target, found, err := s.leagueRepo.GetByID(ctx, leagueID)
		if err != nil {
			return nil, fmt.Errorf("get league id=%s: %w", leagueID, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: league id=%s", ErrNotFound, leagueID)
		}
		return []league.League{target}, nil
	}

	targets, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no leagues configured", ErrNotFound)
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].ID < targets[j].ID
	})
	return targets, nil
}

func (state *syncLeagueState) loadPlayers(ctx context.Context) ([]scrape.RawPlayerRecord, error) {
	state.playersOnce.Do(func() {
		items, err := state.service.source.FetchPlayers(ctx, state.target.Label)
		if err != nil {
			state.playersErr = fmt.Errorf("fetch players league=%s: %w", state.target.ID, err)
			return
		}
		state.players = items
	})
	return state.players, state.playersErr
}

func (state *syncLeagueState) loadMatches(ctx context.Context) ([]scrape.RawMatchRecord, error) {
	state.matchesOnce.Do(func() {
		items, err := state.service.source.FetchMatches(ctx, state.target.Label)
		if err != nil {
			state.matchesErr = fmt.Errorf("fetch matches league=%s: %w", state.target.ID, err)
			return
		}
		state.matches = items
	})
	return state.matches, state.matchesErr
}

func (state *syncLeagueState) loadTracking(ctx context.Context) ([]scrape.RawTrackingRecord, error) {
	state.trackingOnce.Do(func() {
		items, err := state.service.source.FetchTracking(ctx, state.target.Label)
		if err != nil {
			state.trackingErr = fmt.Errorf("fetch tracking league=%s: %w", state.target.ID, err)
			return
		}
		state.trackingRows = items
	})
	return state.trackingRows, state.trackingErr
}

// mapRawMatch builds the candidate row for one raw match observation.
// The row id is derived from the identity key, so re-ingesting the same
// scrape maps to the same row.
func mapRawMatch(leagueID, season string, rec scrape.RawMatchRecord) match.Match {
	participants := make([]string, 0, len(rec.HomePlayers)+len(rec.AwayPlayers))
	participants = append(participants, rec.HomePlayers...)
	participants = append(participants, rec.AwayPlayers...)

	sourceTable := rec.SourceTable
	if sourceTable == "" {
		sourceTable = match.SourceCurrent
	}

	m := match.Match{
		LeagueID:       leagueID,
		Season:         season,
		MatchDate:      rec.MatchDate,
		ParticipantKey: match.ParticipantKey(participants),
		Sequence:       rec.Sequence,
		HomeScore:      rec.HomeScore,
		AwayScore:      rec.AwayScore,
		SourceTable:    sourceTable,
		IsActive:       !rec.Inactive,
	}
	m.ID = buildMatchPublicID(leagueID, season, m.IdentityKey())
	return m
}

func buildMatchPublicID(leagueID, season, identityKey string) string {
	h := fnv.New64a()
	h.Write([]byte(season))
	h.Write([]byte{0})
	h.Write([]byte(identityKey))
	return fmt.Sprintf("rl-%s-match-%016x", leagueID, h.Sum64())
}

func normalizeSyncKinds(raw []string) ([]syncDataKind, []string, error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("%w: sync_data is required", ErrInvalidInput)
	}

	seen := make(map[syncDataKind]struct{}, len(raw))
	kinds := make([]syncDataKind, 0, len(raw))
	requested := make([]string, 0, len(raw))
	for _, item := range raw {
		normalized := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(item)), "-", "_")
		if normalized == "" {
			continue
		}
		kind, ok := toSyncDataKind(normalized)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unsupported sync_data=%s", ErrInvalidInput, item)
		}
		if _, exists := seen[kind]; exists {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
		requested = append(requested, normalized)
	}
	if len(kinds) == 0 {
		return nil, nil, fmt.Errorf("%w: sync_data is required", ErrInvalidInput)
	}
	return kinds, requested, nil
}

func toSyncDataKind(value string) (syncDataKind, bool) {
	switch value {
	case "players", "player":
		return syncDataPlayers, true
	case "matches", "match", "season_matches":
		return syncDataMatches, true
	case "tracking", "availability", "season_tracking":
		return syncDataTracking, true
	default:
		return "", false
	}
}

func normalizeSyncWorkerCount(value int, taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = 1
	}
	if value > 4 {
		value = 4
	}
	if value > taskCount {
		value = taskCount
	}
	return value
}

func chunkPlayers(items []player.Player, size int) [][]player.Player {
	if len(items) == 0 {
		return nil
	}
	out := make([][]player.Player, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func chunkMatches(items []match.Match, size int) [][]match.Match {
	if len(items) == 0 {
		return nil
	}
	out := make([][]match.Match, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
