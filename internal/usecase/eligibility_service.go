package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	"github.com/rossfreedman/rally-sub003/internal/domain/subrequest"
	"github.com/rossfreedman/rally-sub003/internal/platform/cache"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

const (
	ReasonRatingOutOfRange = "RATING_OUT_OF_RANGE"
	ReasonSeriesOutOfRange = "SERIES_OUT_OF_RANGE"
)

// Decision is the outcome of an eligibility evaluation. A rejection is a
// normal control-flow result, not an error; Reasons lists every failing
// check independently.
type Decision struct {
	Admitted bool     `json:"admitted"`
	Reasons  []string `json:"reasons,omitempty"`
}

// EvaluateEligibility admits iff the player's rating and series rank both
// fall within the request's ranges. Bounds are inclusive on both ends, so
// a value equal to min or max is admitted.
func EvaluateEligibility(req subrequest.Request, rating float64, seriesRank int) Decision {
	var reasons []string
	if rating < req.RatingMin || rating > req.RatingMax {
		reasons = append(reasons, ReasonRatingOutOfRange)
	}
	if seriesRank < req.SeriesMin || seriesRank > req.SeriesMax {
		reasons = append(reasons, ReasonSeriesOutOfRange)
	}

	return Decision{
		Admitted: len(reasons) == 0,
		Reasons:  reasons,
	}
}

// EligibilityService gates sub-request joins on canonical player
// attributes.
type EligibilityService struct {
	requestRepo subrequest.Repository
	playerRepo  player.Repository
	snapshots   *cache.Store
	idGen       idgen.Generator
	logger      *logging.Logger
	now         func() time.Time
}

func NewEligibilityService(
	requestRepo subrequest.Repository,
	playerRepo player.Repository,
	snapshots *cache.Store,
	idGen idgen.Generator,
	logger *logging.Logger,
) *EligibilityService {
	if logger == nil {
		logger = logging.Default()
	}

	return &EligibilityService{
		requestRepo: requestRepo,
		playerRepo:  playerRepo,
		snapshots:   snapshots,
		idGen:       idGen,
		logger:      logger,
		now:         time.Now,
	}
}

// Join admits or rejects one join attempt. Capacity and duplicate checks
// short-circuit before range evaluation runs. On rejection the zero Join
// and the decision are returned with a nil error.
func (s *EligibilityService) Join(ctx context.Context, requestID, playerID string) (subrequest.Join, Decision, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EligibilityService.Join")
	defer span.End()

	requestID = strings.TrimSpace(requestID)
	playerID = strings.TrimSpace(playerID)
	if requestID == "" {
		return subrequest.Join{}, Decision{}, fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}
	if playerID == "" {
		return subrequest.Join{}, Decision{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	req, found, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return subrequest.Join{}, Decision{}, fmt.Errorf("get sub request id=%s: %w", requestID, err)
	}
	if !found {
		return subrequest.Join{}, Decision{}, fmt.Errorf("%w: sub request id=%s", ErrNotFound, requestID)
	}

	joined, err := s.requestRepo.CountJoins(ctx, requestID)
	if err != nil {
		return subrequest.Join{}, Decision{}, fmt.Errorf("count joins request=%s: %w", requestID, err)
	}
	if joined >= req.Capacity {
		return subrequest.Join{}, Decision{}, fmt.Errorf("%w: sub request id=%s is full", ErrConflict, requestID)
	}

	duplicate, err := s.requestRepo.HasJoin(ctx, requestID, playerID)
	if err != nil {
		return subrequest.Join{}, Decision{}, fmt.Errorf("check existing join request=%s player=%s: %w", requestID, playerID, err)
	}
	if duplicate {
		return subrequest.Join{}, Decision{}, fmt.Errorf("%w: player id=%s already joined request id=%s", ErrConflict, playerID, requestID)
	}

	p, err := s.loadPlayer(ctx, playerID)
	if err != nil {
		return subrequest.Join{}, Decision{}, err
	}

	decision := EvaluateEligibility(req, p.Rating, p.SeriesRank)
	if !decision.Admitted {
		s.logger.InfoContext(ctx, "join rejected by eligibility ranges",
			"request_id", requestID,
			"player_id", playerID,
			"reasons", strings.Join(decision.Reasons, ","),
		)
		return subrequest.Join{}, decision, nil
	}

	joinID, err := s.idGen.NewID()
	if err != nil {
		return subrequest.Join{}, Decision{}, fmt.Errorf("generate join id: %w", err)
	}
	j := subrequest.Join{
		ID:        joinID,
		RequestID: requestID,
		PlayerID:  playerID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.requestRepo.AddJoin(ctx, j); err != nil {
		return subrequest.Join{}, Decision{}, fmt.Errorf("add join request=%s player=%s: %w", requestID, playerID, err)
	}

	return j, decision, nil
}

// loadPlayer reads the canonical snapshot through a short TTL cache; join
// bursts against a posted request hit the same few player rows.
func (s *EligibilityService) loadPlayer(ctx context.Context, playerID string) (player.Player, error) {
	load := func(ctx context.Context) (any, error) {
		p, found, err := s.playerRepo.GetByID(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("get player id=%s: %w", playerID, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: player id=%s", ErrNotFound, playerID)
		}
		return p, nil
	}

	if s.snapshots == nil {
		value, err := load(ctx)
		if err != nil {
			return player.Player{}, err
		}
		return value.(player.Player), nil
	}

	value, err := s.snapshots.GetOrLoad(ctx, "player:"+playerID, load)
	if err != nil {
		return player.Player{}, err
	}
	p, ok := value.(player.Player)
	if !ok {
		return player.Player{}, fmt.Errorf("unexpected cached value for player id=%s", playerID)
	}
	return p, nil
}
