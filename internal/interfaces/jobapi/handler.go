package jobapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/rossfreedman/rally-sub003/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	reconcileService   *usecase.ReconcileService
	identityService    *usecase.IdentityService
	trackingService    *usecase.TrackingService
	eligibilityService *usecase.EligibilityService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	reconcileService *usecase.ReconcileService,
	identityService *usecase.IdentityService,
	trackingService *usecase.TrackingService,
	eligibilityService *usecase.EligibilityService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		reconcileService:   reconcileService,
		identityService:    identityService,
		trackingService:    trackingService,
		eligibilityService: eligibilityService,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "jobapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type runSyncJobRequest struct {
	LeagueID   string   `json:"league_id"`
	SyncData   []string `json:"sync_data" validate:"omitempty,dive,oneof=players matches tracking"`
	MaxWorkers int      `json:"max_workers" validate:"omitempty,min=1,max=32"`
	DryRun     bool     `json:"dry_run"`
}

func (h *Handler) RunSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "jobapi.Handler.RunSyncJob")
	defer span.End()

	if h.reconcileService == nil {
		writeError(ctx, w, fmt.Errorf("%w: reconcile service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req runSyncJobRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.reconcileService.Run(ctx, usecase.RunInput{
		LeagueID:   req.LeagueID,
		SyncData:   req.SyncData,
		MaxWorkers: req.MaxWorkers,
		DryRun:     req.DryRun,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run sync job failed", "league_id", req.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

type repairDuplicatesRequest struct {
	LeagueID string `json:"league_id" validate:"required"`
	DryRun   bool   `json:"dry_run"`
}

func (h *Handler) RunRepairDuplicatesJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "jobapi.Handler.RunRepairDuplicatesJob")
	defer span.End()

	var req repairDuplicatesRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.identityService.RepairDuplicates(ctx, req.LeagueID, req.DryRun)
	if err != nil {
		h.logger.WarnContext(ctx, "repair duplicates job failed", "league_id", req.LeagueID, "dry_run", req.DryRun, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

type backfillTrackingRequest struct {
	DryRun bool `json:"dry_run"`
}

func (h *Handler) RunBackfillTrackingJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "jobapi.Handler.RunBackfillTrackingJob")
	defer span.End()

	var req backfillTrackingRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.trackingService.BackfillTeamScope(ctx, req.DryRun)
	if err != nil {
		h.logger.WarnContext(ctx, "backfill tracking job failed", "dry_run", req.DryRun, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

type unresolvedRecordDTO struct {
	ID        string `json:"id"`
	LeagueID  string `json:"league_id"`
	RawName   string `json:"raw_name"`
	TeamLabel string `json:"team_label,omitempty"`
	Reason    string `json:"reason"`
	SeenAt    string `json:"seen_at"`
}

func (h *Handler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "jobapi.Handler.ListUnresolved")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	if leagueID == "" {
		writeError(ctx, w, fmt.Errorf("%w: leagueID path parameter is required", usecase.ErrInvalidInput))
		return
	}

	records, err := h.identityService.ListUnresolved(ctx, leagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]unresolvedRecordDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, unresolvedRecordDTO{
			ID:        rec.ID,
			LeagueID:  rec.LeagueID,
			RawName:   rec.RawName,
			TeamLabel: rec.TeamLabel,
			Reason:    rec.Reason,
			SeenAt:    rec.SeenAt.UTC().Format(time.RFC3339),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"items": items})
}

type joinSubRequestRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
}

type joinSubRequestResponse struct {
	JoinID   string           `json:"join_id,omitempty"`
	PlayerID string           `json:"player_id"`
	Decision usecase.Decision `json:"decision"`
}

func (h *Handler) JoinSubRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "jobapi.Handler.JoinSubRequest")
	defer span.End()

	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(ctx, w, fmt.Errorf("%w: requestID path parameter is required", usecase.ErrInvalidInput))
		return
	}

	var req joinSubRequestRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	join, decision, err := h.eligibilityService.Join(ctx, requestID, req.PlayerID)
	if err != nil {
		h.logger.WarnContext(ctx, "join sub request failed", "request_id", requestID, "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	// A rejection is a normal outcome: 200 with the failing reason codes.
	status := http.StatusCreated
	if !decision.Admitted {
		status = http.StatusOK
	}

	writeSuccess(ctx, w, status, joinSubRequestResponse{
		JoinID:   join.ID,
		PlayerID: req.PlayerID,
		Decision: decision,
	})
}

func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, target any) error {
	ctx, span := startSpan(ctx, "jobapi.Handler.decodeRequest")
	defer span.End()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
		}
	}

	return h.validateRequest(ctx, target)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "jobapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
