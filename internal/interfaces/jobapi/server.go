package jobapi

import (
	"net/http"

	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

func NewRouter(handler *Handler, logger *logging.Logger, internalJobToken string) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/unresolved", handler.ListUnresolved)
	mux.HandleFunc("POST /v1/sub-requests/{requestID}/joins", handler.JoinSubRequest)
	registerInternalJobRoutes(mux, handler, internalJobToken)

	return RequestTracing(RequestLogging(logger, recoverPanic(logger, mux)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sync",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncJob)))
	mux.Handle("POST /v1/internal/jobs/repair-duplicates",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRepairDuplicatesJob)))
	mux.Handle("POST /v1/internal/jobs/backfill-tracking",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBackfillTrackingJob)))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "jobapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
