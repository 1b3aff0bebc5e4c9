package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"order_syncer/internal/domain"
	"order_syncer/internal/metrics"
)

const (
	secretHeader = "X-Trigger-Secret"

	enrichDefaultLimit = 500
	enrichMaxLimit     = 5000
)

// Syncer is one channel's trigger surface.
type Syncer interface {
	Channel() string
	Sync(ctx context.Context) (*domain.SyncStats, error)
	PurgeCancelled(ctx context.Context) (*domain.SyncStats, error)
}

// CredentialRefresher refreshes every registered channel credential.
type CredentialRefresher interface {
	RefreshAll(ctx context.Context) error
}

// GeoStore selects orders still missing enrichment fields.
type GeoStore interface {
	MissingGeo(ctx context.Context, limit int) ([]string, error)
}

// Enricher forwards an enrichment request downstream.
type Enricher interface {
	RequestEnrichment(ctx context.Context, channel string, orderIDs []string) error
}

// Server exposes the on-demand triggers: per-channel sync, the carrier
// cancellation purge, enrichment, and the scheduled credential refresh.
type Server struct {
	syncers  map[string]Syncer
	creds    CredentialRefresher
	geo      GeoStore
	enricher Enricher
	secret   string
	logger   *slog.Logger
}

func New(syncers []Syncer, creds CredentialRefresher, geo GeoStore, enricher Enricher, secret string, logger *slog.Logger) *Server {
	byChannel := make(map[string]Syncer, len(syncers))
	for _, s := range syncers {
		byChannel[s.Channel()] = s
	}
	return &Server{
		syncers:  byChannel,
		creds:    creds,
		geo:      geo,
		enricher: enricher,
		secret:   secret,
		logger:   logger,
	}
}

// Handler builds the route table. Method-qualified patterns make the
// mux answer 405 to non-POST trigger attempts.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync/carrier/cancellations", s.handleCancellations)
	mux.HandleFunc("POST /sync/{channel}", s.handleSync)
	mux.HandleFunc("POST /enrich", s.handleEnrich)
	mux.HandleFunc("POST /credentials/refresh", s.handleCredentialRefresh)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	syncer, ok := s.syncers[channel]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown channel: " + channel})
		return
	}

	stats, err := syncer.Sync(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already running for " + channel})
			return
		}
		s.logger.Error("triggered sync failed", "channel", channel, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if stats.Fetched == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "channel reported no orders"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel":       stats.Channel,
		"fetched":       stats.Fetched,
		"orders":        stats.Orders,
		"items":         stats.Items,
		"deleted_items": stats.DeletedItems,
	})
}

func (s *Server) handleCancellations(w http.ResponseWriter, r *http.Request) {
	syncer, ok := s.syncers[domain.ChannelCarrier]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "carrier channel not configured"})
		return
	}

	stats, err := syncer.PurgeCancelled(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "cancellation purge already running"})
			return
		}
		s.logger.Error("triggered cancellation purge failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if stats.Fetched == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no cancelled orders reported"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel":        stats.Channel,
		"cancelled":      stats.Fetched,
		"deleted_orders": stats.DeletedOrders,
		"deleted_items":  stats.DeletedItems,
	})
}

type enrichRequest struct {
	IDs   []string `json:"ids"`
	Limit int      `json:"limit"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if s.enricher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "enrichment queue not configured"})
		return
	}

	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ids := req.IDs
	if len(ids) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = enrichDefaultLimit
		}
		if limit > enrichMaxLimit {
			limit = enrichMaxLimit
		}

		var err error
		ids, err = s.geo.MissingGeo(r.Context(), limit)
		if err != nil {
			s.logger.Error("missing-geo selection failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	} else if len(ids) > enrichMaxLimit {
		ids = ids[:enrichMaxLimit]
	}

	if len(ids) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no orders need enrichment"})
		return
	}

	if err := s.enricher.RequestEnrichment(r.Context(), "manual", ids); err != nil {
		s.logger.Error("enrichment request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requested": len(ids)})
}

func (s *Server) handleCredentialRefresh(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if err := s.creds.RefreshAll(r.Context()); err != nil {
		s.logger.Error("credential refresh failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "credentials refreshed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
