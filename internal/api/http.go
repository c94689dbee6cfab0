package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/billing"
	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/storage"
)

// SnapshotService is the part of billing.Service the handlers use.
type SnapshotService interface {
	GetSnapshot(ctx context.Context, provider, userCode string) (*billing.Snapshot, error)
	ForceRefresh(ctx context.Context, provider, userCode string) (*billing.Snapshot, error)
}

// Deps wires the HTTP API.
type Deps struct {
	Service SnapshotService

	// Storage backs the readiness check; nil means always ready.
	Storage storage.Storage
}

// NewMux constructs the HTTP mux, wiring in the billing service, metrics, and health endpoints.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Storage != nil {
			if err := d.Storage.Ping(r.Context()); err != nil {
				logging.FromContext(r.Context()).Warn("readyz: db ping failed", zap.Error(err))
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Billing API.
	mux.HandleFunc("/billing/sources", handleSources)
	mux.HandleFunc("/billing/", handleBilling(d.Service))

	return mux
}
