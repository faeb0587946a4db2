package observability

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// AdminServer serves the observability endpoints (/healthz, /stats,
// /metrics) over h2c, separate from the static-file listeners.
type AdminServer struct {
	srv *http.Server
	log zerolog.Logger
}

// NewAdminServer builds the admin endpoint for the given stats handle.
func NewAdminServer(addr string, stats *Stats, log zerolog.Logger) *AdminServer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(stats))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Snapshot())
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &AdminServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: h2c.NewHandler(mux, &http2.Server{}),
		},
		log: log,
	}
}

// Run serves until Shutdown is called.
func (a *AdminServer) Run() error {
	a.log.Info().Str("addr", a.srv.Addr).Msg("admin endpoint listening")
	err := a.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the admin server.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}
