package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const shutdownGrace = 5 * time.Second

// Serve exposes gatherer on addr/metrics until ctx is done. Workers without
// an HTTP surface use it so their collectors can be scraped. An empty addr
// is a no-op.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logg *logger.Logger) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logg.Info(logg.WithField(ctx, "metrics_addr", addr), "metrics listener started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
