package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics and /healthz.
type MetricsServer struct {
	Network    string
	Bind       string
	SocketMode string

	// Ready reports whether the bot's gateway session is up. /healthz
	// answers 503 until it returns true. Nil means always ready.
	Ready func() bool
}

func (ms *MetricsServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if ms.Ready != nil && !ms.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "OK")
	})
	return mux
}

// Run serves until ctx is canceled.
func (ms *MetricsServer) Run(ctx context.Context) error {
	srv := http.Server{Handler: ms.handler(), ErrorLog: GetFilteredHTTPLogger()}

	listener, metricsURL, err := SetupListener(ms.Network, ms.Bind, ms.SocketMode)
	if err != nil {
		return err
	}
	slog.Debug("listening for metrics", "url", metricsURL)

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			slog.Error("cannot shut down metrics server", "err", err)
		}
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// DoHealthCheck probes the /healthz endpoint of a running bot on this host.
func DoHealthCheck(ctx context.Context, bind string) error {
	_, address, err := ParseBindNetFromAddr(bind)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+address+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch health status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
