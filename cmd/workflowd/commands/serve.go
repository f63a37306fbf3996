package commands

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run workflowd as a long-lived process exposing /metrics",
	Long: `serve keeps the registries hot-reloadable and the Prometheus scrape
endpoint up for as long as the process runs. Workflows are still started
via "workflowd run" against the same store, grounded on
main_metrics.go::mainWithMetrics's metrics-server-in-a-goroutine pattern in
the go-coffee example repo; this module has no external HTTP/RPC surface
(spec.md's Non-goals leave that shell external), so serve's only job is the
metrics endpoint and registry liveness.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Metrics.Enabled {
			fmt.Println("metrics disabled, serve has nothing to do; exiting")
			return nil
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())

		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			fmt.Printf("metrics server listening on %s\n", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		return srv.Close()
	},
}
