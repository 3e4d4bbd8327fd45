package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/observability"
	"github.com/trailblaze/fieldops/internal/photos"
	"github.com/trailblaze/fieldops/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse execution sheets interactively",
	Long: `Open the interactive sheet browser: filter and open sheets, start and stop
activities, create sheets and watch notifications arrive.

With --metrics-addr the client's Prometheus metrics (photo loads, API
requests) are served on that address while the browser runs.`,
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.requireLogin(); err != nil {
			return err
		}
		status, err := statusFlag(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			stop := serveMetrics(addr, e)
			defer stop()
		}

		loader, err := photos.NewHTTPLoader(e.client.HTTPClient(), e.cfg.Server, e.session.Token)
		if err != nil {
			return err
		}
		sched := photos.NewScheduler(loader, photos.InlinePolicy(e.cfg.Photos),
			photos.WithLogger(e.log),
			photos.WithContext(ctx),
			photos.WithManualAttempts(e.cfg.Photos.ManualAttempts))

		st := e.state()
		st.StatusFilter = status
		final, err := tui.RunBrowser(st, tui.BrowserOptions{
			Context:              ctx,
			Dispatcher:           e.dispatcher,
			Photos:               sched,
			Worksheets:           e.client.AvailableWorksheets,
			NotificationInterval: e.cfg.NotificationInterval,
			BannerTTL:            e.cfg.BannerTTL,
		})
		if err != nil {
			return err
		}
		if !final.Authenticated() {
			// logged out from inside the browser
			return e.store.DeleteCredential()
		}
		return nil
	}),
}

// serveMetrics exposes the metrics registry until the returned func is called.
func serveMetrics(addr string, e *env) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.WithError(err).Error("metrics server failed")
		}
	}()
	e.log.WithField("addr", addr).Info("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			e.log.WithError(err).WithField("addr", addr).Warn("metrics server shutdown failed")
		}
	}
}

func init() {
	browseCmd.Flags().StringP("status", "s", "", "Start with this state filter")
	browseCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
}
