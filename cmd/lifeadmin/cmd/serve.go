package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/internal/api"
	"github.com/mfenderov/lifeadmin/internal/scheduler"
	"github.com/spf13/cobra"
)

var serveNoScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and insight scheduler",
	Long: `Start the HTTP API on server.addr. Unless disabled, insights are generated
on start and then every scheduler.interval.

Example:
  lifeadmin serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not generate insights in the background")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{blobs: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	p := a.pipeline()
	router := api.NewRouter(api.Deps{
		Store:          a.store,
		Engine:         a.engine,
		Pipeline:       p,
		Summarizer:     a.summarizer(),
		Categorizer:    a.categorizer(),
		Search:         a.search(),
		AIEnabled:      a.aiEnabled(),
		DownloadTTL:    a.cfg.Server.DownloadTTL,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	})
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if a.cfg.Scheduler.Enabled && !serveNoScheduler {
		sched := scheduler.New(p, a.cfg.Scheduler.Interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s (AI: %t)\n", a.cfg.Server.Addr, a.aiEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}
	wg.Wait()
	return nil
}
