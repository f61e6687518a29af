package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhisek/adaptiq/internal/attempt"
	"github.com/abhisek/adaptiq/internal/authz"
	"github.com/abhisek/adaptiq/internal/clock"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/httpapi"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/selector"
	"github.com/abhisek/adaptiq/internal/spacedrep"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}

		log, err := logger.New(cfg.LogMode)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()
		if cfg.LogMode == "prod" || cfg.LogMode == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		bundle, err := loadCatalog(cfg, log)
		if err != nil {
			return err
		}

		st, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		pub, err := events.NewEventPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			return fmt.Errorf("init event publisher: %w", err)
		}
		defer pub.Close()

		clk := clock.System{}
		reviews := spacedrep.NewService(cfg.ReviewService(), st.ReviewRepo(), bundle.Catalog, clk, log)
		tuning := cfg.EngineTuning()
		engine := attempt.NewEngine(attempt.Deps{
			Catalog:    bundle.Catalog,
			Authorizer: authz.NewEnrollmentPolicy(bundle.Enrollments, bundle.Staff),
			Attempts:   st.AttemptRepo(),
			Reviews:    reviews,
			Events:     pub,
			Clock:      clk,
			Selector:   selector.New(nil, tuning.TieEpsilon),
			Model:      cfg.Model(),
			Tuning:     tuning,
			Logger:     log,
		})

		router := httpapi.NewRouter(httpapi.RouterConfig{
			Attempts:     engine,
			Reviews:      reviews,
			Logger:       log,
			AllowOrigins: cfg.CORS.AllowOrigins,
		})
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("http server listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides http_addr)")
}
