package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/amoylab/atelier/internal/apiserver/apidoc"
	"github.com/amoylab/atelier/internal/apiserver/database"
	"github.com/amoylab/atelier/internal/apiserver/handler"
	"github.com/amoylab/atelier/internal/apiserver/middleware"
	"github.com/amoylab/atelier/internal/auth/session"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/config"
	"github.com/amoylab/atelier/internal/guard"
	"github.com/amoylab/atelier/internal/i18n"
	"github.com/amoylab/atelier/pkg/helper"
	"github.com/amoylab/atelier/pkg/logger"
	"github.com/amoylab/atelier/pkg/metrics"
	"github.com/amoylab/atelier/pkg/trace"
	"github.com/amoylab/atelier/pkg/version"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var pidFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath, pidFile)
		},
	}
	cmd.Flags().StringVar(&pidFile, "pid", "", "write the process id to this file")
	return cmd
}

func serve(ctx context.Context, configPath, pidFile string) error {
	cfg, cfgPath, err := config.LoadConfig[config.APIServerConfig](configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	lg.Info("starting apiserver",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath),
		zap.String("environment", cfg.Server.Environment))

	if pidFile != "" {
		removePID, err := helper.WritePIDFile(helper.GetPIDPath(pidFile))
		if err != nil {
			return err
		}
		defer removePID()
	}

	if err := i18n.InitTranslator(cfg.I18n.Path); err != nil {
		lg.Warn("using built-in messages", zap.String("path", cfg.I18n.Path), zap.Error(err))
	}

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.SeedSystemRoles(ctx); err != nil {
		return fmt.Errorf("seed system roles: %w", err)
	}

	verifier, err := session.NewVerifier(cfg.Session, lg)
	if err != nil {
		return err
	}
	cache, err := guard.NewCache(cfg.Guard.Cache)
	if err != nil {
		return fmt.Errorf("init guard cache: %w", err)
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	g := guard.New(verifier, authz.NewResolver(db),
		guard.WithCache(cache, cfg.Guard.Cache.TTL),
		guard.WithCookie(cfg.Session.Cookie),
		guard.WithMetrics(m),
		guard.WithLogger(lg))
	svc := authz.NewService(db,
		authz.WithInvalidator(g),
		authz.WithRecorder(m),
		authz.WithLogger(lg))

	doc, err := apidoc.Load(ctx)
	if err != nil {
		return err
	}
	router := newRouter(cfg, lg, m, handler.New(svc, lg), g, doc)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newRouter(cfg *config.APIServerConfig, lg *zap.Logger, m *metrics.Metrics, h *handler.Handler, p middleware.Protector, doc *openapi3.T) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(lg, cfg.IsProduction()))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	if m != nil {
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	r.Use(middleware.Lang(), middleware.AccessLog(lg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})
	if doc != nil {
		r.GET("/openapi.json", apidoc.Handler(doc))
	}
	handler.RegisterRoutes(r, h, p)
	r.NoRoute(func(c *gin.Context) {
		i18n.RespondWithError(c, i18n.ErrRouteNotFound)
	})
	return r
}
