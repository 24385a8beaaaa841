package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskbot/internal/config"
	"taskbot/internal/database"
	"taskbot/internal/dialog"
	"taskbot/internal/handlers"
	"taskbot/internal/middleware"
	"taskbot/internal/monitoring"
	"taskbot/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	migrate         bool
	shutdownTimeout time.Duration
}

func addServe(topLevel *cobra.Command) {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateway API.",
		Example: `
taskbot serve
DB_DRIVER=sqlite SESSION_BACKEND=memory taskbot serve --migrate
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, so)
		},
	}

	cmd.Flags().BoolVar(&so.migrate, "migrate", false, "apply migrations before serving")
	cmd.Flags().DurationVar(&so.shutdownTimeout, "shutdown-timeout", 15*time.Second, "grace period for in-flight requests")

	topLevel.AddCommand(cmd)
}

func serve(ctx context.Context, cfg *config.Config, so *serveOptions) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if so.migrate {
		if err := database.Migrate(pool.DB); err != nil {
			return err
		}
	}

	sessions, err := openSessions(cfg)
	if err != nil {
		return err
	}
	defer sessions.Close()

	cb := repositories.NewStoreBreaker(nil)
	tasks := repositories.NewTaskRepository(pool.DB, cb)
	users := repositories.NewUserRepository(pool.DB, cb)

	engine := dialog.New(tasks, users, sessions, dialog.Config{
		CalendarWeeks:   cfg.Dialog.CalendarWeeks,
		MinuteStep:      cfg.Dialog.MinuteStep,
		LeadTime:        cfg.Dialog.LeadTime,
		PageSize:        cfg.Dialog.PageSize,
		MaxBodyLength:   cfg.Dialog.MaxBodyLength,
		DefaultTimezone: cfg.Dialog.DefaultTimezone,
	})

	monitor := monitoring.New()
	monitor.RegisterHealthCheck("database", func(context.Context) error { return pool.Health() })
	monitor.RegisterHealthCheck("sessions", sessions.Health)
	monitor.RegisterStats("database", pool.Stats)
	monitor.RegisterStats("sessions", sessions.Stats)
	monitor.RegisterStats("store_breaker", cb.GetStats)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
		defer limiter.Stop()
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Engine:      engine,
		Tasks:       tasks,
		Users:       users,
		Monitor:     monitor,
		Gateway:     middleware.GatewayAuthConfig{Secret: cfg.Gateway.JWTSecret, Issuer: cfg.Gateway.Issuer},
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Listening on %s (%s)", srv.Addr, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), so.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
