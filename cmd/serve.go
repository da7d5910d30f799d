package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	cfgPkg "github.com/xhad/seek/pkg/config"
	"github.com/xhad/seek/pkg/jobs"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/metrics"
	"github.com/xhad/seek/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and websocket API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	metrics.Register()
	if cfg.Log.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	a, err := newApp(ctx, cfg, os.Stdout, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	store, err := openJobStore(ctx, cfg)
	if err != nil {
		return err
	}

	manager, err := jobs.NewManager(func(ctx context.Context, query string) (*models.Result, error) {
		return a.pipeline.Run(ctx, query)
	}, store, jobs.ManagerConfig{
		Workers: cfg.Jobs.Workers,
		Timeout: cfg.Jobs.Timeout,
	})
	if err != nil {
		store.Close()
		return err
	}
	defer manager.Close(30 * time.Second)

	srv := server.New(a.pipeline, manager, server.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	})
	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
}

func openJobStore(ctx context.Context, config *cfgPkg.Config) (jobs.Store, error) {
	log := logging.FromContext(ctx)

	switch config.Jobs.Backend {
	case "bolt":
		store, err := jobs.NewBoltStore(config.Jobs.Path)
		if err != nil {
			return nil, err
		}
		if n, err := store.MarkInterrupted(ctx); err != nil {
			log.Warn("Failed to mark interrupted jobs", zap.Error(err))
		} else if n > 0 {
			log.Info("Marked interrupted jobs as failed", zap.Int("count", n))
		}
		return store, nil
	case "postgres":
		return jobs.NewPostgresStore(ctx, jobs.PostgresConfig{
			ConnString: config.Jobs.DatabaseURL,
			TableName:  config.Jobs.TableName,
		})
	default:
		return jobs.NewMemoryStore(config.Jobs.TTL), nil
	}
}
