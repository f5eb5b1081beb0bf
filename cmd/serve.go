package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jon4hz/wanderlust/internal/api"
	"github.com/jon4hz/wanderlust/internal/auth"
	"github.com/jon4hz/wanderlust/internal/cache"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/gravatar"
	"github.com/jon4hz/wanderlust/internal/media"
	"github.com/jon4hz/wanderlust/internal/notify/email"
	"github.com/jon4hz/wanderlust/internal/scheduler"
	"github.com/jon4hz/wanderlust/internal/story"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const janitorJobID = "upload-janitor"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Wanderlust server",
	Long:  `Start the Wanderlust API server and the background upload janitor.`,
	Example: `wanderlust serve --config config.yml
wanderlust serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyConfigLogLevel(cfg.LogLevel)

	if err := gravatar.Validate(cfg.Gravatar); err != nil {
		log.Fatalf("invalid gravatar config: %v", err)
	}
	return cfg
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg := loadConfig()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := media.NewStorage(ctx, cfg.Media)
	if err != nil {
		log.Fatalf("failed to initialize media storage: %v", err)
	}

	var mailer auth.WelcomeSender
	if cfg.Email.Enabled {
		mailer = email.New(cfg.Email)
	}

	authService := auth.NewService(db, cfg, mailer)
	stories := story.NewService(db, cache.NewFeedCache(cfg.Cache), cfg.DefaultImageURL())
	relay := media.NewRelay(store, cfg)

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	if cfg.Media.Janitor.Enabled {
		janitor := media.NewJanitor(store, db, cfg.Media.Janitor.GracePeriod)
		if err := sched.AddCronJob(janitorJobID, "Sweep orphaned uploads", cfg.Media.Janitor.Schedule, sweepJob(janitor)); err != nil {
			log.Fatalf("failed to schedule upload janitor: %v", err)
		}
	}

	server, err := api.New(cfg, db, authService, stories, relay, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	log.Info("wanderlust started successfully", "version", Version)
	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Info("wanderlust stopped")
}

func sweepJob(janitor *media.Janitor) scheduler.JobFunc {
	return func(ctx context.Context) error {
		result, err := janitor.Sweep(ctx)
		if err != nil {
			return err
		}
		freed, _ := safecast.Convert[uint64](result.Freed)
		log.Info("upload sweep finished",
			"scanned", result.Scanned,
			"removed", result.Removed,
			"freed", humanize.Bytes(freed),
		)
		return nil
	}
}

// openDatabase is shared by the maintenance commands.
func openDatabase() (*config.Config, *database.Client, error) {
	cfg := loadConfig()
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, db, nil
}
