package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"golang.org/x/sync/errgroup"
	"github.com/craftparty/craftparty-backend/internal/catalog"
	rediscache "github.com/craftparty/craftparty-backend/internal/clients/redis"
	"github.com/craftparty/craftparty-backend/internal/db"
	"github.com/craftparty/craftparty-backend/internal/handlers"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/middleware"
	"github.com/craftparty/craftparty-backend/internal/observability"
	"github.com/craftparty/craftparty-backend/internal/repos"
	"github.com/craftparty/craftparty-backend/internal/server"
	"github.com/craftparty/craftparty-backend/internal/services"
	"github.com/craftparty/craftparty-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	catalogPath := utils.GetEnv("CATALOG_PATH", "configs/catalog.yaml", log)
	shutdownGrace := utils.GetEnvAsInt("SHUTDOWN_GRACE_SECONDS", 10, log)

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "craftparty-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Catalog
	log.Info("Loading item catalog from main...", "path", catalogPath)
	cat, err := catalog.LoadFile(catalogPath, log)
	if err != nil {
		log.Error("Could not load item catalog", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	projectRepo := repos.NewProjectRepo(thePG, log)
	nodeRepo := repos.NewNodeRepo(thePG, log)
	contributionRepo := repos.NewContributionRepo(thePG, log)
	snapshotRepo := repos.NewSnapshotRepo(thePG, log)

	// Progress cache (optional, REDIS_ADDR gates it)
	progressCache, err := rediscache.NewProgressCache(log)
	if err != nil {
		log.Warn("Progress cache init failed, continuing without it", "error", err)
	}
	defer progressCache.Close()

	// Services
	log.Info("Setting up Services from main...")
	treeService := services.NewTreeService(log, cat)
	enchantService := services.NewEnchantService(log, cat)
	projectService := services.NewProjectService(thePG, log, treeService, projectRepo, nodeRepo, contributionRepo, snapshotRepo, progressCache)
	contributionService := services.NewContributionService(thePG, log, projectRepo, nodeRepo, contributionRepo, progressCache)
	analyticsService := services.NewAnalyticsService(thePG, log, projectRepo, nodeRepo, progressCache)
	snapshotService := services.NewSnapshotService(thePG, log, projectRepo, nodeRepo, contributionRepo, snapshotRepo, progressCache)

	// Handlers
	log.Info("Setting up handlers from main...")
	projectHandler := handlers.NewProjectHandler(projectService)
	treeHandler := handlers.NewTreeHandler(treeService)
	contributionHandler := handlers.NewContributionHandler(contributionService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	enchantHandler := handlers.NewEnchantHandler(enchantService)
	snapshotHandler := handlers.NewSnapshotHandler(snapshotService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:      authMiddleware,
		ProjectHandler:      projectHandler,
		TreeHandler:         treeHandler,
		ContributionHandler: contributionHandler,
		AnalyticsHandler:    analyticsHandler,
		EnchantHandler:      enchantHandler,
		SnapshotHandler:     snapshotHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("Server listening on :%s\n", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownGrace)*time.Second)
		defer cancel()
		if otelShutdown != nil {
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Warn("Tracer shutdown failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
