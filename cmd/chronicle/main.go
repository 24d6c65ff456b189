package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/chronicle-cms/chronicle/internal/app"
	"github.com/chronicle-cms/chronicle/internal/articles"
	"github.com/chronicle-cms/chronicle/internal/auth"
	"github.com/chronicle-cms/chronicle/internal/editorial"
	"github.com/chronicle-cms/chronicle/internal/journals"
	"github.com/chronicle-cms/chronicle/internal/media"
	"github.com/chronicle-cms/chronicle/internal/notifications"
	"github.com/chronicle-cms/chronicle/internal/platform/cache"
	"github.com/chronicle-cms/chronicle/internal/platform/db"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/roles"
	"github.com/chronicle-cms/chronicle/internal/shared"
	"github.com/chronicle-cms/chronicle/internal/users"
	"github.com/chronicle-cms/chronicle/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "chronicle_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	principalCache := cache.NewPrincipalCache(redisClient, cfg.PrincipalCacheTTL)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	reviewTrail := shared.NewReviewTrail(dbpool, logger)
	auditLogger := shared.NewAuditLogger(dbpool)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewEnqueuer(queueClient)

	usersRepo := users.NewRepository(dbpool)
	rolesRepo := roles.NewRepository(dbpool)

	rbacMiddleware := rbac.Middleware{Source: usersRepo, Cache: principalCache, Logger: logger}

	usersService := users.NewService(usersRepo, rolesRepo, principalCache, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	rolesService := roles.NewService(rolesRepo, principalCache, auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	articlesRepo := articles.NewRepository(dbpool)
	articlesService := articles.NewService(articlesRepo, reviewTrail, notifier, logger)
	articlesHandler := articles.NewHandler(logger, articlesService, rbacMiddleware)

	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo, logger)
	journalsHandler := journals.NewHandler(logger, journalsService, rbacMiddleware)

	editorialRepo := editorial.NewRepository(dbpool)
	editorialService := editorial.NewService(editorialRepo)
	editorialHandler := editorial.NewHandler(logger, editorialService, rbacMiddleware)

	mediaRepo := media.NewRepository(dbpool)
	mediaService := media.NewService(mediaRepo)
	mediaHandler := media.NewHandler(logger, mediaService, rbacMiddleware)

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsService, rbacMiddleware)

	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		RBACMiddleware:       rbacMiddleware,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		RolesHandler:         rolesHandler,
		ArticlesHandler:      articlesHandler,
		JournalsHandler:      journalsHandler,
		EditorialHandler:     editorialHandler,
		MediaHandler:         mediaHandler,
		NotificationsHandler: notificationsHandler,
		PermissionsHandler:   permissionsHandler,
		JobHandler:           jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
