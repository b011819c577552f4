package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	"github.com/ayush/nimi-blog/backend/internal/config"
	"github.com/ayush/nimi-blog/backend/internal/content"
	"github.com/ayush/nimi-blog/backend/internal/engagement"
	"github.com/ayush/nimi-blog/backend/internal/middleware"
	"github.com/ayush/nimi-blog/backend/internal/profile"
	"github.com/ayush/nimi-blog/backend/internal/social"
	"github.com/ayush/nimi-blog/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("backend stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer rdb.Close()
	statsCache := store.NewStatsCache(rdb, cfg.StatsCacheTTL)

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		cfg.MinioPublicURL,
	)
	if err != nil {
		return fmt.Errorf("minio connect: %w", err)
	}

	// ── Services ─────────────────────────────────────────────
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	authSvc := auth.NewService(mongoStore, auth.BcryptHasher{}, tokens, logger)
	engagementSvc := engagement.NewService(mongoStore, statsCache, logger)
	socialSvc := social.NewService(mongoStore, engagementSvc, logger)
	contentSvc := content.NewService(mongoStore, engagementSvc, logger)
	profileSvc := profile.NewService(mongoStore, socialSvc, engagementSvc, minioStore, cfg.MaxImageBytes, logger)

	reconciler := social.NewReconciler(mongoStore, logger)
	go reconciler.Run(ctx, cfg.ReconcileInterval)

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(authSvc)
	socialHandler := social.NewHandler(socialSvc, authSvc)
	engagementHandler := engagement.NewHandler(engagementSvc, authSvc)
	contentHandler := content.NewHandler(contentSvc, authSvc)
	profileHandler := profile.NewHandler(profileSvc, authSvc)
	mediaHandler := profile.NewMediaHandler(minioStore)

	requireAuth := middleware.RequireAuth(tokens)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get(store.MediaPathPrefix+"*", mediaHandler.Serve)

	r.Get("/api/search", profileHandler.Search)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/api/dashboard", profileHandler.Dashboard)
		r.Get("/api/profile", profileHandler.Self)
		r.Post("/api/profile", profileHandler.Update)

		r.Route("/api/users/{id}", func(r chi.Router) {
			r.Get("/", profileHandler.View)
			r.Get("/posts", contentHandler.ByAuthor)
			r.Get("/connections", socialHandler.Connections)
			r.Post("/follow", socialHandler.Follow)
			r.Post("/unfollow", socialHandler.Unfollow)
		})

		r.Post("/api/comments/{id}/like", engagementHandler.LikeComment)
		r.Post("/api/comments/{id}/dislike", engagementHandler.DislikeComment)
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/recent", contentHandler.Recent)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", contentHandler.Create)
			r.Get("/{id}", contentHandler.Get)
			r.Put("/{id}", contentHandler.Update)
			r.Delete("/{id}", contentHandler.Delete)
			r.Post("/{id}/comments", contentHandler.AddComment)
			r.Post("/{id}/like", engagementHandler.LikePost)
			r.Post("/{id}/dislike", engagementHandler.DislikePost)
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("backend listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
