package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ward-backend/internal/cache"
	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/db"
	"github.com/EmpoweredVote/ward-backend/internal/logging"
	"github.com/EmpoweredVote/ward-backend/internal/middleware"
	"github.com/EmpoweredVote/ward-backend/internal/pdftext"
	"github.com/EmpoweredVote/ward-backend/internal/voters"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := voters.Init(gdb); err != nil {
		logger.Fatal("voters init failed", zap.Error(err))
	}

	var resultCache cache.Cache = cache.Nop{}
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
		if err != nil {
			// Verification still works without the cache.
			logger.Warn("redis unavailable, verification cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			resultCache = rc
		}
	}

	store := voters.NewGormStore(gdb)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Get("/", RootHandler)

	r.Mount("/api", voters.SetupRoutes(voters.Deps{
		Store:    store,
		Matcher:  voters.NewMatcher(store, resultCache, cfg.Matching, cfg.Ward, logger.Named("matcher")),
		Importer: voters.NewImporter(store, pdftext.NewExtractor(logger.Named("pdftext")), resultCache, cfg.Ward, cfg.Import, logger.Named("importer")),
		Admins:   voters.NewUserInfo(gdb),
		Config:   cfg,
		Log:      logger,
	}))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("ward", cfg.Ward))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
