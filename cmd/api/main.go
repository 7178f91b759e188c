package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/vetscan/internal/application"
	appanalysis "github.com/bryanwahyu/vetscan/internal/application/analysis"
	"github.com/bryanwahyu/vetscan/internal/config"
	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
	"github.com/bryanwahyu/vetscan/internal/domain/knowledge"
	"github.com/bryanwahyu/vetscan/internal/infra/ai/gemini"
	aiopenai "github.com/bryanwahyu/vetscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/vetscan/internal/infra/ai/provider"
	"github.com/bryanwahyu/vetscan/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/vetscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/vetscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/vetscan/internal/infra/httpserver"
	"github.com/bryanwahyu/vetscan/internal/infra/specialists"
	"github.com/bryanwahyu/vetscan/internal/infra/storage"
	"github.com/bryanwahyu/vetscan/internal/logging"
	"github.com/bryanwahyu/vetscan/internal/middleware"
)

func main() {
	// load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		slog.Error("config load error", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	kb, err := knowledge.Load(cfg.Knowledge.Path)
	if err != nil {
		return err
	}

	repo, animals, db, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	images, uploadsDir, err := openImageStore(ctx, cfg)
	if err != nil {
		return err
	}
	if uploadsDir != "" {
		checkers["uploads"] = middleware.DirHealthChecker{Dir: uploadsDir}
	}

	inferrer, err := newInferrer(ctx, cfg, kb)
	if err != nil {
		return err
	}
	if c, ok := inferrer.(io.Closer); ok {
		defer c.Close()
	}

	var finder domain.SpecialistFinder
	if cfg.Specialists.BaseURL != "" {
		c, err := specialists.NewClient(cfg.Specialists.BaseURL, cfg.SpecialistsTimeout())
		if err != nil {
			return err
		}
		finder = c
	}

	metrics := middleware.NewMetrics()
	svc := &appanalysis.Service{
		Repo:            repo,
		Images:          images,
		Inference:       inferrer,
		Animals:         animals,
		Specialists:     finder,
		Knowledge:       kb,
		Clock:           application.SystemClock{},
		Metrics:         metrics,
		Log:             log,
		MaxImageBytes:   cfg.MaxUploadBytes(),
		SpecialistLimit: cfg.Specialists.Limit,
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTIssuer:      cfg.Auth.Issuer,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		UploadsDir:     uploadsDir,
		Metrics:        metrics,
		Checkers:       checkers,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// inference can take the whole provider timeout
		WriteTimeout: cfg.InferenceTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "db", cfg.Database.Driver, "storage", cfg.Storage.Driver, "inference", cfg.Inference.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return err
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config) (domain.Repository, domain.AnimalDirectory, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		return mysqlp.NewAnalysisRepository(db), mysqlp.NewAnimalRepository(db), db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewAnalysisRepository(db), postgres.NewAnimalRepository(db), db, nil
	default:
		return memory.NewAnalysisRepository(), memory.NewAnimalDirectory(), nil, nil
	}
}

// openImageStore returns the local directory to serve, or "" for MinIO.
func openImageStore(ctx context.Context, cfg *config.Config) (domain.ImageStore, string, error) {
	if cfg.Storage.Driver == "minio" {
		m := cfg.Storage.Minio
		store, err := storage.NewMinio(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}
	store, err := storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

func newInferrer(ctx context.Context, cfg *config.Config, kb *knowledge.Base) (domain.Inferrer, error) {
	in := cfg.Inference
	switch in.Provider {
	case "openai":
		c := aiopenai.NewClient(in.APIKey, in.BaseURL, in.Model, cfg.InferenceTimeout())
		c.Labels = kb.Keys()
		return c, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, in.APIKey, in.Model, cfg.InferenceTimeout())
		if err != nil {
			return nil, err
		}
		c.Labels = kb.Keys()
		return c, nil
	default:
		return provider.NewClient(in.BaseURL, in.Path, in.APIKey, cfg.InferenceTimeout())
	}
}
