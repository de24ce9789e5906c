package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librarease/images/internal/config"
	"github.com/librarease/images/internal/filestorage"
	"github.com/librarease/images/internal/firebase"
	"github.com/librarease/images/internal/usecase"
)

// App owns the HTTP server and the clients it was wired with.
type App struct {
	srv     *http.Server
	closers []func() error
	logger  *slog.Logger
}

// NewApp wires storage, cache, auth and the usecase from cfg.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	fsp, pp, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
		})
		app.closers = append(app.closers, rdb.Close)
		fsp = filestorage.NewCachedStorage(fsp, rdb, cfg.CacheTTL, logger)
		logger.Info("fetch cache enabled", slog.String("redis", rdb.Options().Addr))
	}

	var verifier TokenVerifier
	if cfg.FirebaseKeyPath != "" {
		fb, err := firebase.New(ctx, cfg.FirebaseKeyPath)
		if err != nil {
			return nil, err
		}
		verifier = fb
	}

	retire := make([]usecase.OwnerKind, 0, len(cfg.RetirePartitions))
	for _, k := range cfg.RetirePartitions {
		kind, err := usecase.ParseOwnerKind(k)
		if err != nil {
			return nil, err
		}
		retire = append(retire, kind)
	}

	uc := usecase.New(fsp, pp, usecase.Options{
		Policy: usecase.Policy{
			AllowedExtensions: cfg.AllowedExtensions,
			MaxBytes:          cfg.MaxUploadBytes,
			MaxPixels:         usecase.DefaultPolicy.MaxPixels,
		},
		Quality:       cfg.ImageQuality,
		RetireKinds:   retire,
		ExtractColors: cfg.ExtractColors,
		Logger:        logger,
	})

	s := NewServer(uc, verifier, cfg, logger)

	app.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return app, nil
}

func newStorage(ctx context.Context, cfg config.Config) (usecase.FileStorageProvider, usecase.PartitionProvider, error) {
	switch cfg.StorageDriver {
	case config.STORAGE_DRIVER_MINIO:
		m, err := filestorage.NewMinIOStorage(cfg.MinioBucket, cfg.MinioPrefix, cfg.MinioEndpoint,
			cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioSecure)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	case config.STORAGE_DRIVER_S3:
		s, err := filestorage.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		l, err := filestorage.NewLocalStorage(cfg.StorageRoot)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	}
}

func (a *App) Addr() string {
	return a.srv.Addr
}

func (a *App) ListenAndServe() error {
	err := a.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.srv.Shutdown(ctx)
	for _, c := range a.closers {
		err = errors.Join(err, c())
	}
	return err
}
