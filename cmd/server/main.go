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

	"go.uber.org/zap"

	_ "github.com/BigBr41n/Dz-Stores-Finder/docs"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/config"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	api "github.com/BigBr41n/Dz-Stores-Finder/internal/http"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/metrics"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/database"
	jwtpkg "github.com/BigBr41n/Dz-Stores-Finder/internal/platform/jwt"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/logger"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/mailer"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/password"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/storage"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/repository/memory"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/repository/mongodb"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/repository/postgres"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/worker"
)

// @title                       Dz Stores Finder API
// @version                     1.0
// @description                 Store directory with accounts, ratings and search.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}

	code := exitCode(lg, run(cfg, lg))
	_ = lg.Sync()
	os.Exit(code)
}

// exitCode logs how the server stopped. The caller flushes the logger
// before exiting.
func exitCode(lg *zap.Logger, err error) int {
	if err != nil {
		lg.Error("server stopped with error", zap.Error(err))
		return 1
	}
	lg.Info("server stopped")
	return 0
}

type backend struct {
	users  user.Repository
	stores store.Repository
	ready  func(ctx context.Context) error
	close  func(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config, hasher user.PasswordHasher, lg *zap.Logger) (*backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if cfg.DBAutoMigrate {
			if err := postgres.Migrate(ctx, db.DB); err != nil {
				db.Close()
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
			lg.Info("migrations applied")
		}
		return &backend{
			users:  postgres.NewUserRepo(db, hasher),
			stores: postgres.NewStoreRepo(db),
			ready:  db.PingContext,
			close:  func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMongo:
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		mdb := client.Database(cfg.MongoDB)
		users := mongodb.NewUserRepo(mdb, hasher)
		stores := mongodb.NewStoreRepo(mdb)
		if err := errors.Join(users.EnsureIndexes(ctx), stores.EnsureIndexes(ctx)); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return &backend{
			users:  users,
			stores: stores,
			ready:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:  client.Disconnect,
		}, nil

	default:
		lg.Warn("using in-memory storage, data is lost on restart")
		db := memory.NewDB()
		return &backend{
			users:  memory.NewUserRepo(db, hasher),
			stores: memory.NewStoreRepo(db),
			close:  func(context.Context) error { return nil },
		}, nil
	}
}

func openLogoStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	if cfg.StorageType == config.StorageS3 {
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    "logo/",
		})
	}
	return storage.NewLocal(cfg.UploadDir)
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	hasher := password.NewHasher(cfg.BcryptCost)

	initCtx, cancelInit := context.WithTimeout(ctx, 30*time.Second)
	defer cancelInit()

	be, err := openBackend(initCtx, cfg, hasher, lg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := be.close(closeCtx); err != nil {
			lg.Warn("closing database", zap.Error(err))
		}
	}()

	logos, err := openLogoStorage(initCtx, cfg)
	if err != nil {
		return fmt.Errorf("logo storage: %w", err)
	}

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		BaseURL:  cfg.BaseURL,
		ResetURL: cfg.ResetURL,
		TokenTTL: cfg.VerificationTTL,
	}, lg)
	queue := worker.NewMailQueue(mail, cfg.MailQueueSize, lg)

	jwtMgr := jwtpkg.NewManager(jwtpkg.Options{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})

	userSvc := user.NewService(be.users, hasher, mail, jwtMgr, lg,
		user.WithBackgroundNotifier(queue),
		user.WithTokenTTL(cfg.VerificationTTL),
	)
	storeSvc := store.NewService(be.stores, be.users, logos, lg)

	router := api.NewRouter(api.Deps{
		Users:             userSvc,
		Stores:            storeSvc,
		Tokens:            jwtMgr,
		Logos:             logos,
		Log:               lg,
		Ready:             be.ready,
		UploadMaxBytes:    cfg.UploadMaxBytes,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		AuthRateBurst:     cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	queueCtx, cancelQueue := context.WithCancel(context.Background())
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(queueCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		cancelQueue()
		<-queueDone
		return err
	case <-ctx.Done():
	}
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	cancelQueue()
	<-queueDone
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
