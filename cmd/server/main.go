package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gatelog/internal/auth"
	"gatelog/internal/broadcast"
	"gatelog/internal/config"
	"gatelog/internal/domain"
	apphttp "gatelog/internal/http"
	"gatelog/internal/report"
	"gatelog/internal/repository"
	"gatelog/internal/repository/postgres"
	"gatelog/internal/repository/sqlite"
	"gatelog/internal/service"
	"gatelog/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, sensorRepo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closeStore()

	// sensor_events references users, so users goes first.
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := sensorRepo.Init(ctx); err != nil {
		logger.Fatalf("init sensor repository: %v", err)
	}

	creds := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userService := service.NewUserService(userRepo, creds)
	created, err := userService.EnsureAdmin(ctx, service.AdminAccount{
		Username: cfg.Auth.AdminUsername,
		Password: cfg.Auth.AdminPassword,
		RFID:     cfg.Auth.AdminRFID,
		Fullname: cfg.Auth.AdminFullname,
	})
	if err != nil {
		logger.Fatalf("provision admin: %v", err)
	}
	if created {
		logger.Infof("created admin account %q", cfg.Auth.AdminUsername)
	}

	hub := broadcast.NewHub(logger)
	loc := domain.LocalZone(cfg.Gate.UTCOffsetHours)
	gateService := service.NewGateService(service.GateConfig{
		SnapshotSize: cfg.Gate.SnapshotSize,
		Window: service.AdmissionWindow{
			Location:  loc,
			OpenHour:  cfg.Gate.OpenHour,
			CloseHour: cfg.Gate.CloseHour,
		},
		Logger: logger,
	}, userRepo, sensorRepo, apphttp.NewSnapshotPublisher(hub, logger))

	archive, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}
	reportService := service.NewReportService(sensorRepo, report.NewPDFRenderer(cfg.Report.Title, cfg.Report.Subtitle), archive, loc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		userService,
		gateService,
		reportService,
		hub,
		logger,
		apphttp.Options{RateLimit: cfg.HTTP.RateLimit},
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Upgraded websocket connections are hijacked, so Shutdown does not wait for them.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, repository.SensorRepository, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using postgres store")
		return postgres.NewUserRepository(pool), postgres.NewSensorRepository(pool), pool.Close, nil
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Infof("using sqlite store at %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), sqlite.NewSensorRepository(db), func() { _ = db.Close() }, nil
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		local, err := storage.NewLocalService(cfg.Report.Dir)
		if err != nil {
			return nil, err
		}
		logger.Infof("archiving reports under %s", cfg.Report.Dir)
		return local, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving reports to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix), nil
}
