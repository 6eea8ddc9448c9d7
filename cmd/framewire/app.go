package main

import (
	"context"
	"fmt"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/internal/core/services"
	"framewire/internal/infrastructure/backup"
	"framewire/internal/infrastructure/codec"
	"framewire/internal/infrastructure/compression"
	"framewire/internal/infrastructure/media"
	"framewire/internal/infrastructure/monitoring"
	"framewire/internal/infrastructure/repositories"
	"framewire/internal/infrastructure/transport"
	pkgbackup "framewire/pkg/backup"
	"framewire/pkg/config"
	"framewire/pkg/distributed"
	"framewire/pkg/logger"
	"framewire/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app holds the process-wide components shared by every session.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	log       *zap.SugaredLogger
	tracer    *tracing.TracerProvider
	repos     *repositories.RepositoryFactory
	reports   ports.ReportRepository
	collector *monitoring.PrometheusCollector
	codec     ports.FrameCodec
	preview   *media.LatestFrameSink
}

func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*app, error) {
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := zapLogger.Sugar()

	tracer, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	repos := repositories.NewRepositoryFactory(ctx, cfg, log)

	var collector *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled && reg != nil {
		collector = monitoring.NewPrometheusCollector(reg)
	}

	return &app{
		cfg:       cfg,
		logger:    zapLogger,
		log:       log,
		tracer:    tracer,
		repos:     repos,
		reports:   repos.CreateReportRepository(),
		collector: collector,
		codec:     codec.NewJPEGCodec(),
		preview:   media.NewLatestFrameSink(),
	}, nil
}

// sessionFactory builds sessions for role from the loaded configuration. Each
// session gets its own frame source so a restarted session begins a fresh sequence.
func (a *app) sessionFactory(role domain.Role) services.SessionFactory {
	return func() (*services.StreamSession, error) {
		return a.newSession(role)
	}
}

func (a *app) newSession(role domain.Role) (*services.StreamSession, error) {
	cfg := a.cfg

	protocol, err := transport.NewProtocol(cfg.Stream.Protocol)
	if err != nil {
		return nil, err
	}
	compressor, err := compression.New(
		cfg.Stream.Compression.Enabled,
		cfg.Stream.Compression.Algorithm,
		cfg.Stream.Compression.Level,
		cfg.Stream.MaxFrameBytes,
	)
	if err != nil {
		return nil, err
	}

	deps := services.SessionDeps{
		Codec:      a.codec,
		Compressor: compressor,
		Protocol:   protocol,
		Opener: transport.NewUDPOpener(transport.UDPConfig{
			MaxDatagramSize:   cfg.Transport.MaxDatagramSize,
			ReceiveBufferSize: cfg.Transport.ReceiveBufferSize,
			SendBufferBytes:   cfg.Transport.SendBufferBytes,
		}, a.log),
		Reports: a.reports,
		Logger:  a.log,
	}
	if a.collector != nil {
		deps.Observer = a.collector
	}
	if role.Produces() {
		source, err := buildSource(cfg)
		if err != nil {
			return nil, err
		}
		deps.Source = source
	}
	if role.Consumes() {
		deps.Sink = a.preview
	}

	return services.NewStreamSession(services.SessionConfig{
		Role:              role,
		Quality:           cfg.Stream.Quality,
		LatencyTracking:   cfg.Stream.LatencyTracking,
		MaxFPS:            cfg.Stream.MaxFPS,
		ListenAddress:     cfg.Transport.ListenAddress,
		PeerAddress:       cfg.Transport.PeerAddress,
		MaxDatagramSize:   cfg.Transport.MaxDatagramSize,
		ReceiveBufferSize: cfg.Transport.ReceiveBufferSize,
	}, deps)
}

func buildSource(cfg *config.Config) (ports.FrameSource, error) {
	switch cfg.Source.Kind {
	case "images":
		source, err := media.NewImageDirSource(cfg.Source.Directory, cfg.Source.Loop)
		if err != nil {
			return nil, err
		}
		return source, nil
	case "synthetic", "":
		c, err := media.ParseHexColor(cfg.Source.Color)
		if err != nil {
			return nil, err
		}
		return media.NewSyntheticSource(cfg.Source.Width, cfg.Source.Height, c, cfg.Source.Pattern, cfg.Source.Frames), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

const (
	archiveVersion = "1"
	archiveLockKey = "backup"
	archiveLockTTL = time.Minute
)

func (a *app) backupService(dir string) (*pkgbackup.BackupService, error) {
	storage, err := pkgbackup.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}
	return pkgbackup.NewBackupService(storage, archiveVersion), nil
}

// archiveScheduler archives reports into dir. Instances sharing Redis take a
// lock so only one of them writes each run.
func (a *app) archiveScheduler(dir string) (*backup.Scheduler, error) {
	service, err := a.backupService(dir)
	if err != nil {
		return nil, err
	}
	var locker backup.Locker
	if client := a.repos.RedisClient(); client != nil {
		locker = distributed.NewLockManager(client, "framewire:lock:").AcquireLock(archiveLockKey, archiveLockTTL)
	}
	return backup.NewScheduler(service, a.reports, locker, backup.Config{
		Interval:      a.cfg.Backup.Interval,
		RetentionDays: a.cfg.Backup.RetentionDays,
	}, a.log), nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.tracer.Shutdown(ctx); err != nil {
		a.log.Warnw("tracer shutdown failed", "error", err)
	}
	if err := a.repos.Close(); err != nil {
		a.log.Warnw("error closing repository factory", "error", err)
	}
	_ = a.logger.Sync()
}
