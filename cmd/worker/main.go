package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/port"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/archive"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/config"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/email"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/ffmpeg"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/httpapi"
	miniostorage "github.com/video-frame-pro/video-frame-pro-processing/internal/infra/minio"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/postgres"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/rabbitmq"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/scratch"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/tracing"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/usecase"
	"github.com/video-frame-pro/video-frame-pro-processing/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting " + tracing.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.TracerConfig{
		Endpoint:    cfg.JaegerEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// Object store
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		UseSSL:    cfg.StorageUseSSL,
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
	})
	fatalOnErr(err, "create object storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	resultPub := rabbitmq.NewResultPublisher(pub, cfg.RabbitMQResultRoutingKey)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	notifier := buildNotifiers(cfg, pub, log)

	uc := usecase.NewExtractFramesUseCase(
		storage,
		ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Format:      cfg.FrameFormat,
		}, log),
		archive.NewZipBuilder(),
		scratch.NewManager(log),
		scratch.NewFileLocker(cfg.LockRetryDelay),
		notifier,
		postgres.NewRunRepository(pool),
		resultPub,
		dlqPub,
		log,
		usecase.ExtractFramesConfig{
			TempDir:  cfg.TempDir,
			VideoExt: cfg.VideoExt,
			LinkTTL:  cfg.SignedLinkTTL,
		},
	)

	// HTTP trigger, metrics and health
	httpSrv := httpapi.StartServer(ctx, cfg.HTTPPort, httpapi.NewHandler(uc, log), log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Topology:    rabbitmq.TopologyFromConfig(cfg),
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("video-frame-pro-processing started, consuming messages")

	consumerErr := consumer.Start(ctx)
	if consumerErr != nil {
		log.Error("consumer error", zap.Error(consumerErr))
		cancel()
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("video-frame-pro-processing stopped")

	// a dead consumer must not look like a clean stop to the supervisor
	if consumerErr != nil {
		log.Sync()
		os.Exit(1)
	}
}

func buildNotifiers(cfg *config.Config, pub *rabbitmq.Publisher, log *zap.Logger) usecase.Notifiers {
	var notifiers usecase.Notifiers
	for _, channel := range cfg.NotifyChannels {
		var n port.Notifier
		switch channel {
		case "email":
			n = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
		case "queue":
			n = rabbitmq.NewNotificationPublisher(pub, cfg.RabbitMQNotificationRoutingKey)
		default:
			log.Warn("unknown notification channel ignored", zap.String("channel", channel))
			continue
		}
		notifiers = append(notifiers, n)
	}
	return notifiers
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
