package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/port"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultLinkTTL = time.Hour

// ExtractFramesUseCase runs the frame extraction pipeline for one request at
// a time per call. Concurrent calls share only the injected collaborators.
type ExtractFramesUseCase struct {
	store     port.ObjectStore
	extractor port.FrameExtractor
	archiver  port.ArchiveBuilder
	scratch   port.ScratchReleaser
	locker    port.RunLocker
	notifier  port.Notifier
	runs      port.RunRepository
	results   port.ResultPublisher
	dlq       port.DLQPublisher
	logger    *zap.Logger
	layout    entity.Layout
	linkTTL   time.Duration
}

type ExtractFramesConfig struct {
	TempDir  string
	VideoExt string
	LinkTTL  time.Duration
}

// NewExtractFramesUseCase wires the pipeline. runs, results and dlq may be
// nil when run history or queue publishing is not wanted.
func NewExtractFramesUseCase(
	store port.ObjectStore,
	extractor port.FrameExtractor,
	archiver port.ArchiveBuilder,
	scratch port.ScratchReleaser,
	locker port.RunLocker,
	notifier port.Notifier,
	runs port.RunRepository,
	results port.ResultPublisher,
	dlq port.DLQPublisher,
	logger *zap.Logger,
	cfg ExtractFramesConfig,
) *ExtractFramesUseCase {
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	return &ExtractFramesUseCase{
		store:     store,
		extractor: extractor,
		archiver:  archiver,
		scratch:   scratch,
		locker:    locker,
		notifier:  notifier,
		runs:      runs,
		results:   results,
		dlq:       dlq,
		logger:    logger,
		layout:    entity.Layout{TempDir: cfg.TempDir, VideoExt: cfg.VideoExt},
		linkTTL:   ttl,
	}
}

// Layout exposes how requests are mapped to scratch paths and keys.
func (uc *ExtractFramesUseCase) Layout() entity.Layout {
	return uc.layout
}

// Execute is the queue handler. Every decodable message yields a published
// result; undecodable ones are also copied to the DLQ. The returned error
// only reports that the DLQ copy could not be made.
func (uc *ExtractFramesUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	req, err := entity.DecodeExtractionRequest(rawMsg)
	if err != nil {
		uc.logger.Warn("invalid extraction request", zap.Error(err), zap.ByteString("body", rawMsg))
		result := uc.rejected(err)
		uc.publishResult(ctx, req, result, uc.logger)
		if dlqErr := uc.deadLetter(ctx, rawMsg, "invalid_request: "+err.Error()); dlqErr != nil {
			return fmt.Errorf("publish to dlq: %w", dlqErr)
		}
		return nil
	}

	result := uc.Run(ctx, req)
	uc.publishResult(ctx, req, result, uc.logger)
	return nil
}

// Handle decodes raw and runs the pipeline. A payload that cannot be decoded
// yields a 400 result and no notification, since there is no trustworthy
// recipient.
func (uc *ExtractFramesUseCase) Handle(ctx context.Context, raw []byte) entity.PipelineResult {
	req, err := entity.DecodeExtractionRequest(raw)
	if err != nil {
		uc.logger.Warn("invalid extraction request", zap.Error(err))
		return uc.rejected(err)
	}
	return uc.Run(ctx, req)
}

func (uc *ExtractFramesUseCase) rejected(err error) entity.PipelineResult {
	result := entity.FailureResult(err)
	metrics.RunsTotal.WithLabelValues(strconv.Itoa(result.StatusCode), string(entity.KindOf(err))).Inc()
	return result
}

// Run executes the pipeline for a decoded request and always returns a
// result; it never panics and never returns a raw error.
func (uc *ExtractFramesUseCase) Run(ctx context.Context, req entity.ExtractionRequest) entity.PipelineResult {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractFramesUseCase.Run")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.owner_id", req.OwnerID),
		attribute.String("request.source_id", req.SourceID),
		attribute.Int("request.sample_interval_seconds", req.SampleIntervalSeconds),
	)

	totalTimer := time.Now()
	log := uc.logger.With(zap.String("owner_id", req.OwnerID), zap.String("source_id", req.SourceID))

	// Nothing external is touched before the parameters are known to be usable.
	if err := req.CheckParameters(); err != nil {
		log.Warn("rejected extraction request", zap.Error(err))
		result := uc.rejected(err)
		uc.notify(ctx, req, result, log)
		return result
	}

	run := entity.NewRun(req, uc.layout.SourceKey(req), uc.layout.ArchiveKey(req))
	log = log.With(zap.String("run_id", run.ID.String()))
	span.SetAttributes(attribute.String("run.id", run.ID.String()))

	run.MarkProcessing()
	uc.recordRun(ctx, run, true, log)

	metrics.ActiveRuns.Inc()
	link, extraction, err := uc.runPipeline(ctx, req, log)
	metrics.ActiveRuns.Dec()

	var result entity.PipelineResult
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(entity.KindOf(err)))
		run.MarkFailed(err)
		result = entity.FailureResult(err)
		log.Error("extraction run failed",
			zap.String("kind", string(entity.KindOf(err))),
			zap.Error(err),
		)
	} else {
		run.MarkCompleted(extraction.FrameCount, extraction.VideoDuration)
		result = entity.SuccessResult(req.NotifyTarget, link)
		metrics.FramesExtractedTotal.Add(float64(extraction.FrameCount))
		log.Info("extraction run completed",
			zap.Int("frame_count", extraction.FrameCount),
			zap.Float64("duration_secs", extraction.VideoDuration),
			zap.String("archive_key", run.ArchiveKey),
		)
	}

	uc.recordRun(ctx, run, false, log)
	uc.notify(ctx, req, result, log)

	metrics.RunsTotal.WithLabelValues(strconv.Itoa(result.StatusCode), run.ErrorKind).Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return result
}

// runPipeline walks the stages in order and stops at the first failure.
// Scratch paths are released exactly once on every path out, including a
// panic in a collaborator.
func (uc *ExtractFramesUseCase) runPipeline(
	ctx context.Context,
	req entity.ExtractionRequest,
	log *zap.Logger,
) (link string, extraction *port.FrameExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			link, extraction = "", nil
			err = entity.NewError(entity.KindUnexpected, "pipeline panicked", fmt.Errorf("%v", r))
		}
	}()

	paths := uc.layout.Scratch(req)
	sourceKey := uc.layout.SourceKey(req)
	archiveKey := uc.layout.ArchiveKey(req)

	unlock, err := uc.locker.Lock(ctx, uc.layout.LockPath(req))
	if err != nil {
		return "", nil, entity.NewError(entity.KindUnexpected, "acquire run lock", err)
	}
	defer unlock()
	defer uc.release(paths, log)

	err = uc.stage(ctx, "check_source", entity.KindStoreAccess, func(ctx context.Context) error {
		exists, err := uc.store.Exists(ctx, sourceKey)
		if err != nil {
			return err
		}
		if !exists {
			return entity.NewError(entity.KindSourceNotFound,
				fmt.Sprintf("video file %s does not exist", sourceKey), nil)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	err = uc.stage(ctx, "fetch_video", entity.KindStoreAccess, func(ctx context.Context) error {
		return uc.store.Fetch(ctx, sourceKey, paths.LocalVideoPath)
	})
	if err != nil {
		return "", nil, err
	}

	err = uc.stage(ctx, "extract_frames", entity.KindExtraction, func(ctx context.Context) error {
		var err error
		extraction, err = uc.extractor.Extract(ctx, paths.LocalVideoPath, paths.FramesDirectory, req.SampleIntervalSeconds)
		if err == nil && extraction == nil {
			err = errors.New("extractor returned no result")
		}
		return err
	})
	if err != nil {
		return "", nil, err
	}

	err = uc.stage(ctx, "package_frames", entity.KindPackaging, func(ctx context.Context) error {
		return uc.archiver.Build(ctx, paths.FramesDirectory, paths.ArchivePath)
	})
	if err != nil {
		return "", nil, err
	}

	err = uc.stage(ctx, "store_archive", entity.KindStoreAccess, func(ctx context.Context) error {
		return uc.store.Store(ctx, paths.ArchivePath, archiveKey)
	})
	if err != nil {
		return "", nil, err
	}

	err = uc.stage(ctx, "mint_link", entity.KindStoreAccess, func(ctx context.Context) error {
		var err error
		link, err = uc.store.SignedLink(ctx, archiveKey, uc.linkTTL)
		if err == nil && link == "" {
			err = errors.New("store returned an empty link")
		}
		return err
	})
	if err != nil {
		return "", nil, err
	}

	log.Debug("signed link minted", zap.String("archive_key", archiveKey), zap.Duration("ttl", uc.linkTTL))
	return link, extraction, nil
}

// stage runs fn under its own span and duration metric. An error that was
// not classified by the collaborator takes the stage's kind.
func (uc *ExtractFramesUseCase) stage(ctx context.Context, name string, kind entity.ErrorKind, fn func(context.Context) error) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var classified *entity.Error
	if errors.As(err, &classified) {
		return err
	}
	return entity.NewError(kind, name, err)
}

func (uc *ExtractFramesUseCase) deadLetter(ctx context.Context, rawMsg []byte, reason string) (err error) {
	if uc.dlq == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dlq publisher panicked: %v", r)
		}
	}()
	return uc.dlq.PublishToDLQ(ctx, rawMsg, reason)
}

// contain is deferred by side effects that run after the pipeline. A panic
// there is logged and swallowed so the result still reaches the caller.
func (uc *ExtractFramesUseCase) contain(step string, log *zap.Logger) {
	if r := recover(); r != nil {
		log.Error("side effect panicked", zap.String("step", step), zap.Any("panic", r))
	}
}

func (uc *ExtractFramesUseCase) release(paths entity.ScratchPaths, log *zap.Logger) {
	uc.scratch.ReleaseFiles(paths.Files())
	uc.scratch.ReleaseDirectories(paths.Directories())
	log.Debug("scratch paths released")
}

// notify tells the requester how the run ended. Delivery problems are logged
// and never alter the result.
func (uc *ExtractFramesUseCase) notify(ctx context.Context, req entity.ExtractionRequest, result entity.PipelineResult, log *zap.Logger) {
	defer uc.contain("notify", log)
	if uc.notifier == nil || req.NotifyTarget == "" {
		return
	}

	n := entity.Notification{
		NotifyTarget: req.NotifyTarget,
		Outcome:      entity.OutcomeFailure,
		SourceID:     req.SourceID,
	}
	if result.Succeeded() {
		n.Outcome = entity.OutcomeSuccess
		n.DownloadLink = result.Body.DownloadLink
	}

	if err := uc.notifier.Notify(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(n.Outcome), "error").Inc()
		log.Error("failed to notify requester", zap.String("outcome", string(n.Outcome)), zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Outcome), "sent").Inc()
}

func (uc *ExtractFramesUseCase) recordRun(ctx context.Context, run *entity.Run, create bool, log *zap.Logger) {
	defer uc.contain("record_run", log)
	if uc.runs == nil {
		return
	}

	var err error
	if create {
		err = uc.runs.Create(ctx, run)
	} else {
		err = uc.runs.Update(ctx, run)
	}
	if err != nil {
		log.Error("failed to record run", zap.String("status", string(run.Status)), zap.Error(err))
	}
}

func (uc *ExtractFramesUseCase) publishResult(ctx context.Context, req entity.ExtractionRequest, result entity.PipelineResult, log *zap.Logger) {
	defer uc.contain("publish_result", log)
	if uc.results == nil {
		return
	}

	data, err := json.Marshal(entity.ResultMessage{
		SourceID:       req.SourceID,
		OwnerID:        req.OwnerID,
		PipelineResult: result,
	})
	if err != nil {
		log.Error("failed to marshal result", zap.Error(err))
		return
	}
	if err := uc.results.PublishResult(ctx, data); err != nil {
		log.Error("failed to publish result", zap.Error(err))
	}
}
