package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/port"
	"go.uber.org/zap"
)

// maxOutputInError bounds how much transcoder output is kept in an error.
const maxOutputInError = 2048

type ExtractorConfig struct {
	FFmpegPath  string
	FFprobePath string
	Format      string
}

type Extractor struct {
	ffmpeg  string
	ffprobe string
	format  string
	logger  *zap.Logger
}

func NewExtractor(cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	e := &Extractor{
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		format:  strings.TrimPrefix(cfg.Format, "."),
		logger:  logger,
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	if e.format == "" {
		e.format = "jpg"
	}
	return e
}

// ExecResult is the outcome of one external process invocation.
type ExecResult struct {
	ExitCode int
	Output   string
	Err      error
}

func (r ExecResult) Failed() bool {
	return r.Err != nil
}

// Execute runs name synchronously, capturing stdout and stderr together.
// ExitCode is -1 when the process could not be started.
func Execute(ctx context.Context, name string, args ...string) ExecResult {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := ExecResult{Output: out.String(), Err: err}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
	}
	return res
}

// Extract samples one frame every intervalSeconds of video into outputDir as
// frame_0001.<format>, frame_0002.<format>, ... On failure the video and any
// frames already written are left for the caller to clean up.
func (e *Extractor) Extract(ctx context.Context, videoPath string, outputDir string, intervalSeconds int) (*port.FrameExtractionResult, error) {
	if intervalSeconds <= 0 {
		return nil, entity.NewError(entity.KindExtraction,
			fmt.Sprintf("invalid frame interval %d", intervalSeconds), nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, entity.NewError(entity.KindExtraction, "create frames dir", err)
	}

	duration, err := e.probeDuration(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not get video duration", zap.Error(err))
	}

	res := Execute(ctx, e.ffmpeg, e.Args(videoPath, outputDir, intervalSeconds)...)
	if res.Failed() {
		return nil, entity.NewError(entity.KindExtraction,
			fmt.Sprintf("ffmpeg exited with status %d", res.ExitCode),
			fmt.Errorf("%w, output: %s", res.Err, tail(res.Output, maxOutputInError)))
	}

	frames, err := filepath.Glob(filepath.Join(outputDir, "frame_*."+e.format))
	if err != nil {
		return nil, entity.NewError(entity.KindExtraction, "glob frames", err)
	}
	if len(frames) == 0 {
		return nil, entity.NewError(entity.KindExtraction, "no frames extracted from video", nil)
	}

	e.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Int("interval_seconds", intervalSeconds),
		zap.Float64("video_duration", duration),
	)

	return &port.FrameExtractionResult{
		FrameCount:    len(frames),
		VideoDuration: duration,
	}, nil
}

// Args builds the ffmpeg argument list for one extraction.
func (e *Extractor) Args(videoPath, outputDir string, intervalSeconds int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%d", intervalSeconds),
		"-y",
		filepath.Join(outputDir, "frame_%04d."+e.format),
	}
}

func (e *Extractor) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	res := Execute(ctx, e.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if res.Failed() {
		return 0, fmt.Errorf("ffprobe: %w", res.Err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(res.Output), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
