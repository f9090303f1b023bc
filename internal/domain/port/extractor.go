package port

import "context"

type FrameExtractionResult struct {
	FrameCount    int
	VideoDuration float64
}

type FrameExtractor interface {
	Extract(ctx context.Context, videoPath string, outputDir string, intervalSeconds int) (*FrameExtractionResult, error)
}
