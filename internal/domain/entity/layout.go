package entity

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ScratchPaths are the local files and directories one run materializes.
type ScratchPaths struct {
	LocalVideoPath  string
	FramesDirectory string
	ArchivePath     string
}

// Files returns the paths released as files at the end of a run.
func (p ScratchPaths) Files() []string {
	return []string{p.LocalVideoPath, p.ArchivePath}
}

// Directories returns the paths released as directory trees at the end of a run.
func (p ScratchPaths) Directories() []string {
	return []string{p.FramesDirectory}
}

// Layout derives every local path and remote key of a run from the request
// alone, so duplicate deliveries of one request address the same resources.
type Layout struct {
	TempDir  string
	VideoExt string
}

func (l Layout) ext() string {
	ext := strings.TrimPrefix(l.VideoExt, ".")
	if ext == "" {
		return "mp4"
	}
	return ext
}

// OwnerDir is the scratch directory shared by all runs of one owner.
func (l Layout) OwnerDir(req ExtractionRequest) string {
	return filepath.Join(l.TempDir, req.OwnerID)
}

func (l Layout) Scratch(req ExtractionRequest) ScratchPaths {
	dir := l.OwnerDir(req)
	return ScratchPaths{
		LocalVideoPath:  filepath.Join(dir, fmt.Sprintf("%s.%s", req.SourceID, l.ext())),
		FramesDirectory: filepath.Join(dir, req.SourceID+"_frames"),
		ArchivePath:     filepath.Join(dir, req.SourceID+"-frames.zip"),
	}
}

// LockPath names the lock file guarding a request's scratch paths.
func (l Layout) LockPath(req ExtractionRequest) string {
	return filepath.Join(l.OwnerDir(req), req.SourceID+".lock")
}

// SourceKey is where the uploaded video lives in the object store.
func (l Layout) SourceKey(req ExtractionRequest) string {
	return fmt.Sprintf("videos/%s/%s/upload/%s-source.%s", req.OwnerID, req.SourceID, req.SourceID, l.ext())
}

// ArchiveKey is where the frame archive is stored.
func (l Layout) ArchiveKey(req ExtractionRequest) string {
	return fmt.Sprintf("videos/%s/%s/processed/%s-frames.zip", req.OwnerID, req.SourceID, req.SourceID)
}
