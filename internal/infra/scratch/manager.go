package scratch

import (
	"errors"
	"io/fs"
	"os"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/metrics"
	"go.uber.org/zap"
)

// Manager releases run-scoped scratch paths. Missing paths are skipped and
// removal failures are logged, so cleanup can never change a run's outcome.
type Manager struct {
	logger *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

func (m *Manager) ReleaseFiles(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := os.Remove(p)
		switch {
		case err == nil:
			m.logger.Debug("file removed", zap.String("path", p))
		case errors.Is(err, fs.ErrNotExist):
		default:
			metrics.CleanupFailuresTotal.Inc()
			m.logger.Error("failed to remove file", zap.String("path", p), zap.Error(err))
		}
	}
}

func (m *Manager) ReleaseDirectories(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			metrics.CleanupFailuresTotal.Inc()
			m.logger.Error("failed to remove directory", zap.String("path", p), zap.Error(err))
			continue
		}
		m.logger.Debug("directory removed", zap.String("path", p))
	}
}
