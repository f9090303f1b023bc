package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/port"
)

type fakeStore struct {
	mu sync.Mutex

	exists    bool
	existsErr error
	fetchErr  error
	storeErr  error
	link      string
	linkErr   error

	calls      map[string]int
	checkedKey string
	storedFrom string
	storedKey  string
	linkKey    string
	linkTTL    time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{exists: true, link: "https://store.local/signed?X-Amz-Expires=3600", calls: map[string]int{}}
}

func (s *fakeStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["exists"]++
	s.checkedKey = key
	return s.exists, s.existsErr
}

// Fetch materializes a fake video so later stages and cleanup see a real file.
func (s *fakeStore) Fetch(_ context.Context, _ string, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["fetch"]++
	if s.fetchErr != nil {
		return s.fetchErr
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("video"), 0o644)
}

func (s *fakeStore) Store(_ context.Context, src string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["store"]++
	s.storedFrom = src
	s.storedKey = key
	return s.storeErr
}

func (s *fakeStore) SignedLink(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["link"]++
	s.linkKey = key
	s.linkTTL = ttl
	if s.linkErr != nil {
		return "", s.linkErr
	}
	return s.link, nil
}

type fakeExtractor struct {
	mu      sync.Mutex
	err     error
	panics  bool
	calls   int
	gotArgs []any
	outDirs []string
}

func (e *fakeExtractor) Extract(_ context.Context, videoPath, outputDir string, interval int) (*port.FrameExtractionResult, error) {
	e.mu.Lock()
	e.calls++
	e.gotArgs = []any{videoPath, outputDir, interval}
	e.outDirs = append(e.outDirs, outputDir)
	e.mu.Unlock()
	if e.panics {
		panic("codec table corrupted")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "frame_0001.jpg"), []byte("f"), 0o644); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	return &port.FrameExtractionResult{FrameCount: 6, VideoDuration: 60}, nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (a *fakeArchiver) Build(_ context.Context, _ string, archivePath string) error {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	return os.WriteFile(archivePath, []byte("zip"), 0o644)
}

// recordingScratch records every release and whether each path still existed
// at that moment, then removes them like the real manager.
type recordingScratch struct {
	fileCalls    [][]string
	dirCalls     [][]string
	existedFiles map[string]bool
}

func newRecordingScratch() *recordingScratch {
	return &recordingScratch{existedFiles: map[string]bool{}}
}

func (r *recordingScratch) ReleaseFiles(paths []string) {
	r.fileCalls = append(r.fileCalls, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		r.existedFiles[p] = err == nil
		_ = os.Remove(p)
	}
}

func (r *recordingScratch) ReleaseDirectories(paths []string) {
	r.dirCalls = append(r.dirCalls, paths)
	for _, p := range paths {
		_ = os.RemoveAll(p)
	}
}

type fakeLocker struct {
	err     error
	locks   int
	unlocks int
}

func (l *fakeLocker) Lock(_ context.Context, _ string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	return func() { l.unlocks++ }, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n entity.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, entity.Notification) error {
	panic("template missing")
}

type fakeRuns struct {
	created  []entity.Run
	updated  []entity.Run
	failNext error
	panics   bool
}

func (r *fakeRuns) Create(_ context.Context, run *entity.Run) error {
	if r.panics {
		panic("connection pool poisoned")
	}
	r.created = append(r.created, *run)
	return r.failNext
}

func (r *fakeRuns) Update(_ context.Context, run *entity.Run) error {
	r.updated = append(r.updated, *run)
	return r.failNext
}

func (r *fakeRuns) FindByID(_ context.Context, _ uuid.UUID) (*entity.Run, error) {
	return nil, nil
}

type fakeResults struct {
	messages [][]byte
	panics   bool
}

func (p *fakeResults) PublishResult(_ context.Context, msg []byte) error {
	if p.panics {
		panic("channel closed mid-publish")
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fakeDLQ struct {
	messages [][]byte
	reasons  []string
	err      error
	panics   bool
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	if d.panics {
		panic("channel closed mid-publish")
	}
	d.messages = append(d.messages, msg)
	d.reasons = append(d.reasons, reason)
	return d.err
}
