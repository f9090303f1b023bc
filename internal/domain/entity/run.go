package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending    RunStatus = "PENDING"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

// Run is the history record of one pipeline execution.
type Run struct {
	ID            uuid.UUID
	OwnerID       string
	SourceID      string
	SourceKey     string
	ArchiveKey    string
	Status        RunStatus
	FrameCount    int
	VideoDuration float64
	ErrorKind     string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewRun(req ExtractionRequest, sourceKey, archiveKey string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		SourceID:   req.SourceID,
		SourceKey:  sourceKey,
		ArchiveKey: archiveKey,
		Status:     RunStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *Run) MarkProcessing() {
	r.Status = RunStatusProcessing
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) MarkCompleted(frameCount int, duration float64) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.FrameCount = frameCount
	r.VideoDuration = duration
	r.UpdatedAt = now
	r.CompletedAt = &now
}

// MarkFailed stores the operator-facing cause, which never leaves the
// service through a PipelineResult or Notification.
func (r *Run) MarkFailed(err error) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.ErrorKind = string(KindOf(err))
	r.ErrorMessage = err.Error()
	r.UpdatedAt = now
	r.CompletedAt = &now
}
