package port

import (
	"context"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}
