package usecase

import (
	"context"
	"errors"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/port"
)

// Notifiers delivers one notification through every configured channel. A
// failing channel does not stop the others.
type Notifiers []port.Notifier

func (ns Notifiers) Notify(ctx context.Context, n entity.Notification) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
