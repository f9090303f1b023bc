package port

import "context"

type ArchiveBuilder interface {
	Build(ctx context.Context, sourceDir string, archivePath string) error
}
