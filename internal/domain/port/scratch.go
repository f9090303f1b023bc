package port

import "context"

// ScratchReleaser removes run-scoped local files. Both operations are
// idempotent and never fail the caller.
type ScratchReleaser interface {
	ReleaseFiles(paths []string)
	ReleaseDirectories(paths []string)
}

// RunLocker serializes runs that address the same scratch paths.
type RunLocker interface {
	Lock(ctx context.Context, path string) (unlock func(), err error)
}
