package ports

import (
	"context"
	"time"

	"artycleaner/internal/types"
)

// ArtifactStorePort is the subset of the artifact repository API the purge
// run needs. Paths are relative to the repository root.
type ArtifactStorePort interface {
	LookupRepository(ctx context.Context, repoKey string) (types.RepositoryInfo, error)
	ListFolder(ctx context.Context, repoKey string, path string) ([]types.FolderEntry, error)
	StatFile(ctx context.Context, repoKey string, path string) (types.FileStats, error)
	FileInfo(ctx context.Context, repoKey string, path string) (types.FileInfo, error)
	SearchUnused(ctx context.Context, repoKey string, notUsedSince time.Time) ([]types.UsageResult, error)
	DeleteFile(ctx context.Context, repoKey string, path string) error
}
