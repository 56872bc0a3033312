package types

import "time"

type RepositoryInfo struct {
	Key         string
	PackageType string
	RClass      string
}

type FolderEntry struct {
	Name     string
	IsFolder bool
}

type FileStats struct {
	LastDownloaded time.Time
	DownloadCount  int64
}

type FileInfo struct {
	Created      time.Time
	LastModified time.Time
	Size         int64
}

type UsageResult struct {
	Path           string
	LastDownloaded time.Time
}
