package testutil

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

// FakeStore is an in-memory artifact store. Keys are "repo:path".
type FakeStore struct {
	mu           sync.Mutex
	repositories map[string]types.RepositoryInfo
	folders      map[string][]types.FolderEntry
	stats        map[string]types.FileStats
	infos        map[string]types.FileInfo
	unused       map[string][]types.UsageResult
	failures     map[string]error
	Calls        []string
	Deleted      []string
	SearchedAt   []time.Time
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		repositories: map[string]types.RepositoryInfo{},
		folders:      map[string][]types.FolderEntry{},
		stats:        map[string]types.FileStats{},
		infos:        map[string]types.FileInfo{},
		unused:       map[string][]types.UsageResult{},
		failures:     map[string]error{},
	}
}

func (s *FakeStore) AddRepository(repoKey string, packageType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repositories[repoKey] = types.RepositoryInfo{Key: repoKey, PackageType: packageType}
}

// AddFolder registers a child folder (or file) under dir.
func (s *FakeStore) AddFolder(repoKey string, dir string, name string, isFolder bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(repoKey, dir)
	for _, entry := range s.folders[key] {
		if entry.Name == name {
			return
		}
	}
	s.folders[key] = append(s.folders[key], types.FolderEntry{Name: name, IsFolder: isFolder})
}

// AddDockerTag registers image/tag/manifest.json with the given usage data.
func (s *FakeStore) AddDockerTag(repoKey string, image string, tag string, lastDownloaded time.Time, created time.Time, lastModified time.Time) {
	s.AddFolder(repoKey, "", image, true)
	s.AddFolder(repoKey, image, tag, true)
	manifest := path.Join(image, tag, "manifest.json")
	s.AddFolder(repoKey, path.Join(image, tag), "manifest.json", false)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[storeKey(repoKey, manifest)] = types.FileStats{LastDownloaded: lastDownloaded}
	s.infos[storeKey(repoKey, manifest)] = types.FileInfo{Created: created, LastModified: lastModified}
}

func (s *FakeStore) AddUnused(repoKey string, filePath string, lastDownloaded time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unused[repoKey] = append(s.unused[repoKey], types.UsageResult{Path: filePath, LastDownloaded: lastDownloaded})
}

// FailOn makes operation op ("lookup", "list", "stat", "info", "search",
// "delete") fail for repo:path.
func (s *FakeStore) FailOn(op string, repoKey string, p string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+" "+storeKey(repoKey, p)] = err
}

func (s *FakeStore) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.Calls {
		if len(call) > len(op) && call[:len(op)+1] == op+" " {
			count++
		}
	}
	return count
}

func (s *FakeStore) record(op string, repoKey string, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + " " + storeKey(repoKey, p)
	s.Calls = append(s.Calls, key)
	return s.failures[key]
}

func (s *FakeStore) LookupRepository(_ context.Context, repoKey string) (types.RepositoryInfo, error) {
	if err := s.record("lookup", repoKey, ""); err != nil {
		return types.RepositoryInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.repositories[repoKey]
	if !ok {
		return types.RepositoryInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("repository %s not found", repoKey))
	}
	return info, nil
}

func (s *FakeStore) ListFolder(_ context.Context, repoKey string, dir string) ([]types.FolderEntry, error) {
	if err := s.record("list", repoKey, dir); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.FolderEntry(nil), s.folders[storeKey(repoKey, dir)]...), nil
}

func (s *FakeStore) StatFile(_ context.Context, repoKey string, p string) (types.FileStats, error) {
	if err := s.record("stat", repoKey, p); err != nil {
		return types.FileStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats[storeKey(repoKey, p)], nil
}

func (s *FakeStore) FileInfo(_ context.Context, repoKey string, p string) (types.FileInfo, error) {
	if err := s.record("info", repoKey, p); err != nil {
		return types.FileInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infos[storeKey(repoKey, p)], nil
}

// SearchUnused mimics the server-side filter: results last downloaded at or
// after notUsedSince are dropped.
func (s *FakeStore) SearchUnused(_ context.Context, repoKey string, notUsedSince time.Time) ([]types.UsageResult, error) {
	if err := s.record("search", repoKey, ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchedAt = append(s.SearchedAt, notUsedSince)
	var results []types.UsageResult
	for _, result := range s.unused[repoKey] {
		if !result.LastDownloaded.IsZero() && !result.LastDownloaded.Before(notUsedSince) {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *FakeStore) DeleteFile(_ context.Context, repoKey string, p string) error {
	if err := s.record("delete", repoKey, p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, storeKey(repoKey, p))
	return nil
}

func storeKey(repoKey string, p string) string {
	return repoKey + ":" + p
}

var _ ports.ArtifactStorePort = (*FakeStore)(nil)
