package adapters

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artycleaner/internal/types"
)

func newTestArtifactory(t *testing.T, handler http.HandlerFunc) *ArtifactoryStoreAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewArtifactoryStoreAdapter(types.APIConfig{
		Endpoint:     server.URL + "/artifactory/",
		Username:     "cleaner",
		Password:     "secret",
		ReadTimeout:  5,
		Retries:      -1,
		RetryDelayMs: 1,
	})
}

func TestArtifactoryLookupRepository(t *testing.T) {
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cleaner", user)
		assert.Equal(t, "secret", pass)
		switch r.URL.Path {
		case "/artifactory/api/repositories/docker-local":
			_, _ = w.Write([]byte(`{"key":"docker-local","packageType":"docker","rclass":"local"}`))
		default:
			http.Error(w, `{"errors":[{"status":400,"message":"Bad Request"}]}`, http.StatusBadRequest)
		}
	})

	info, err := adapter.LookupRepository(t.Context(), "docker-local")
	require.NoError(t, err)
	assert.Equal(t, types.RepositoryInfo{Key: "docker-local", PackageType: "docker", RClass: "local"}, info)

	_, err = adapter.LookupRepository(t.Context(), "missing")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestArtifactoryListFolderAndFileDetails(t *testing.T) {
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/artifactory/api/storage/docker-local/app" && r.URL.RawQuery == "":
			_, _ = w.Write([]byte(`{"children":[{"uri":"/v1","folder":true},{"uri":"/_uploads","folder":true},{"uri":"/readme.txt","folder":false}]}`))
		case r.URL.Path == "/artifactory/api/storage/docker-local/app/v1/manifest.json" && r.URL.RawQuery == "stats":
			_, _ = w.Write([]byte(`{"uri":"x","lastDownloaded":1749983400000,"downloadCount":4}`))
		case r.URL.Path == "/artifactory/api/storage/docker-local/app/v1/manifest.json":
			_, _ = w.Write([]byte(`{"created":"2025-06-01T08:00:00.000+02:00","lastModified":"2025-06-02T08:00:00.000+0200","size":"1234"}`))
		default:
			http.NotFound(w, r)
		}
	})

	entries, err := adapter.ListFolder(t.Context(), "docker-local", "app")
	require.NoError(t, err)
	want := []types.FolderEntry{
		{Name: "v1", IsFolder: true},
		{Name: "_uploads", IsFolder: true},
		{Name: "readme.txt", IsFolder: false},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("folder entries mismatch (-want +got):\n%s", diff)
	}

	stats, err := adapter.StatFile(t.Context(), "docker-local", "app/v1/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC), stats.LastDownloaded)
	assert.Equal(t, int64(4), stats.DownloadCount)

	info, err := adapter.FileInfo(t.Context(), "docker-local", "app/v1/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), info.Created)
	assert.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), info.LastModified)
	assert.Equal(t, int64(1234), info.Size)
}

func TestArtifactoryStatWithoutDownloads(t *testing.T) {
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uri":"x","downloadCount":0}`))
	})
	stats, err := adapter.StatFile(t.Context(), "docker-local", "app/v1/manifest.json")
	require.NoError(t, err)
	assert.True(t, stats.LastDownloaded.IsZero())
}

func TestArtifactorySearchUnused(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/artifactory/api/search/usage", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "1767225600000", query.Get("notUsedSince"))
		assert.Equal(t, "1767225600000", query.Get("createdBefore"))
		assert.Equal(t, "generic-local", query.Get("repos"))
		_, _ = w.Write([]byte(`{"results":[
			{"uri":"http://host/artifactory/api/storage/generic-local/builds/a%20b.tar.gz","lastDownloaded":"2025-03-01T10:00:00.000Z"},
			{"uri":"http://host/artifactory/api/storage/other-repo/x"},
			{"uri":"http://host/artifactory/api/storage/generic-local/y.zip"}
		]}`))
	})

	results, err := adapter.SearchUnused(t.Context(), "generic-local", cutoff)
	require.NoError(t, err)
	want := []types.UsageResult{
		{Path: "builds/a b.tar.gz", LastDownloaded: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Path: "y.zip"},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("usage results mismatch (-want +got):\n%s", diff)
	}
}

func TestArtifactorySearchUnusedNoResults(t *testing.T) {
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"status":404,"message":"No results found."}]}`, http.StatusNotFound)
	})
	results, err := adapter.SearchUnused(t.Context(), "generic-local", time.Now())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestArtifactoryDeleteFile(t *testing.T) {
	var deleted []string
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = append(deleted, r.URL.Path)
		switch r.URL.Path {
		case "/artifactory/docker-local/app/v1":
			w.WriteHeader(http.StatusNoContent)
		case "/artifactory/docker-local/app/gone":
			http.NotFound(w, r)
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	})

	require.NoError(t, adapter.DeleteFile(t.Context(), "docker-local", "app/v1"))
	require.NoError(t, adapter.DeleteFile(t.Context(), "docker-local", "app/gone"))

	err := adapter.DeleteFile(t.Context(), "docker-local", "app/locked")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodePermissionDenied, errbuilder.CodeOf(err))

	err = adapter.DeleteFile(t.Context(), "docker-local", "/")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	assert.Equal(t, []string{
		"/artifactory/docker-local/app/v1",
		"/artifactory/docker-local/app/gone",
		"/artifactory/docker-local/app/locked",
	}, deleted)
}

func TestArtifactoryAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-123", r.Header.Get("X-JFrog-Art-Api"))
		_, ok := r.Header["Authorization"]
		assert.False(t, ok)
		_, _ = w.Write([]byte(`{"key":"generic-local","packageType":"generic"}`))
	}))
	t.Cleanup(server.Close)
	adapter := NewArtifactoryStoreAdapter(types.APIConfig{
		Endpoint: server.URL,
		Username: "cleaner",
		APIKey:   "token-123",
	})
	info, err := adapter.LookupRepository(t.Context(), "generic-local")
	require.NoError(t, err)
	assert.Equal(t, "generic", info.PackageType)
}

func TestArtifactoryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"key":"docker-local","packageType":"docker"}`))
	}))
	t.Cleanup(server.Close)
	adapter := NewArtifactoryStoreAdapter(types.APIConfig{
		Endpoint:     server.URL,
		Retries:      3,
		RetryDelayMs: 1,
	})

	info, err := adapter.LookupRepository(t.Context(), "docker-local")
	require.NoError(t, err)
	assert.Equal(t, "docker", info.PackageType)
	assert.Equal(t, int32(3), calls.Load())
}

func TestArtifactoryServerErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	adapter := NewArtifactoryStoreAdapter(types.APIConfig{
		Endpoint:     server.URL,
		Retries:      1,
		RetryDelayMs: 1,
	})

	_, err := adapter.ListFolder(t.Context(), "docker-local", "")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestArtifactoryRetryDefaults(t *testing.T) {
	assert.Equal(t, 3, normalizeArtifactoryRetries(0))
	assert.Equal(t, 0, normalizeArtifactoryRetries(-1))
	assert.Equal(t, 5, normalizeArtifactoryRetries(5))
	assert.Equal(t, defaultArtifactoryTimeout, normalizeArtifactoryTimeout(0))
	assert.Equal(t, defaultArtifactoryRetryDelay, normalizeArtifactoryRetryDelay(-5))
}

func TestStoragePathFromURI(t *testing.T) {
	assert.Equal(t, "a/b.txt", storagePathFromURI("https://h/artifactory/api/storage/repo/a/b.txt", "repo"))
	assert.Equal(t, "", storagePathFromURI("https://h/artifactory/api/storage/other/a", "repo"))
	assert.Equal(t, "", storagePathFromURI("https://h/artifactory/api/storage/repo/", "repo"))
}

func TestArtifactoryFileInfoSize(t *testing.T) {
	adapter := newTestArtifactory(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/artifactory/api/storage/generic-local/folder":
			_, _ = w.Write([]byte(`{"created":"2025-06-01T08:00:00.000Z","children":[]}`))
		case "/artifactory/api/storage/generic-local/odd.bin":
			_, _ = w.Write([]byte(`{"created":"2025-06-01T08:00:00.000Z","size":"12.5"}`))
		default:
			_, _ = w.Write([]byte(`{"created":"2025-06-01T08:00:00.000Z","size":2048}`))
		}
	})

	folder, err := adapter.FileInfo(t.Context(), "generic-local", "folder")
	require.NoError(t, err)
	assert.Zero(t, folder.Size)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), folder.Created)

	odd, err := adapter.FileInfo(t.Context(), "generic-local", "odd.bin")
	require.NoError(t, err)
	assert.Zero(t, odd.Size)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), odd.Created)

	plain, err := adapter.FileInfo(t.Context(), "generic-local", "plain.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), plain.Size)
}
