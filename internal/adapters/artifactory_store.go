package adapters

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"artycleaner/internal/ports"
	"artycleaner/internal/shared"
	"artycleaner/internal/types"
)

const defaultArtifactoryRetries = 3
const defaultArtifactoryRetryDelay = 200 * time.Millisecond
const defaultArtifactoryTimeout = 60 * time.Second
const maxArtifactoryRetryDelay = 2 * time.Second

// ArtifactoryStoreAdapter talks to the Artifactory REST API. Endpoint is the
// API base, e.g. https://host/artifactory.
type ArtifactoryStoreAdapter struct {
	Endpoint   string
	Username   string
	Password   string
	APIKey     string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Insecure   bool
	client     *retryablehttp.Client
}

func NewArtifactoryStoreAdapter(cfg types.APIConfig) *ArtifactoryStoreAdapter {
	adapter := &ArtifactoryStoreAdapter{
		Endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		Username:   strings.TrimSpace(cfg.Username),
		Password:   cfg.Password,
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Timeout:    normalizeArtifactoryTimeout(cfg.ReadTimeout),
		Retries:    normalizeArtifactoryRetries(cfg.Retries),
		RetryDelay: normalizeArtifactoryRetryDelay(cfg.RetryDelayMs),
		Insecure:   cfg.InsecureSkipVerify(),
	}
	adapter.client = adapter.newClient()
	return adapter
}

func (a *ArtifactoryStoreAdapter) newClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = a.Retries
	client.RetryWaitMin = a.RetryDelay
	client.RetryWaitMax = maxArtifactoryRetryDelay
	if a.RetryDelay > client.RetryWaitMax {
		client.RetryWaitMax = a.RetryDelay
	}
	client.Logger = retryLogger{}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = a.Timeout
	if a.Insecure {
		if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // ssl_verify: false
		}
	}
	return client
}

type artifactoryRepository struct {
	Key         string `json:"key"`
	PackageType string `json:"packageType"`
	RClass      string `json:"rclass"`
}

type artifactoryStorage struct {
	Children []struct {
		URI    string `json:"uri"`
		Folder bool   `json:"folder"`
	} `json:"children"`
	Created      string      `json:"created"`
	LastModified string      `json:"lastModified"`
	Size         json.Number `json:"size"`
}

type artifactoryStats struct {
	LastDownloaded int64 `json:"lastDownloaded"`
	DownloadCount  int64 `json:"downloadCount"`
}

type artifactoryUsage struct {
	Results []struct {
		URI            string `json:"uri"`
		LastDownloaded string `json:"lastDownloaded"`
	} `json:"results"`
}

func (a *ArtifactoryStoreAdapter) LookupRepository(ctx context.Context, repoKey string) (types.RepositoryInfo, error) {
	var payload artifactoryRepository
	status, err := a.getJSON(ctx, a.apiURL("repositories", repoKey), &payload)
	if err != nil {
		if status == http.StatusNotFound || status == http.StatusBadRequest {
			return types.RepositoryInfo{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("repository %s not found", repoKey)).
				WithCause(err)
		}
		return types.RepositoryInfo{}, err
	}
	key := payload.Key
	if key == "" {
		key = repoKey
	}
	return types.RepositoryInfo{Key: key, PackageType: payload.PackageType, RClass: payload.RClass}, nil
}

func (a *ArtifactoryStoreAdapter) ListFolder(ctx context.Context, repoKey string, path string) ([]types.FolderEntry, error) {
	var payload artifactoryStorage
	if _, err := a.getJSON(ctx, a.apiURL("storage", repoKey, path), &payload); err != nil {
		return nil, err
	}
	entries := make([]types.FolderEntry, 0, len(payload.Children))
	for _, child := range payload.Children {
		name := strings.Trim(child.URI, "/")
		if name == "" {
			continue
		}
		entries = append(entries, types.FolderEntry{Name: name, IsFolder: child.Folder})
	}
	return entries, nil
}

func (a *ArtifactoryStoreAdapter) StatFile(ctx context.Context, repoKey string, path string) (types.FileStats, error) {
	var payload artifactoryStats
	if _, err := a.getJSON(ctx, a.apiURL("storage", repoKey, path)+"?stats", &payload); err != nil {
		return types.FileStats{}, err
	}
	return types.FileStats{
		LastDownloaded: parseEpochMillis(payload.LastDownloaded),
		DownloadCount:  payload.DownloadCount,
	}, nil
}

func (a *ArtifactoryStoreAdapter) FileInfo(ctx context.Context, repoKey string, path string) (types.FileInfo, error) {
	var payload artifactoryStorage
	if _, err := a.getJSON(ctx, a.apiURL("storage", repoKey, path), &payload); err != nil {
		return types.FileInfo{}, err
	}
	info := types.FileInfo{
		Created:      parseTimeFlexible(payload.Created),
		LastModified: parseTimeFlexible(payload.LastModified),
	}
	if payload.Size != "" {
		size, err := payload.Size.Int64()
		if err != nil {
			log.Debug().Err(err).Str("repo", repoKey).Str("path", path).Str("size", payload.Size.String()).Msg("ignoring unparsable artifact size")
		} else {
			info.Size = size
		}
	}
	return info, nil
}

// SearchUnused lists artifacts not downloaded since notUsedSince and created
// before it. Artifactory answers 404 when nothing matches.
func (a *ArtifactoryStoreAdapter) SearchUnused(ctx context.Context, repoKey string, notUsedSince time.Time) ([]types.UsageResult, error) {
	since := strconv.FormatInt(notUsedSince.UnixMilli(), 10)
	query := url.Values{}
	query.Set("notUsedSince", since)
	query.Set("createdBefore", since)
	query.Set("repos", repoKey)
	searchURL := a.apiURL("search", "usage") + "?" + query.Encode()

	var payload artifactoryUsage
	status, err := a.getJSON(ctx, searchURL, &payload)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	results := make([]types.UsageResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		path := storagePathFromURI(item.URI, repoKey)
		if path == "" {
			continue
		}
		results = append(results, types.UsageResult{
			Path:           path,
			LastDownloaded: parseTimeFlexible(item.LastDownloaded),
		})
	}
	return results, nil
}

// DeleteFile removes an artifact or folder. A 404 counts as deleted.
func (a *ArtifactoryStoreAdapter) DeleteFile(ctx context.Context, repoKey string, path string) error {
	if strings.Trim(path, "/") == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("refusing to delete repository root")
	}
	deleteURL := a.Endpoint + "/" + escapePath(repoKey) + "/" + escapePath(path)
	req, err := a.newRequest(ctx, http.MethodDelete, deleteURL)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("artifactory delete failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return statusError("artifactory delete failed", resp.StatusCode,
			shared.HTTPStatusErrorWithBody(resp.StatusCode, shared.RedactURL(deleteURL), string(body)))
	}
	return nil
}

func (a *ArtifactoryStoreAdapter) getJSON(ctx context.Context, reqURL string, out any) (int, error) {
	req, err := a.newRequest(ctx, http.MethodGet, reqURL)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("artifactory request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, statusError("artifactory request failed", resp.StatusCode,
			shared.HTTPStatusErrorWithBody(resp.StatusCode, shared.RedactURL(reqURL), string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse artifactory response").
			WithCause(err)
	}
	return resp.StatusCode, nil
}

func (a *ArtifactoryStoreAdapter) newRequest(ctx context.Context, method string, reqURL string) (*retryablehttp.Request, error) {
	if a.Endpoint == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifactory endpoint is empty")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifactory request").
			WithCause(err)
	}
	a.applyAuth(req)
	return req, nil
}

func (a *ArtifactoryStoreAdapter) applyAuth(req *retryablehttp.Request) {
	if a.APIKey != "" {
		req.Header.Set("X-JFrog-Art-Api", a.APIKey)
		return
	}
	if a.Username != "" {
		req.SetBasicAuth(a.Username, a.Password)
	}
}

func (a *ArtifactoryStoreAdapter) apiURL(kind string, repoKey string, path ...string) string {
	parts := []string{a.Endpoint, "api", kind, escapePath(repoKey)}
	for _, p := range path {
		if escaped := escapePath(p); escaped != "" {
			parts = append(parts, escaped)
		}
	}
	return strings.Join(parts, "/")
}

func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(segment))
	}
	return strings.Join(escaped, "/")
}

// storagePathFromURI turns .../api/storage/<repo>/<path> into <path>.
func storagePathFromURI(uri string, repoKey string) string {
	marker := "/api/storage/" + repoKey + "/"
	idx := strings.Index(uri, marker)
	if idx < 0 {
		return ""
	}
	raw := uri[idx+len(marker):]
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.Trim(raw, "/")
}

func statusError(msg string, status int, cause error) error {
	builder := errbuilder.New()
	switch status {
	case http.StatusNotFound:
		builder = builder.WithCode(errbuilder.CodeNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		builder = builder.WithCode(errbuilder.CodePermissionDenied)
	case http.StatusBadRequest:
		builder = builder.WithCode(errbuilder.CodeInvalidArgument)
	default:
		builder = builder.WithCode(errbuilder.CodeInternal)
	}
	return builder.WithMsg(msg).WithCause(cause)
}

func normalizeArtifactoryTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultArtifactoryTimeout
	}
	return timeout
}

// normalizeArtifactoryRetries maps 0 to the default and negative values to
// no retries.
func normalizeArtifactoryRetries(value int) int {
	if value < 0 {
		return 0
	}
	if value == 0 {
		return defaultArtifactoryRetries
	}
	return value
}

func normalizeArtifactoryRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultArtifactoryRetryDelay
	}
	return delay
}

// retryLogger routes retryablehttp messages to zerolog.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(keysAndValues).Msg(msg)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	log.Trace().Fields(keysAndValues).Msg(msg)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(keysAndValues).Msg(msg)
}

var _ ports.ArtifactStorePort = (*ArtifactoryStoreAdapter)(nil)
var _ retryablehttp.LeveledLogger = retryLogger{}
