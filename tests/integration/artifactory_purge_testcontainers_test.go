//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"artycleaner/internal/app"
)

func TestPurgeAgainstArtifactoryMock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers test in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startArtifactoryMock(ctx, t)
	t.Cleanup(cleanup)

	configPath := filepath.Join(t.TempDir(), "artycleaner.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
api:
  endpoint: %s/artifactory
  username: cleaner
  password: secret
  retries: 1
  retry_delay_ms: 50
defaults:
  purge_ttl: 30 days
  keep_tags: 2
repos:
  docker-local:
    keep_tags: 3
    exclude_tags: ['^latest$']
  generic-local:
    exclude_pattern: ['^releases/']
  missing-repo:
`, endpoint)), 0o644))

	service := app.NewService()

	dryRun, err := service.Purge(ctx, app.PurgeRequest{ConfigPath: configPath, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, dryRun.Report.TotalDeleted())
	assert.Empty(t, fetchDeleted(t, endpoint))

	result, err := service.Purge(ctx, app.PurgeRequest{ConfigPath: configPath})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Report.TotalDeleted())
	assert.Zero(t, result.Report.TotalFailed())
	require.Len(t, result.Report.Repositories, 3)
	assert.NotEmpty(t, result.Report.Repositories[2].Errors)

	deleted := fetchDeleted(t, endpoint)
	sort.Strings(deleted)
	assert.Equal(t, []string{"docker-local/app/v1", "generic-local/builds/x.tar.gz"}, deleted)
}

func fetchDeleted(t *testing.T, endpoint string) []string {
	t.Helper()
	resp, err := http.Get(endpoint + "/__deleted")
	require.NoError(t, err)
	defer resp.Body.Close()
	var deleted []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deleted))
	return deleted
}

func startArtifactoryMock(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8082/tcp"},
		Cmd:          []string{"python", "-c", artifactoryMockScript},
		WaitingFor:   wait.ForListeningPort("8082/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8082/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return endpoint, cleanup
}

// The mock serves a docker-local repository with app:{v1,v2,v3,latest} and a
// generic-local repository whose usage search returns one stale build.
const artifactoryMockScript = `
import json, time
from datetime import datetime, timezone, timedelta
from http.server import BaseHTTPRequestHandler, HTTPServer
from urllib.parse import urlparse, parse_qs

DAY = 86400
NOW = time.time()
deleted = []

def iso(days):
    ts = datetime.fromtimestamp(NOW - days * DAY, tz=timezone.utc)
    return ts.strftime("%Y-%m-%dT%H:%M:%S.000+0000")

def ms(days):
    return int((NOW - days * DAY) * 1000)

TAGS = {"v1": 100, "v2": 90, "v3": 1, "latest": 200}
REPOS = {"docker-local": "Docker", "generic-local": "Generic"}

class Handler(BaseHTTPRequestHandler):
    def send(self, code, body):
        data = json.dumps(body).encode()
        self.send_response(code)
        self.send_header("Content-Type", "application/json")
        self.send_header("Content-Length", str(len(data)))
        self.end_headers()
        self.wfile.write(data)

    def do_GET(self):
        url = urlparse(self.path)
        parts = [p for p in url.path.split("/") if p]
        if url.path == "/__deleted":
            return self.send(200, deleted)
        if parts[:3] == ["artifactory", "api", "repositories"]:
            key = parts[3]
            if key in REPOS:
                return self.send(200, {"key": key, "packageType": REPOS[key], "rclass": "local"})
            return self.send(400, {"errors": [{"status": 400, "message": "Bad Request"}]})
        if parts[:3] == ["artifactory", "api", "search"]:
            query = parse_qs(url.query)
            if query.get("repos") != ["generic-local"]:
                return self.send(404, {"errors": [{"status": 404, "message": "No results found."}]})
            base = "http://%s/artifactory/api/storage/generic-local/" % self.headers["Host"]
            return self.send(200, {"results": [
                {"uri": base + "builds/x.tar.gz", "lastDownloaded": iso(45)},
                {"uri": base + "releases/1.0.tar.gz", "lastDownloaded": iso(400)},
                {"uri": base + "_uploads/partial"},
            ]})
        if parts[:4] == ["artifactory", "api", "storage", "docker-local"]:
            rest = parts[4:]
            if not rest:
                return self.send(200, {"children": [{"uri": "/app", "folder": True}, {"uri": "/_uploads", "folder": True}]})
            if rest == ["app"]:
                return self.send(200, {"children": [{"uri": "/" + t, "folder": True} for t in TAGS]})
            if len(rest) == 3 and rest[0] == "app" and rest[2] == "manifest.json" and rest[1] in TAGS:
                age = TAGS[rest[1]]
                if url.query == "stats":
                    return self.send(200, {"lastDownloaded": ms(age), "downloadCount": 1})
                return self.send(200, {"created": iso(age + 10), "lastModified": iso(age + 10), "size": "512"})
        return self.send(404, {"errors": [{"status": 404, "message": "Not Found"}]})

    def do_DELETE(self):
        parts = [p for p in urlparse(self.path).path.split("/") if p]
        deleted.append("/".join(parts[1:]))
        self.send_response(204)
        self.end_headers()

    def log_message(self, *args):
        pass

HTTPServer(("0.0.0.0", 8082), Handler).serve_forever()
`
