package core

import (
	"context"
	"fmt"
	"path"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"artycleaner/internal/policies"
	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

const dockerManifestFile = "manifest.json"

type DockerCollector struct {
	Store ports.ArtifactStorePort
}

func NewDockerCollector(store ports.ArtifactStorePort) DockerCollector {
	return DockerCollector{Store: store}
}

// Collect yields one group per image. Failing to list the images fails the
// repository; failing to read one image yields a group carrying the error.
func (c DockerCollector) Collect(ctx context.Context, repoKey string, _ time.Time, visit func(types.CandidateGroup) error) error {
	assert.NotEmpty(ctx, repoKey, "repository key must be set")
	images, err := c.Images(ctx, repoKey)
	if err != nil {
		return err
	}
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info().Str("repo", repoKey).Str("image", image).Msg("processing image")
		tags, readErr := c.Tags(ctx, repoKey, image)
		if err := visit(types.CandidateGroup{Scope: image, Candidates: tags, Err: readErr}); err != nil {
			return err
		}
	}
	return nil
}

func (c DockerCollector) Images(ctx context.Context, repoKey string) ([]string, error) {
	images, err := c.folders(ctx, repoKey, "")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to list images of %s", repoKey)).
			WithCause(err)
	}
	return images, nil
}

// Tags reads usage statistics and metadata of every tag manifest of image.
func (c DockerCollector) Tags(ctx context.Context, repoKey string, image string) ([]types.Candidate, error) {
	names, err := c.folders(ctx, repoKey, image)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to list tags of %s", image)).
			WithCause(err)
	}
	candidates := make([]types.Candidate, 0, len(names))
	for _, tag := range names {
		tagPath := path.Join(image, tag)
		manifest := path.Join(tagPath, dockerManifestFile)
		stats, err := c.Store.StatFile(ctx, repoKey, manifest)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to read statistics of %s", tagPath)).
				WithCause(err)
		}
		info, err := c.Store.FileInfo(ctx, repoKey, manifest)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to read metadata of %s", tagPath)).
				WithCause(err)
		}
		candidate := types.Candidate{
			Path:           tagPath,
			Name:           tag,
			Scope:          image,
			LastDownloaded: stats.LastDownloaded,
			Created:        info.Created,
			LastModified:   info.LastModified,
		}
		log.Debug().
			Str("repo", repoKey).
			Str("image", image).
			Str("tag", tag).
			Str("last_used", humanTime(candidate.LastUsed())).
			Msg("processing image tag")
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func (c DockerCollector) folders(ctx context.Context, repoKey string, dir string) ([]string, error) {
	entries, err := c.Store.ListFolder(ctx, repoKey, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsFolder || policies.IsReserved(entry.Name) {
			continue
		}
		names = append(names, entry.Name)
	}
	return names, nil
}

func humanTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return humanize.Time(ts)
}
