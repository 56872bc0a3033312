package core

import (
	"context"
	"fmt"
	"path"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

// GenericCollector relies on the store's usage search, which applies the
// TTL server-side. There is no per-file metadata lookup.
type GenericCollector struct {
	Store ports.ArtifactStorePort
}

func NewGenericCollector(store ports.ArtifactStorePort) GenericCollector {
	return GenericCollector{Store: store}
}

func (c GenericCollector) Collect(ctx context.Context, repoKey string, cutoff time.Time, visit func(types.CandidateGroup) error) error {
	assert.NotEmpty(ctx, repoKey, "repository key must be set")
	if cutoff.IsZero() {
		log.Info().Str("repo", repoKey).Msg("no purge_ttl configured, skipping usage search")
		return visit(types.CandidateGroup{})
	}
	results, err := c.Store.SearchUnused(ctx, repoKey, cutoff)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to search unused artifacts of %s", repoKey)).
			WithCause(err)
	}
	candidates := make([]types.Candidate, 0, len(results))
	for _, result := range results {
		if result.Path == "" || hasReservedSegment(result.Path) {
			continue
		}
		log.Info().Str("repo", repoKey).Str("path", result.Path).Msg("processing file")
		candidates = append(candidates, types.Candidate{
			Path:           result.Path,
			Name:           path.Base(result.Path),
			LastDownloaded: result.LastDownloaded,
		})
	}
	return visit(types.CandidateGroup{Candidates: candidates})
}
