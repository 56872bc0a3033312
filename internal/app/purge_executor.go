package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

// PurgeExecutor deletes the paths of a plan. Failures are recorded and the
// remaining paths are still attempted.
type PurgeExecutor struct {
	Store  ports.ArtifactStorePort
	DryRun bool
}

func NewPurgeExecutor(store ports.ArtifactStorePort, dryRun bool) PurgeExecutor {
	return PurgeExecutor{Store: store, DryRun: dryRun}
}

func (e PurgeExecutor) Execute(ctx context.Context, repoKey string, paths []string) types.PurgeOutcome {
	outcome := types.PurgeOutcome{DryRun: e.DryRun}
	for _, p := range paths {
		if e.DryRun {
			log.Warn().Str("repo", repoKey).Str("path", p).Msg("dry run, would delete")
			outcome.Deleted = append(outcome.Deleted, p)
			continue
		}
		if err := ctx.Err(); err != nil {
			outcome.Failures = append(outcome.Failures, types.DeleteFailure{Path: p, Err: err})
			continue
		}
		log.Info().Str("repo", repoKey).Str("path", p).Msg("deleting")
		if err := e.Store.DeleteFile(ctx, repoKey, p); err != nil {
			log.Warn().Err(err).Str("repo", repoKey).Str("path", p).Msg("delete failed")
			outcome.Failures = append(outcome.Failures, types.DeleteFailure{Path: p, Err: err})
			continue
		}
		outcome.Deleted = append(outcome.Deleted, p)
	}
	return outcome
}
