package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"artycleaner/internal/core"
	"artycleaner/internal/policies"
	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

// Purge applies the configured retention policies to every repository in
// configuration order. Configuration problems are returned before the store
// is contacted; store failures are logged and skip the affected repository
// or image. Cancellation stops the run early without an error; the report
// is marked interrupted.
func (s Service) Purge(ctx context.Context, req PurgeRequest) (PurgeResult, error) {
	cfg, err := s.loadConfig(req)
	if err != nil {
		return PurgeResult{}, err
	}
	resolved, err := policies.ResolvePolicies(cfg)
	if err != nil {
		return PurgeResult{}, err
	}

	report := types.RunReport{
		RunID:     s.runID(),
		StartedAt: timeNow(s.Clock),
		DryRun:    req.DryRun,
	}
	runLog := log.With().Str("run_id", report.RunID).Logger()
	runLog.Info().Bool("dry_run", req.DryRun).Int("repositories", len(resolved)).Msg("purge started")

	store := s.NewStore(cfg.API)
	executor := NewPurgeExecutor(store, req.DryRun)
	for _, policy := range resolved {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			runLog.Warn().Err(err).Str("next_repo", policy.Repository).Msg("purge interrupted, remaining repositories skipped")
			break
		}
		repoReport := s.purgeRepository(ctx, store, executor, policy, report.StartedAt)
		report.Repositories = append(report.Repositories, repoReport)
	}
	report.FinishedAt = timeNow(s.Clock)
	if ctx.Err() != nil {
		report.Interrupted = true
	}

	runLog.Info().
		Int("deleted", report.TotalDeleted()).
		Int("failed", report.TotalFailed()).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Bool("interrupted", report.Interrupted).
		Msg("purge finished")
	if failed := report.TotalFailed(); failed > 0 {
		runLog.Warn().Int("failed", failed).Msg("some deletions failed")
	}
	s.writeMetrics(req.MetricsFile, report)
	return PurgeResult{Report: report}, nil
}

func (s Service) loadConfig(req PurgeRequest) (types.Config, error) {
	if s.ConfigSource == nil {
		return types.Config{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no configuration source")
	}
	cfg, err := s.ConfigSource.Load(req.ConfigPath)
	if err != nil {
		return types.Config{}, err
	}
	cfg.API = applyAPIOverrides(cfg.API, req.Overrides)
	if strings.TrimSpace(cfg.API.Endpoint) == "" {
		return types.Config{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("api.endpoint is required")
	}
	return cfg, nil
}

func applyAPIOverrides(api types.APIConfig, overrides APIOverrides) types.APIConfig {
	if value := strings.TrimSpace(overrides.Endpoint); value != "" {
		api.Endpoint = value
	}
	if value := strings.TrimSpace(overrides.Username); value != "" {
		api.Username = value
	}
	if overrides.Password != "" {
		api.Password = overrides.Password
	}
	if value := strings.TrimSpace(overrides.APIKey); value != "" {
		api.APIKey = value
	}
	return api
}

func (s Service) purgeRepository(ctx context.Context, store ports.ArtifactStorePort, executor PurgeExecutor, policy policies.RetentionPolicy, now time.Time) types.RepositoryReport {
	repoKey := policy.Repository
	report := types.RepositoryReport{Key: repoKey}
	repoLog := log.With().Str("repo", repoKey).Logger()

	info, err := store.LookupRepository(ctx, repoKey)
	if err != nil {
		repoLog.Error().Err(err).Msg("repository lookup failed, skipping")
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.PackageType = types.ParsePackageType(info.PackageType)
	repoLog.Info().
		Str("package_type", string(report.PackageType)).
		Str("purge_ttl", policy.Source.PurgeTTL).
		Int("keep_tags", policy.KeepTags).
		Msg("processing repository")

	collector := core.NewCollector(report.PackageType, store)
	err = collector.Collect(ctx, repoKey, policy.Cutoff(now), func(group types.CandidateGroup) error {
		if group.Err != nil {
			repoLog.Error().Err(group.Err).Str("image", group.Scope).Msg("failed to read image, skipping")
			report.SkippedImages++
			report.Errors = append(report.Errors, group.Err.Error())
			return nil
		}
		var plan types.PurgePlan
		if report.PackageType == types.PackageTypeDocker {
			plan = s.Engine.PlanImage(group.Scope, group.Candidates, policy, now)
			if plan.Skipped {
				report.SkippedImages++
			}
		} else {
			plan = s.Engine.PlanGeneric(repoKey, group.Candidates, policy)
		}
		report.Candidates += len(plan.Decisions)
		report.Kept += len(plan.Keep)

		outcome := executor.Execute(ctx, repoKey, plan.DeletePaths())
		report.Deleted += len(outcome.Deleted)
		report.Failed += len(outcome.Failures)
		for _, failure := range outcome.Failures {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", failure.Path, failure.Err))
		}
		return nil
	})
	if err != nil {
		repoLog.Error().Err(err).Msg("failed to collect purge candidates, skipping")
		report.Errors = append(report.Errors, err.Error())
	}

	event := repoLog.Info()
	if report.Failed > 0 {
		event = repoLog.Warn()
	}
	event.
		Int("candidates", report.Candidates).
		Int("kept", report.Kept).
		Int("deleted", report.Deleted).
		Int("failed", report.Failed).
		Int("skipped_images", report.SkippedImages).
		Bool("dry_run", executor.DryRun).
		Msg("repository done")
	return report
}

func (s Service) writeMetrics(path string, report types.RunReport) {
	if strings.TrimSpace(path) == "" || s.NewMetrics == nil {
		return
	}
	if err := s.NewMetrics(path).WriteReport(report); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to write metrics file")
	}
}

func (s Service) runID() string {
	if s.NewRunID == nil {
		return ""
	}
	return s.NewRunID()
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
