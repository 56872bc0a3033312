package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"artycleaner/internal/policies"
	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

type RetentionEngine struct{}

func NewRetentionEngine() RetentionEngine {
	return RetentionEngine{}
}

// PlanImage partitions the tags of one image into keep and delete sets.
// Tags are kept when protected by a pattern or fresh; if that leaves fewer
// than the policy minimum, the most recently used stale tags are kept back.
// When the minimum still cannot be met the plan is skipped and deletes
// nothing.
func (e RetentionEngine) PlanImage(image string, tags []types.Candidate, policy ports.RetentionPolicyPort, now time.Time) types.PurgePlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cutoff := policy.Cutoff(now)
	plan := types.PurgePlan{Scope: image}

	imageExcluded := policy.ExcludesName(image)
	if imageExcluded {
		log.Info().Str("image", image).Msg("docker image will be excluded from purge")
	}

	var stale []types.Candidate
	for _, tag := range tags {
		if policies.IsReserved(tag.Name) {
			continue
		}
		switch {
		case imageExcluded:
			plan.Decisions = append(plan.Decisions, keepDecision(tag, types.KeepReasonExcluded))
		case policy.ExcludesTag(tag.Name):
			log.Info().Str("image", image).Str("tag", tag.Name).Msg("image tag will be excluded from purge")
			plan.Decisions = append(plan.Decisions, keepDecision(tag, types.KeepReasonExcluded))
		case tag.FreshAt(cutoff):
			plan.Decisions = append(plan.Decisions, keepDecision(tag, types.KeepReasonFresh))
		default:
			stale = append(stale, tag)
		}
	}

	kept := len(plan.Decisions)
	minimum := policy.MinimumTags()
	needed := minimum - kept
	if needed > 0 && len(stale) > needed {
		sortByRecency(stale)
		for _, tag := range stale[:needed] {
			plan.Decisions = append(plan.Decisions, keepDecision(tag, types.KeepReasonBackfill))
		}
		stale = stale[needed:]
		kept += needed
	}
	for _, tag := range stale {
		plan.Decisions = append(plan.Decisions, types.PurgeDecision{Candidate: tag})
	}
	plan.Keep, plan.Delete = splitDecisions(plan.Decisions)

	if kept < minimum {
		plan.Skipped = true
		plan.SkipReason = fmt.Sprintf("minimum number of tags to keep not met (%d of %d)", kept, minimum)
		plan.Delete = nil
		log.Info().
			Str("image", image).
			Int("kept", kept).
			Int("keep_tags", minimum).
			Msg("skipping purge for image, minimum number of tags to keep not met")
	}
	return plan
}

// PlanGeneric deletes every collected file not protected by a name pattern.
// The collector has already applied the TTL and there is no minimum.
func (e RetentionEngine) PlanGeneric(repoKey string, files []types.Candidate, policy ports.RetentionPolicyPort) types.PurgePlan {
	plan := types.PurgePlan{Scope: repoKey}
	for _, file := range files {
		if hasReservedSegment(file.Path) {
			continue
		}
		if policy.ExcludesName(file.Path) {
			log.Info().Str("repo", repoKey).Str("path", file.Path).Msg("file will be excluded from purge")
			plan.Decisions = append(plan.Decisions, keepDecision(file, types.KeepReasonExcluded))
			continue
		}
		plan.Decisions = append(plan.Decisions, types.PurgeDecision{Candidate: file})
	}
	plan.Keep, plan.Delete = splitDecisions(plan.Decisions)
	return plan
}

func keepDecision(candidate types.Candidate, reason types.KeepReason) types.PurgeDecision {
	return types.PurgeDecision{Candidate: candidate, Keep: true, Reason: reason}
}

func splitDecisions(decisions []types.PurgeDecision) ([]types.Candidate, []types.Candidate) {
	var keep []types.Candidate
	var del []types.Candidate
	for _, decision := range decisions {
		if decision.Keep {
			keep = append(keep, decision.Candidate)
		} else {
			del = append(del, decision.Candidate)
		}
	}
	return keep, del
}

// sortByRecency orders most recently used first; never-used candidates sort
// last. Ties are broken by path so plans are deterministic.
func sortByRecency(candidates []types.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a := candidates[i].LastUsed()
		b := candidates[j].LastUsed()
		if !a.Equal(b) {
			return a.After(b)
		}
		return candidates[i].Path < candidates[j].Path
	})
}
