package policies

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"

	"artycleaner/internal/types"
)

// ReservedNames are never purge candidates, whatever the policy says.
var ReservedNames = map[string]struct{}{
	"_uploads": {},
}

func IsReserved(name string) bool {
	_, ok := ReservedNames[name]
	return ok
}

// RetentionPolicy is the effective policy of one repository.
type RetentionPolicy struct {
	Repository      string
	TTL             time.Duration
	KeepTags        int
	ExcludePatterns PatternSet
	IncludePatterns PatternSet
	ExcludeTags     PatternSet
	IncludeTags     PatternSet
	Source          types.RepositoryPolicy
}

// ResolvePolicy merges the repository override onto the defaults and
// compiles the result. Any returned error is a configuration error.
func ResolvePolicy(repoKey string, defaults map[string]any, override map[string]any) (RetentionPolicy, error) {
	merged := MergeTree(defaults, override)
	source, err := decodeRepositoryPolicy(merged)
	if err != nil {
		return RetentionPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid configuration for repository %s", repoKey)).
			WithCause(err)
	}
	return NewRetentionPolicy(repoKey, source)
}

func NewRetentionPolicy(repoKey string, source types.RepositoryPolicy) (RetentionPolicy, error) {
	if source.KeepTags < 0 {
		return RetentionPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("keep_tags must not be negative for repository %s", repoKey))
	}
	policy := RetentionPolicy{
		Repository: repoKey,
		KeepTags:   source.KeepTags,
		Source:     source,
	}
	ttl, err := ParseHumanDuration(source.PurgeTTL)
	if err != nil {
		log.Warn().
			Str("repo", repoKey).
			Str("purge_ttl", source.PurgeTTL).
			Msg("unparsable purge_ttl, artifacts will not be purged by age")
		ttl = 0
	}
	if ttl > 0 {
		policy.TTL = ttl
	}
	lists := []struct {
		key    string
		values []string
		target *PatternSet
	}{
		{"exclude_pattern", source.ExcludePattern, &policy.ExcludePatterns},
		{"include_pattern", source.IncludePattern, &policy.IncludePatterns},
		{"exclude_tags", source.ExcludeTags, &policy.ExcludeTags},
		{"include_tags", source.IncludeTags, &policy.IncludeTags},
	}
	for _, list := range lists {
		set, err := CompilePatterns(list.values)
		if err != nil {
			return RetentionPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid %s for repository %s", list.key, repoKey)).
				WithCause(err)
		}
		*list.target = set
	}
	return policy, nil
}

func decodeRepositoryPolicy(tree map[string]any) (types.RepositoryPolicy, error) {
	var policy types.RepositoryPolicy
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &policy,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return types.RepositoryPolicy{}, err
	}
	if err := decoder.Decode(tree); err != nil {
		return types.RepositoryPolicy{}, err
	}
	return policy, nil
}

// ExcludesName reports whether an image name or file path is protected by
// exclude_pattern and not re-admitted by include_pattern.
func (p RetentionPolicy) ExcludesName(name string) bool {
	return resolveExclusion(p.ExcludePatterns, p.IncludePatterns, name)
}

// ExcludesTag is ExcludesName for tag names.
func (p RetentionPolicy) ExcludesTag(tag string) bool {
	return resolveExclusion(p.ExcludeTags, p.IncludeTags, tag)
}

// Cutoff is the instant before which artifacts are stale, or the zero time
// when the policy has no TTL.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	if p.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(-p.TTL)
}

func (p RetentionPolicy) MinimumTags() int {
	return p.KeepTags
}

// ResolvePolicies resolves every configured repository, in configuration
// order, failing on the first invalid one.
func ResolvePolicies(cfg types.Config) ([]RetentionPolicy, error) {
	resolved := make([]RetentionPolicy, 0, len(cfg.Repos))
	for _, repo := range cfg.Repos {
		policy, err := ResolvePolicy(repo.Key, cfg.Defaults, repo.Policy)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, policy)
	}
	return resolved, nil
}
