package types

import "time"

// RepositoryPolicy is the retention configuration of one repository after
// the repository override has been merged onto the defaults.
type RepositoryPolicy struct {
	PurgeTTL       string   `mapstructure:"purge_ttl"`
	ExcludePattern []string `mapstructure:"exclude_pattern"`
	IncludePattern []string `mapstructure:"include_pattern"`
	ExcludeTags    []string `mapstructure:"exclude_tags"`
	IncludeTags    []string `mapstructure:"include_tags"`
	KeepTags       int      `mapstructure:"keep_tags"`
}

// Candidate is a file or Docker tag considered for deletion. Zero
// timestamps were not reported by the store.
type Candidate struct {
	Path           string
	Name           string
	Scope          string
	LastDownloaded time.Time
	Created        time.Time
	LastModified   time.Time
}

// LastUsed returns the timestamp used to order candidates by recency.
func (c Candidate) LastUsed() time.Time {
	switch {
	case !c.LastDownloaded.IsZero():
		return c.LastDownloaded
	case !c.Created.IsZero():
		return c.Created
	default:
		return c.LastModified
	}
}

// FreshAt reports whether any known timestamp is at or after cutoff. A zero
// cutoff means there is no TTL, so everything is fresh.
func (c Candidate) FreshAt(cutoff time.Time) bool {
	if cutoff.IsZero() {
		return true
	}
	for _, ts := range []time.Time{c.LastDownloaded, c.Created, c.LastModified} {
		if !ts.IsZero() && !ts.Before(cutoff) {
			return true
		}
	}
	return false
}

// CandidateGroup is the unit handed from a collector to the engine: all tags
// of one image, or all files of a generic repository.
type CandidateGroup struct {
	Scope      string
	Candidates []Candidate
	Err        error
}

type PurgeDecision struct {
	Candidate Candidate
	Keep      bool
	Reason    KeepReason
}

type PurgePlan struct {
	Scope      string
	Decisions  []PurgeDecision
	Keep       []Candidate
	Delete     []Candidate
	Skipped    bool
	SkipReason string
}

// DeletePaths lists the paths of the delete set in plan order.
func (p PurgePlan) DeletePaths() []string {
	paths := make([]string, 0, len(p.Delete))
	for _, candidate := range p.Delete {
		paths = append(paths, candidate.Path)
	}
	return paths
}
