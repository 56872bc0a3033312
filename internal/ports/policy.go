package ports

import "time"

type RetentionPolicyPort interface {
	ExcludesName(name string) bool
	ExcludesTag(tag string) bool
	Cutoff(now time.Time) time.Time
	MinimumTags() int
}
