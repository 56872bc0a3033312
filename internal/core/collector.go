package core

import (
	"context"
	"path"
	"strings"
	"time"

	"artycleaner/internal/policies"
	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

// CandidateCollector enumerates purge candidates of one repository and
// hands them to visit one group at a time. A group is fully read before
// visit is called, so the caller may delete from it before the next read.
type CandidateCollector interface {
	Collect(ctx context.Context, repoKey string, cutoff time.Time, visit func(types.CandidateGroup) error) error
}

func NewCollector(packageType types.PackageType, store ports.ArtifactStorePort) CandidateCollector {
	switch packageType {
	case types.PackageTypeDocker:
		return NewDockerCollector(store)
	default:
		return NewGenericCollector(store)
	}
}

func hasReservedSegment(p string) bool {
	for _, segment := range strings.Split(path.Clean(p), "/") {
		if policies.IsReserved(segment) {
			return true
		}
	}
	return false
}
