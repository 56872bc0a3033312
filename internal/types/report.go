package types

import "time"

type DeleteFailure struct {
	Path string
	Err  error
}

type PurgeOutcome struct {
	Deleted  []string
	Failures []DeleteFailure
	DryRun   bool
}

type RepositoryReport struct {
	Key           string
	PackageType   PackageType
	Candidates    int
	Kept          int
	Deleted       int
	Failed        int
	SkippedImages int
	Errors        []string
}

type RunReport struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	DryRun       bool
	Interrupted  bool
	Repositories []RepositoryReport
}

func (r RunReport) TotalDeleted() int {
	total := 0
	for _, repo := range r.Repositories {
		total += repo.Deleted
	}
	return total
}

func (r RunReport) TotalFailed() int {
	total := 0
	for _, repo := range r.Repositories {
		total += repo.Failed
	}
	return total
}
