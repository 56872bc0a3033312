package ports

import "artycleaner/internal/types"

type MetricsPort interface {
	WriteReport(report types.RunReport) error
}
