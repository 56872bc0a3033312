package app

import (
	"time"

	"github.com/google/uuid"

	"artycleaner/internal/adapters"
	"artycleaner/internal/core"
	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

type Service struct {
	ConfigSource ports.ConfigSourcePort
	NewStore     func(api types.APIConfig) ports.ArtifactStorePort
	NewMetrics   func(path string) ports.MetricsPort
	Engine       core.RetentionEngine
	Clock        func() time.Time
	NewRunID     func() string
}

func NewService() Service {
	return Service{
		ConfigSource: adapters.NewConfigFileAdapter(),
		NewStore: func(api types.APIConfig) ports.ArtifactStorePort {
			return adapters.NewArtifactoryStoreAdapter(api)
		},
		NewMetrics: func(path string) ports.MetricsPort {
			return adapters.NewMetricsTextfileAdapter(path)
		},
		Engine:   core.NewRetentionEngine(),
		Clock:    time.Now,
		NewRunID: uuid.NewString,
	}
}
