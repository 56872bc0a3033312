package ports

import "artycleaner/internal/types"

type ConfigSourcePort interface {
	Load(path string) (types.Config, error)
}
