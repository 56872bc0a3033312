package adapters

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"artycleaner/internal/policies"
	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

type ConfigFileAdapter struct{}

func NewConfigFileAdapter() ConfigFileAdapter {
	return ConfigFileAdapter{}
}

type configDocument struct {
	API      types.APIConfig `yaml:"api"`
	Defaults map[string]any  `yaml:"defaults"`
	Repos    yaml.Node       `yaml:"repos"`
}

// Load reads the configuration file. The repos mapping is walked as a node
// so repositories are processed in the order they were written.
func (a ConfigFileAdapter) Load(path string) (types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("config file %s could not be read", path)).
			WithCause(err)
	}
	return a.Parse(data)
}

func (a ConfigFileAdapter) Parse(data []byte) (types.Config, error) {
	var doc configDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && err != io.EOF {
		return types.Config{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse config yaml").
			WithCause(err)
	}
	defaults, err := policies.NormalizeMap(doc.Defaults)
	if err != nil {
		return types.Config{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("defaults must be a mapping").
			WithCause(err)
	}
	repos, err := decodeRepos(&doc.Repos)
	if err != nil {
		return types.Config{}, err
	}
	return types.Config{API: doc.API, Defaults: defaults, Repos: repos}, nil
}

func decodeRepos(node *yaml.Node) ([]types.RepoConfig, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("repos must be a mapping (line %d)", node.Line))
	}
	seen := map[string]struct{}{}
	repos := make([]types.RepoConfig, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]
		key := strings.TrimSpace(keyNode.Value)
		if key == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("empty repository key (line %d)", keyNode.Line))
		}
		if _, dup := seen[key]; dup {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("repository %s is configured twice (line %d)", key, keyNode.Line))
		}
		seen[key] = struct{}{}

		policy := map[string]any{}
		if valueNode.Tag != "!!null" {
			var raw any
			if err := valueNode.Decode(&raw); err != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid configuration for repository %s", key)).
					WithCause(err)
			}
			normalized, err := policies.NormalizeMap(raw)
			if err != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("configuration for repository %s must be a mapping", key)).
					WithCause(err)
			}
			policy = normalized
		}
		repos = append(repos, types.RepoConfig{Key: key, Policy: policy})
	}
	return repos, nil
}

var _ ports.ConfigSourcePort = ConfigFileAdapter{}
