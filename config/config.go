package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/embedius/semstore/schema"
	"github.com/embedius/semstore/store"
)

// Config is the YAML-backed configuration of a document store deployment.
type Config struct {
	Database struct {
		Path      string `yaml:"path"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Index struct {
		Kind           string `yaml:"kind"`
		M              int    `yaml:"m"`
		EfConstruction int    `yaml:"ef_construction"`
		EfSearch       int    `yaml:"ef_search"`
	} `yaml:"index"`

	Search struct {
		DefaultLimit int `yaml:"default_limit"`
		OverFetch    int `yaml:"over_fetch"`
	} `yaml:"search"`

	Embedding struct {
		Model string `yaml:"model"`
	} `yaml:"embedding"`
}

// Load reads the configuration from path. With an empty path it tries the
// default locations and falls back to a pure-default config when none exist.
// Environment variables override file values either way.
func Load(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"semstore.yaml",
			"semstore.yml",
			filepath.Join(os.Getenv("HOME"), ".config/semstore/config.yaml"),
			"/etc/semstore/config.yaml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Database.Path == "" {
		config.Database.Path = "semstore.sqlite"
	}
	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = schema.DefaultEmbeddingDim
	}

	if config.Index.Kind == "" {
		config.Index.Kind = store.IndexAuto
	}

	if config.Search.DefaultLimit == 0 {
		config.Search.DefaultLimit = 5
	}
	if config.Search.OverFetch == 0 {
		config.Search.OverFetch = 4
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = schema.DefaultEmbeddingModel
	}
}

func mergeWithEnv(config *Config) {
	if path := os.Getenv("SEMSTORE_DB_PATH"); path != "" {
		config.Database.Path = path
	}
	if table := os.Getenv("SEMSTORE_TABLE"); table != "" {
		config.Database.TableName = table
	}
	if model := os.Getenv("SEMSTORE_EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if limit := os.Getenv("SEMSTORE_DEFAULT_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			config.Search.DefaultLimit = n
		}
	}
}

// StoreConfig maps the loaded configuration onto the store's config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Table:        c.Database.TableName,
		Dimension:    c.Database.VectorDim,
		DefaultLimit: c.Search.DefaultLimit,
		IndexKind:    c.Index.Kind,
		OverFetch:    c.Search.OverFetch,
		HNSW: store.HNSWOptions{
			M:              c.Index.M,
			EfConstruction: c.Index.EfConstruction,
			EfSearch:       c.Index.EfSearch,
		},
	}
}
