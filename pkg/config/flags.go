package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on both "overlap check" and "overlap compare").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddStringSliceFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagSource         = "source"
	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagEmbeddingDims  = "embedding-dimensions"
	FlagEmbeddingTmo   = "embedding-timeout"
	FlagIndexProvider  = "index-provider"
	FlagCacheAddr      = "cache-redis-addr"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagAPITarget      = "api-target"
)

// Flags is the registry shared by every command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagSource: {
		Name:        "source",
		Shorthand:   "s",
		ViperKey:    "corpus.sources",
		Description: "Corpus source (CSV path, s3://bucket/key, postgres://...?table=, sqlite://path?table=); repeatable",
	},
	FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (hashing, ollama, openai)",
	},
	FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider base URL",
	},
	FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding dimensions (hashing and openai providers)",
	},
	FlagEmbeddingTmo: {
		Name:        "embedding-timeout",
		ViperKey:    "embedding.timeout",
		Description: "Timeout for each embedding provider call",
	},
	FlagIndexProvider: {
		Name:        "index-provider",
		ViperKey:    "index.provider",
		Description: "Similarity index backend (memory, sqlite)",
	},
	FlagCacheAddr: {
		Name:        "cache-redis-addr",
		ViperKey:    "cache.redis_addr",
		Description: "Redis address for the embedding cache (disabled when empty)",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "events.kafka_brokers",
		Description: "Kafka brokers for check events (disabled when empty)",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.kafka_topic",
		Description: "Kafka topic for check events",
	},
	FlagAPITarget: {
		Name:        "api-target",
		ViperKey:    "client.api_target",
		Description: "Overlap API server URL",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a repeatable string flag on cmd from the given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *[]string) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// Resolve builds the effective Config for cmd: it reads config.toml from the
// --config-dir resolution, binds the given registry flags and applies
// environment overrides.
func Resolve(cmd *cobra.Command, fs FlagSet, registryKeys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, fs, registryKeys)

	cfg, err := FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
