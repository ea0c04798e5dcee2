package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/overlap/pkg/dotdir"
)

// EnvPrefix is prepended to environment variable names, e.g.
// OVERLAP_EMBEDDING_API_KEY for embedding.api_key.
const EnvPrefix = "OVERLAP"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the OVERLAP_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (OVERLAP_API_LISTEN, OVERLAP_EMBEDDING_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves every key through v's precedence chain into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen:      v.GetString("api.listen"),
			CORSOrigins: getList(v, "api.cors_origins"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Corpus: CorpusConfig{
			Sources: getList(v, "corpus.sources"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			APIKey:     v.GetString("embedding.api_key"),
			Timeout:    v.GetString("embedding.timeout"),
			BatchSize:  v.GetUint("embedding.batch_size"),
		},
		Index: IndexConfig{
			Provider: v.GetString("index.provider"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
		},
		Events: EventsConfig{
			KafkaBrokers: getList(v, "events.kafka_brokers"),
			KafkaTopic:   v.GetString("events.kafka_topic"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			UseSSL:    v.GetBool("storage.use_ssl"),
			Region:    v.GetString("storage.region"),
		},
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	if _, err := cfg.Embedding.TimeoutDuration(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getList reads a list key. Environment values arrive as a single comma
// separated string, so every item is split again.
func getList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, SplitList(item)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range orderedKeys {
		v.SetDefault(key, defaultValue(d, key))
	}
}

// defaultValue returns the typed default for key so viper's getters and
// pflag defaults see the right kind.
func defaultValue(d *Config, key string) any {
	switch key {
	case "api.cors_origins":
		return d.API.CORSOrigins
	case "corpus.sources":
		return d.Corpus.Sources
	case "events.kafka_brokers":
		return d.Events.KafkaBrokers
	case "embedding.dimensions":
		return d.Embedding.Dimensions
	case "embedding.batch_size":
		return d.Embedding.BatchSize
	case "cache.redis_db":
		return d.Cache.RedisDB
	case "storage.use_ssl":
		return d.Storage.UseSSL
	default:
		return configKeys[key].get(d)
	}
}
