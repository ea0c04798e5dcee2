package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent overlap configuration stored as
// config.toml in the .overlap/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	API       APIConfig       `toml:"api"`
	Client    ClientConfig    `toml:"client"`
	Corpus    CorpusConfig    `toml:"corpus"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Index     IndexConfig     `toml:"index"`
	Cache     CacheConfig     `toml:"cache"`
	Events    EventsConfig    `toml:"events"`
	Storage   StorageConfig   `toml:"storage"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen      string   `toml:"listen,omitempty"`
	CORSOrigins []string `toml:"cors_origins,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. overlap check, overlap compare). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// CorpusConfig lists the reference sources loaded at startup.
type CorpusConfig struct {
	Sources []string `toml:"sources,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
	BatchSize  uint   `toml:"batch_size,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (e EmbeddingConfig) TimeoutDuration() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid embedding.timeout %q: %w", e.Timeout, err)
	}
	return d, nil
}

// IndexConfig selects the similarity index backend.
type IndexConfig struct {
	Provider string `toml:"provider,omitempty"`
}

// CacheConfig enables the Redis embedding cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`
}

// EventsConfig enables Kafka check events when brokers are set.
type EventsConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `toml:"kafka_topic,omitempty"`
}

// StorageConfig holds the S3-compatible object store used by s3:// corpus
// sources.
type StorageConfig struct {
	Endpoint  string `toml:"endpoint,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
	UseSSL    bool   `toml:"use_ssl,omitempty"`
	Region    string `toml:"region,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// listKey stores comma separated values as a TOML array.
func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error { *field(c) = SplitList(v); return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// SplitList splits a comma separated value, dropping blank items.
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":       stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.cors_origins": listKey(func(c *Config) *[]string { return &c.API.CORSOrigins }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"corpus.sources": listKey(func(c *Config) *[]string { return &c.Corpus.Sources }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.timeout": {
		get: func(c *Config) string { return c.Embedding.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for embedding.timeout: %w", err)
			}
			c.Embedding.Timeout = v
			return nil
		},
	},
	"embedding.batch_size": uintKey("embedding.batch_size", func(c *Config) *uint { return &c.Embedding.BatchSize }),

	"index.provider": stringKey(func(c *Config) *string { return &c.Index.Provider }),

	"cache.redis_addr":     stringKey(func(c *Config) *string { return &c.Cache.RedisAddr }),
	"cache.redis_password": stringKey(func(c *Config) *string { return &c.Cache.RedisPassword }),
	"cache.redis_db": {
		get: func(c *Config) string { return strconv.Itoa(c.Cache.RedisDB) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for cache.redis_db: %q", v)
			}
			c.Cache.RedisDB = n
			return nil
		},
	},

	"events.kafka_brokers": listKey(func(c *Config) *[]string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":   stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),

	"storage.endpoint":   stringKey(func(c *Config) *string { return &c.Storage.Endpoint }),
	"storage.access_key": stringKey(func(c *Config) *string { return &c.Storage.AccessKey }),
	"storage.secret_key": stringKey(func(c *Config) *string { return &c.Storage.SecretKey }),
	"storage.use_ssl": {
		get: func(c *Config) string { return strconv.FormatBool(c.Storage.UseSSL) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for storage.use_ssl: %w", err)
			}
			c.Storage.UseSSL = b
			return nil
		},
	},
	"storage.region": stringKey(func(c *Config) *string { return &c.Storage.Region }),
}

// orderedKeys is the display order of configKeys, matching the TOML layout.
var orderedKeys = []string{
	"api.listen",
	"api.cors_origins",
	"client.api_target",
	"corpus.sources",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"embedding.timeout",
	"embedding.batch_size",
	"index.provider",
	"cache.redis_addr",
	"cache.redis_password",
	"cache.redis_db",
	"events.kafka_brokers",
	"events.kafka_topic",
	"storage.endpoint",
	"storage.access_key",
	"storage.secret_key",
	"storage.use_ssl",
	"storage.region",
}

// secretKeys are masked by overlap config list.
var secretKeys = map[string]bool{
	"embedding.api_key":    true,
	"cache.redis_password": true,
	"storage.secret_key":   true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
