package config

const (
	defaultAPIListen       = ":8000"
	defaultClientAPITarget = "http://localhost:8000"

	defaultEmbeddingProvider   = "hashing"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384
	defaultEmbeddingTimeout    = "30s"
	defaultEmbeddingBatchSize  = 64

	defaultIndexProvider = "memory"

	defaultKafkaTopic = "overlap.checks"
)

var (
	defaultCORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	defaultSources     = []string{"medium_articles_1.csv", "medium_articles_2.csv"}
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:      defaultAPIListen,
			CORSOrigins: append([]string(nil), defaultCORSOrigins...),
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Corpus: CorpusConfig{
			Sources: append([]string(nil), defaultSources...),
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			Timeout:    defaultEmbeddingTimeout,
			BatchSize:  defaultEmbeddingBatchSize,
		},
		Index: IndexConfig{
			Provider: defaultIndexProvider,
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
