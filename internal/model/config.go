package model

// Config holds the complete verity configuration
type Config struct {
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Memory      MemoryConfig      `yaml:"memory" mapstructure:"memory"`
	Tools       ToolsConfig       `yaml:"tools" mapstructure:"tools"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Authority   AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Events      EventsConfig      `yaml:"events" mapstructure:"events"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// CacheConfig sizes the in-process recency caches
type CacheConfig struct {
	VerificationCapacity int `yaml:"verification_capacity" mapstructure:"verification_capacity" validate:"min=1"`
	CalculationCapacity  int `yaml:"calculation_capacity" mapstructure:"calculation_capacity" validate:"min=1"`
}

// MemoryConfig selects and configures the durable verification memory
type MemoryConfig struct {
	Backend             string         `yaml:"backend" mapstructure:"backend" validate:"oneof=local badger weaviate postgres"`
	SimilarityThreshold float64        `yaml:"similarity_threshold" mapstructure:"similarity_threshold" validate:"gt=0,lte=1"`
	LocalTTLHours       int            `yaml:"local_ttl_hours" mapstructure:"local_ttl_hours" validate:"min=0"`
	Layered             bool           `yaml:"layered" mapstructure:"layered"` // front the durable backend with the local store
	Badger              BadgerConfig   `yaml:"badger" mapstructure:"badger"`
	Weaviate            WeaviateConfig `yaml:"weaviate" mapstructure:"weaviate"`
	Postgres            PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// BadgerConfig configures the embedded badger store
type BadgerConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	InMemory bool   `yaml:"in_memory" mapstructure:"in_memory"`
}

// WeaviateConfig configures the vector similarity store
type WeaviateConfig struct {
	Host       string `yaml:"host" mapstructure:"host"`
	Scheme     string `yaml:"scheme" mapstructure:"scheme" validate:"omitempty,oneof=http https"`
	Class      string `yaml:"class" mapstructure:"class"`
	Vectorizer string `yaml:"vectorizer" mapstructure:"vectorizer"` // module used when the class is created
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// PostgresConfig configures the relational similarity store
type PostgresConfig struct {
	DSN   string `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Table string `yaml:"table" mapstructure:"table"`
}

// ToolsConfig controls which verification tools run and how long they may take
type ToolsConfig struct {
	Enabled        []string `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds" mapstructure:"timeout_seconds" validate:"min=1"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second" validate:"min=0"` // 0 disables limiting
	Burst          int      `yaml:"burst" mapstructure:"burst" validate:"min=0"`
}

// ConcurrencyConfig bounds worker fan-out
type ConcurrencyConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers" validate:"min=1"`           // batch thought workers
	LinkWorkers int `yaml:"link_workers" mapstructure:"link_workers" validate:"min=1"` // concurrent source checks
}

// LLMConfig holds LLM provider configuration for the llm_check tool
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai anthropic claude ollama"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout" validate:"min=0"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"min=0"`
}

// HTTPConfig configures outbound fetching for source checks
type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds" validate:"min=1"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots  bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"min=1024"`
	HTTPProxy      string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy     string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy        string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// AuthorityConfig maps source domains to authority tiers
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// PathPattern assigns a tier to URLs whose path matches Pattern
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier" validate:"oneof=primary secondary tertiary"`
}

// EventsConfig configures verification event publishing
type EventsConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	URL           string `yaml:"url" mapstructure:"url" validate:"required_if=Enabled true"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`
}

// MetricsConfig configures prometheus metrics
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			VerificationCapacity: 100,
			CalculationCapacity:  50,
		},
		Memory: MemoryConfig{
			Backend:             "local",
			SimilarityThreshold: 0.85,
			LocalTTLHours:       24 * 7,
			Badger: BadgerConfig{
				Dir: "",
			},
			Weaviate: WeaviateConfig{
				Host:       "localhost:8080",
				Scheme:     "http",
				Class:      "Verification",
				Vectorizer: "text2vec-transformers",
			},
			Postgres: PostgresConfig{
				Table: "verifications",
			},
		},
		Tools: ToolsConfig{
			Enabled:        []string{"calculator", "source_check", "llm_check"},
			TimeoutSeconds: 10,
			RatePerSecond:  5,
			Burst:          5,
		},
		Concurrency: ConcurrencyConfig{
			Workers:     4,
			LinkWorkers: 5,
		},
		LLM: LLMConfig{
			Provider:  "", // disabled unless configured
			Timeout:   30,
			MaxTokens: 600,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 10,
			UserAgent:      "Verity/0.1 (+https://github.com/ppiankov/verity)",
			RespectRobots:  true,
			MaxBodyBytes:   2 << 20,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org",
				"arxiv.org",
				"pubmed.ncbi.nlm.nih.gov",
				"legislation.gov.uk",
				"eur-lex.europa.eu",
				"who.int",
				"oecd.org",
				"insee.fr",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"britannica.com",
				"reuters.com",
				"apnews.com",
				"bbc.co.uk",
				"lemonde.fr",
				"nature.com",
			},
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "verity",
		},
		Server: ServerConfig{
			Addr: ":8088",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "verity",
		},
	}
}
