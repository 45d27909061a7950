package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// DefaultArchitecturePrompt asks for the extraction schema the decoder understands.
// The single %s receives the chunk text.
const DefaultArchitecturePrompt = `You are a senior software architect.
Analyze the following business requirement chunk and extract architecture details for High-Level Design (HLD).
Return **ONLY a valid JSON object** following this strict schema:

{
  "actors": [
    {
      "name": "string - actor name",
      "type": "External | Internal | External System"
    }
  ],
  "microservices": [
    {
      "name": "string - service name",
      "db": "string - database name or null if no db",
      "exposes": ["REST | gRPC | GraphQL | WebSocket | Event"],
      "consumes": ["REST | Queue | Event | DB"],
      "scaling": "string - e.g., AutoScale, Fixed, OnDemand",
      "criticality": "High | Medium | Low"
    }
  ],
  "events": [
    {
      "from": "string - source service or actor",
      "to": "string - destination service or actor",
      "type": "REST | Queue | Event | DB",
      "description": "string - purpose of this interaction"
    }
  ]
}

Rules:
- JSON must be syntactically valid. Double-check for missing commas, brackets, or quotes.
- Use double quotes for all JSON keys and values.
- Include all services, DBs, and interactions inferred from the chunk.
- If an element is not applicable, use null or an empty list.
- No markdown, no explanations, no extra text outside JSON.

Business Requirement Chunk:
%s
`

const DefaultSystemRole = "You are a helpful assistant that outputs JSON only."

type ExtractionPrompts struct {
	Architecture string `toml:"architecture"`
}

type LLMConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	SystemRole string `toml:"system_role"`
	MaxTokens  int    `toml:"max_tokens"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type IngestConfig struct {
	ChunkWords  int    `toml:"chunk_words"`
	Concurrency int    `toml:"concurrency"`
	Output      string `toml:"output"`
	Persist     bool   `toml:"persist"`
}

type CacheConfig struct {
	RedisAddr  string `toml:"redis_addr"`
	Prefix     string `toml:"prefix"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
	File string `toml:"file"`
}

type ServerConfig struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

type Config struct {
	LLM        LLMConfig         `toml:"llm"`
	Memgraph   MemgraphConfig    `toml:"memgraph"`
	Extraction ExtractionPrompts `toml:"extraction"`
	Ingest     IngestConfig      `toml:"ingest"`
	Cache      CacheConfig       `toml:"cache"`
	Log        LogConfig         `toml:"log"`
	Server     ServerConfig      `toml:"server"`
}

// Default returns a configuration that runs against a local Ollama with
// no persistence and no cache.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "ollama",
			Model:      "gpt-oss:latest",
			BaseURL:    "http://localhost:11434",
			SystemRole: DefaultSystemRole,
			MaxTokens:  4096,
		},
		Extraction: ExtractionPrompts{
			Architecture: DefaultArchitecturePrompt,
		},
		Ingest: IngestConfig{
			ChunkWords:  2000,
			Concurrency: 1,
			Output:      "merged_architecture.json",
		},
		Cache: CacheConfig{
			Prefix:     "archgraph:llm:",
			TTLSeconds: 86400,
		},
		Log: LogConfig{
			Mode: "dev",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads a TOML file on top of Default. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides configuration with environment variables when they are set.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Mode, "LOG_MODE")

	if v := os.Getenv("INGEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.Concurrency = n
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.Extraction.Architecture == "" {
		return fmt.Errorf("extraction.architecture prompt is required")
	}
	if c.Ingest.ChunkWords <= 0 {
		return fmt.Errorf("ingest.chunk_words must be positive, got %d", c.Ingest.ChunkWords)
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be positive, got %d", c.Ingest.Concurrency)
	}
	if c.Ingest.Persist && c.Memgraph.URI == "" {
		return fmt.Errorf("ingest.persist requires memgraph.uri")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
