// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Chunking      ChunkingConfig      `yaml:"chunking" mapstructure:"chunking"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" mapstructure:"retrieval"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	YouTube       YouTubeConfig       `yaml:"youtube" mapstructure:"youtube"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	// TTL 会话空闲过期时间；过期后分块与向量数据一并销毁
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// MaxVideos 单会话最多绑定的视频数（对比场景为 2）
	MaxVideos int `yaml:"max_videos" mapstructure:"max_videos"`
	// HistoryLimit 保留的最近对话轮数
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
	// JanitorInterval 过期清理扫描间隔
	JanitorInterval time.Duration `yaml:"janitor_interval" mapstructure:"janitor_interval"`
}

// ChunkingConfig 自适应分块配置
type ChunkingConfig struct {
	MinChunks       int `yaml:"min_chunks" mapstructure:"min_chunks"`
	MaxChunks       int `yaml:"max_chunks" mapstructure:"max_chunks"`
	MinChunkSeconds int `yaml:"min_chunk_seconds" mapstructure:"min_chunk_seconds"`
	MaxChunkSeconds int `yaml:"max_chunk_seconds" mapstructure:"max_chunk_seconds"`
	MaxChunkChars   int `yaml:"max_chunk_chars" mapstructure:"max_chunk_chars"`
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	DefaultTopK      int `yaml:"default_top_k" mapstructure:"default_top_k"`
	MaxTopK          int `yaml:"max_top_k" mapstructure:"max_top_k"`
	MaxEvidenceRunes int `yaml:"max_evidence_runes" mapstructure:"max_evidence_runes"`
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	Model       string `yaml:"model" mapstructure:"model"`
	Dimension   int    `yaml:"dimension" mapstructure:"dimension"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GenerationConfig 生成调用配置
type GenerationConfig struct {
	// Timeout 单次生成调用超时；超时返回错误而非无限等待
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// YouTubeConfig 视频平台接入配置
type YouTubeConfig struct {
	// APIKey Data API v3 密钥；为空时仅返回占位元数据
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	DataAPIEndpoint   string        `yaml:"data_api_endpoint" mapstructure:"data_api_endpoint"`
	TimedTextEndpoint string        `yaml:"timedtext_endpoint" mapstructure:"timedtext_endpoint"`
	Languages         []string      `yaml:"languages" mapstructure:"languages"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// VectorConfig 向量索引配置
type VectorConfig struct {
	// Backend 索引后端：memory（默认）或 milvus
	Backend string       `yaml:"backend" mapstructure:"backend"`
	Milvus  MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	CollectionPrefix   string `yaml:"collection_prefix" mapstructure:"collection_prefix"`
	HNSWM              int    `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	SummaryTTL time.Duration `yaml:"summary_ttl" mapstructure:"summary_ttl"`
	Redis      RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
